// internal/handlers/session_server.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/card"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/sirupsen/logrus"
)

// SessionServer exposes the session store over HTTP and WebSocket.
type SessionServer struct {
	Store  *game.Store
	Signer *auth.Signer
	Logger logrus.FieldLogger
	// OriginPatterns is passed to websocket.Accept; nil allows same-origin only.
	OriginPatterns []string
}

func NewSessionServer(store *game.Store, signer *auth.Signer, logger logrus.FieldLogger) *SessionServer {
	return &SessionServer{Store: store, Signer: signer, Logger: logger}
}

// Handler returns the routes wrapped in request logging.
func (s *SessionServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.handleCreate)
	mux.HandleFunc("POST /sessions/{id}/players", s.handleJoin)
	mux.HandleFunc("POST /sessions/{id}/bots", s.handleAddBot)
	mux.HandleFunc("POST /sessions/{id}/start", s.handleStart)
	mux.HandleFunc("POST /sessions/{id}/play", s.handlePlay)
	mux.HandleFunc("POST /sessions/{id}/draw", s.handleDraw)
	mux.HandleFunc("GET /sessions/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /sessions/{id}/ws", s.handleWS)
	return middleware.LogMiddleware(s.Logger)(mux)
}

type nameRequest struct {
	Name string `json:"name"`
}

type createResponse struct {
	SessionID uuid.UUID `json:"sessionId"`
	Token     string    `json:"token"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type playRequest struct {
	Card     card.Card   `json:"card"`
	NewColor *card.Color `json:"newColor,omitempty"`
	SaidUno  bool        `json:"saidUno"`
}

type playResponse struct {
	Card card.Card `json:"card"`
}

type drawResponse struct {
	Cards []card.Card `json:"cards"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// session resolves the {id} path value.
func (s *SessionServer) session(r *http.Request) (*game.Game, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", game.ErrSessionNotFound, r.PathValue("id"))
	}
	return s.Store.Get(id)
}

// seat resolves the session and authenticates the bearer token against it.
func (s *SessionServer) seat(r *http.Request, token string) (*game.Game, auth.Seat, error) {
	g, err := s.session(r)
	if err != nil {
		return nil, auth.Seat{}, err
	}
	seat, err := s.Signer.AuthenticateFor(token, g.ID)
	if err != nil {
		return nil, auth.Seat{}, err
	}
	return g, seat, nil
}

// authorSeat is seat plus a check that the caller created the session.
func (s *SessionServer) authorSeat(r *http.Request) (*game.Game, error) {
	g, seat, err := s.seat(r, bearerToken(r))
	if err != nil {
		return nil, err
	}
	if seat.Player != g.Author() {
		return nil, fmt.Errorf("%w: %s", game.ErrNotAuthor, seat.Player)
	}
	return g, nil
}

func (s *SessionServer) issue(g *game.Game, player string) (string, error) {
	return s.Signer.CreateToken(auth.Seat{SessionID: g.ID, Player: player})
}

// handleCreate opens a session with the caller as author.
func (s *SessionServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	g, err := s.Store.Create(req.Name)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	token, err := s.issue(g, req.Name)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	s.Logger.WithFields(logrus.Fields{"session": g.ID, "author": req.Name}).Info("session created")
	writeJSON(w, http.StatusCreated, createResponse{SessionID: g.ID, Token: token})
}

func (s *SessionServer) handleJoin(w http.ResponseWriter, r *http.Request) {
	g, err := s.session(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if err := g.Join(req.Name); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	token, err := s.issue(g, req.Name)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (s *SessionServer) handleAddBot(w http.ResponseWriter, r *http.Request) {
	g, err := s.authorSeat(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if err := g.AddBot(req.Name); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *SessionServer) handleStart(w http.ResponseWriter, r *http.Request) {
	g, err := s.authorSeat(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if err := g.Start(); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *SessionServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	g, seat, err := s.seat(r, bearerToken(r))
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	var req playRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	played, err := g.PlayCard(seat.Player, req.Card, req.NewColor, req.SaidUno)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playResponse{Card: played})
}

func (s *SessionServer) handleDraw(w http.ResponseWriter, r *http.Request) {
	g, seat, err := s.seat(r, bearerToken(r))
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	drawn, err := g.DrawCards(seat.Player)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, drawResponse{Cards: drawn})
}

func (s *SessionServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	g, seat, err := s.seat(r, bearerToken(r))
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	snap, err := g.Snapshot(seat.Player)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
