// internal/handlers/session_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/uno/internal/card"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	outQueueSize = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Reply types that only exist on the socket.
const (
	TypePong  game.MessageType = "PONG"
	TypeDrawn game.MessageType = "DRAWN"
)

// wsRequest is an incoming socket message. Type is one of "play", "draw", "status" or "ping".
type wsRequest struct {
	Type     string      `json:"type"`
	Card     *card.Card  `json:"card,omitempty"`
	NewColor *card.Color `json:"newColor,omitempty"`
	SaidUno  bool        `json:"saidUno"`
}

type pongMessage struct {
	Type game.MessageType `json:"type"`
}

func (pongMessage) MessageType() game.MessageType { return TypePong }

// drawnMessage tells the drawing player which cards they got; DRAW only carries the count.
type drawnMessage struct {
	Type  game.MessageType `json:"type"`
	Cards []card.Card      `json:"cards"`
}

func (drawnMessage) MessageType() game.MessageType { return TypeDrawn }

// wsTransport queues encoded messages for the write pump. Send never blocks: when the
// queue is full the connection is torn down and the client has to reconnect for a snapshot.
type wsTransport struct {
	out    chan []byte
	cancel context.CancelFunc
	log    logrus.FieldLogger

	once sync.Once
}

func newWSTransport(cancel context.CancelFunc, log logrus.FieldLogger) *wsTransport {
	return &wsTransport{
		out:    make(chan []byte, outQueueSize),
		cancel: cancel,
		log:    log,
	}
}

func (t *wsTransport) Send(msg game.Message) {
	select {
	case t.out <- game.Encode(msg):
	default:
		t.once.Do(func() {
			t.log.Warnf("outgoing queue full, dropping %s and closing connection", msg.MessageType())
			t.cancel()
		})
	}
}

// handleWS upgrades to a WebSocket bound as the player's transport. The token comes from
// the "token" query parameter, since browsers cannot set headers on the upgrade request.
func (s *SessionServer) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	g, seat, err := s.seat(r, token)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	log := s.Logger.WithFields(logrus.Fields{"session": g.ID, "player": seat.Player})

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		log.Warnf("WebSocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	t := newWSTransport(cancel, log)
	go writePump(ctx, c, t, log)

	if err := g.BindTransport(seat.Player, t); err != nil {
		log.WithError(err).Warn("cannot bind transport")
		c.Close(SessionClosedError, err.Error())
		return
	}
	defer g.UnbindTransport(seat.Player, t)

	middleware.LogWebSocketConnect(log, r.RemoteAddr, r.URL.Path)
	err = readPump(ctx, c, g, seat.Player, t, log)
	middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, err)

	if ctx.Err() != nil && r.Context().Err() == nil {
		c.Close(SlowConsumerError, "client is too slow")
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

// readPump reads requests until the connection closes. Replies and errors go through the
// transport queue so they stay ordered with session events.
func readPump(ctx context.Context, c *websocket.Conn, g *game.Game, player string, t *wsTransport, log logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", msgType)
			continue
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			sendError(t, fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err))
			continue
		}
		log.Debugf("received %q", req.Type)

		if err := handleRequest(g, player, req, t); err != nil {
			sendError(t, err)
		}
	}
}

func handleRequest(g *game.Game, player string, req wsRequest, t *wsTransport) error {
	switch req.Type {
	case "play":
		if req.Card == nil {
			return fmt.Errorf("%w: play without card", errBadRequest)
		}
		_, err := g.PlayCard(player, *req.Card, req.NewColor, req.SaidUno)
		return err

	case "draw":
		drawn, err := g.DrawCards(player)
		if err != nil {
			return err
		}
		g.Deliver(t, &drawnMessage{Type: TypeDrawn, Cards: drawn})
		return nil

	case "status":
		return g.SendStatus(player, t)

	case "ping":
		t.Send(&pongMessage{Type: TypePong})
		return nil
	}
	return fmt.Errorf("%w: unknown message type %q", errBadRequest, req.Type)
}

func sendError(t *wsTransport, err error) {
	_, msg := newErrorMessage(err)
	t.Send(msg)
}

// writePump drains the transport queue and keeps the connection alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, t *wsTransport, log logrus.FieldLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case data := <-t.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Warnf("failed to write to websocket: %v", err)
				t.cancel()
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				log.Warnf("failed to ping websocket: %v", err)
				t.cancel()
				return
			}
		}
	}
}
