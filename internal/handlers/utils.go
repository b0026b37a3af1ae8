// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/sirupsen/logrus"
)

// TypeError is the message type of error replies, over HTTP and over the socket.
const TypeError game.MessageType = "ERROR"

// errorMessage is the body of every failed request.
type errorMessage struct {
	Type    game.MessageType `json:"type"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
}

func (errorMessage) MessageType() game.MessageType { return TypeError }

func newErrorMessage(err error) (int, *errorMessage) {
	status, code := errorStatus(err)
	return status, &errorMessage{Type: TypeError, Code: code, Message: err.Error()}
}

// errorStatus maps domain errors to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrPlayerOutOfTurn):
		return http.StatusConflict, "not_your_turn"
	case errors.Is(err, game.ErrNoOneIsPlaying):
		return http.StatusConflict, "no_one_is_playing"

	case errors.Is(err, game.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, game.ErrPlayerNotFound):
		return http.StatusNotFound, "player_not_found"
	case errors.Is(err, game.ErrNameTaken):
		return http.StatusConflict, "name_taken"
	case errors.Is(err, game.ErrInvalidName):
		return http.StatusBadRequest, "invalid_name"
	case errors.Is(err, game.ErrNotHuman):
		return http.StatusBadRequest, "not_human"

	case errors.Is(err, game.ErrNoSuchCard):
		return http.StatusUnprocessableEntity, "no_such_card"
	case errors.Is(err, game.ErrCardCannotBePlayed):
		return http.StatusUnprocessableEntity, "card_cannot_be_played"
	case errors.Is(err, game.ErrSaidUnoWhenShouldNotHave):
		return http.StatusUnprocessableEntity, "said_uno_when_should_not_have"

	case errors.Is(err, game.ErrCanPlayInstead):
		return http.StatusConflict, "can_play_instead"

	case errors.Is(err, game.ErrAlreadyStarted):
		return http.StatusConflict, "already_started"
	case errors.Is(err, game.ErrSessionFinished):
		return http.StatusConflict, "session_finished"
	case errors.Is(err, game.ErrNotInLobby):
		return http.StatusConflict, "not_in_lobby"
	case errors.Is(err, game.ErrSessionFull):
		return http.StatusConflict, "session_full"
	case errors.Is(err, game.ErrDeckEmpty):
		return http.StatusConflict, "deck_empty"
	case errors.Is(err, game.ErrAuthorNotFound):
		return http.StatusConflict, "author_not_found"
	case errors.Is(err, game.ErrNotAuthor):
		return http.StatusForbidden, "not_author"

	case errors.Is(err, auth.ErrWrongSession):
		return http.StatusForbidden, "wrong_session"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal"
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status, msg := newErrorMessage(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, msg)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
