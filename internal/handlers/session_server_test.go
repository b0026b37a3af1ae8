// internal/handlers/session_server_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/game"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireCard mirrors the card JSON without the construction checks, so morphed wilds decode too.
type wireCard struct {
	Color  string `json:"color"`
	Symbol string `json:"symbol"`
}

type statusView struct {
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	You           string     `json:"you"`
	CurrentPlayer string     `json:"currentPlayer"`
	Cards         []wireCard `json:"cards"`
	TopCard       wireCard   `json:"topCard"`
	ActiveSymbol  string     `json:"activeSymbol"`
}

func newTestServer(t *testing.T) (*httptest.Server, *SessionServer) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	signer, err := auth.NewSigner(time.Hour)
	require.NoError(t, err)
	store := game.NewStore(game.Options{Rand: rand.New(rand.NewSource(5)), Logger: logger})

	srv := NewSessionServer(store, signer, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func do(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var e errorMessage
	decode(t, resp, &e)
	assert.Equal(t, TypeError, e.Type)
	return e.Code
}

func createSession(t *testing.T, ts *httptest.Server, author string) (uuid.UUID, string) {
	t.Helper()
	resp := do(t, ts, http.MethodPost, "/sessions", "", nameRequest{Name: author})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createResponse
	decode(t, resp, &created)
	require.NotEqual(t, uuid.Nil, created.SessionID)
	require.NotEmpty(t, created.Token)
	return created.SessionID, created.Token
}

func sessionPath(id uuid.UUID, rest string) string {
	return "/sessions/" + id.String() + rest
}

func legal(c, top wireCard, active string) bool {
	if active != "" {
		return c.Symbol == active
	}
	return c.Color == "BLACK" || c.Color == top.Color || c.Symbol == top.Symbol
}

func TestSessionLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	id, andy := createSession(t, ts, "Andy")

	resp := do(t, ts, http.MethodPost, sessionPath(id, "/players"), "", nameRequest{Name: "Bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var joined tokenResponse
	decode(t, resp, &joined)
	bob := joined.Token

	resp = do(t, ts, http.MethodPost, sessionPath(id, "/players"), "", nameRequest{Name: "Bob"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "name_taken", errorCode(t, resp))

	resp = do(t, ts, http.MethodPost, sessionPath(id, "/bots"), bob, nameRequest{Name: "Robo"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not_author", errorCode(t, resp))

	resp = do(t, ts, http.MethodPost, sessionPath(id, "/bots"), andy, nameRequest{Name: "Robo"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, sessionPath(id, "/status"), bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lobby map[string]interface{}
	decode(t, resp, &lobby)
	assert.Equal(t, "LOBBY", lobby["status"])
	assert.Equal(t, []interface{}{"Andy", "Bob", "Robo"}, lobby["players"])

	resp = do(t, ts, http.MethodPost, sessionPath(id, "/start"), bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = do(t, ts, http.MethodPost, sessionPath(id, "/start"), andy, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, ts, http.MethodPost, sessionPath(id, "/start"), andy, nil)
	assert.Equal(t, "already_started", errorCode(t, resp))

	resp = do(t, ts, http.MethodPost, sessionPath(id, "/draw"), bob, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_your_turn", errorCode(t, resp))

	resp = do(t, ts, http.MethodGet, sessionPath(id, "/status"), andy, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st statusView
	decode(t, resp, &st)
	assert.Equal(t, "RUNNING", st.Status)
	assert.Equal(t, "Andy", st.CurrentPlayer)
	require.Len(t, st.Cards, game.DefaultHandSize)

	var playable *wireCard
	for i := range st.Cards {
		if legal(st.Cards[i], st.TopCard, st.ActiveSymbol) {
			playable = &st.Cards[i]
			break
		}
	}

	if playable == nil {
		resp = do(t, ts, http.MethodPost, sessionPath(id, "/draw"), andy, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var drawn drawResponse
		decode(t, resp, &drawn)
		assert.Len(t, drawn.Cards, 1)
	} else {
		resp = do(t, ts, http.MethodPost, sessionPath(id, "/draw"), andy, nil)
		assert.Equal(t, "can_play_instead", errorCode(t, resp))

		body := map[string]interface{}{"card": playable, "saidUno": false}
		if playable.Color == "BLACK" {
			body["newColor"] = "GREEN"
		}
		resp = do(t, ts, http.MethodPost, sessionPath(id, "/play"), andy, body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var played struct {
			Card wireCard `json:"card"`
		}
		decode(t, resp, &played)
		assert.Equal(t, playable.Symbol, played.Card.Symbol)
	}

	if playable != nil && playable.Symbol == "REVERSE" {
		return
	}
	resp = do(t, ts, http.MethodGet, sessionPath(id, "/status"), andy, nil)
	decode(t, resp, &st)
	assert.Equal(t, "Bob", st.CurrentPlayer)
}

func TestPlayErrors(t *testing.T) {
	ts, _ := newTestServer(t)
	id, andy := createSession(t, ts, "Andy")
	require.Equal(t, http.StatusNoContent, do(t, ts, http.MethodPost, sessionPath(id, "/bots"), andy, nameRequest{Name: "Robo"}).StatusCode)

	resp := do(t, ts, http.MethodPost, sessionPath(id, "/play"), andy, map[string]interface{}{
		"card": map[string]string{"color": "RED", "symbol": "5"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "no_one_is_playing", errorCode(t, resp))

	require.Equal(t, http.StatusNoContent, do(t, ts, http.MethodPost, sessionPath(id, "/start"), andy, nil).StatusCode)

	resp = do(t, ts, http.MethodPost, sessionPath(id, "/play"), andy, map[string]interface{}{
		"card": map[string]string{"color": "BLACK", "symbol": "5"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "not a card")

	resp = do(t, ts, http.MethodPost, sessionPath(id, "/play"), andy, "garbage")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var st statusView
	decode(t, do(t, ts, http.MethodGet, sessionPath(id, "/status"), andy, nil), &st)
	inHand := make(map[wireCard]bool)
	for _, c := range st.Cards {
		inHand[c] = true
	}
	var missing wireCard
	for _, symbol := range []string{"0", "1"} {
		for _, color := range []string{"RED", "YELLOW", "GREEN", "BLUE"} {
			if c := (wireCard{Color: color, Symbol: symbol}); !inHand[c] && missing.Color == "" {
				missing = c
			}
		}
	}
	require.NotEmpty(t, missing.Color, "seven cards cannot cover eight distinct cards")
	resp = do(t, ts, http.MethodPost, sessionPath(id, "/play"), andy, map[string]interface{}{"card": missing})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "no_such_card", errorCode(t, resp))
}

func TestAuthErrors(t *testing.T) {
	ts, _ := newTestServer(t)
	id, andy := createSession(t, ts, "Andy")
	other, _ := createSession(t, ts, "Zed")

	resp := do(t, ts, http.MethodGet, sessionPath(id, "/status"), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_token", errorCode(t, resp))

	resp = do(t, ts, http.MethodGet, sessionPath(other, "/status"), andy, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "wrong_session", errorCode(t, resp))

	resp = do(t, ts, http.MethodGet, sessionPath(uuid.New(), "/status"), andy, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session_not_found", errorCode(t, resp))

	resp = do(t, ts, http.MethodGet, "/sessions/not-a-uuid/status", andy, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/sessions", "", nameRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_name", errorCode(t, resp))
}

func TestErrorStatus(t *testing.T) {
	status, code := errorStatus(game.ErrCanPlayInstead)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "can_play_instead", code)

	status, code = errorStatus(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", code)
}
