package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

const testSecret = "handler-secret"

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newTestRouter(t *testing.T, secret string) (http.Handler, *tetris.SessionManager) {
	t.Helper()
	sm := tetris.NewSessionManager(tetris.SessionConfig{
		TickInterval: time.Hour,
		IdleTimeout:  time.Hour,
		Seed:         7,
	}, nil)
	t.Cleanup(sm.Shutdown)

	auth := middleware.NewAuthenticator(secret, false, nil)
	router := NewRouter(
		NewGameHandler(sm, auth, []string{"http://localhost:3000"}, nil),
		NewPublicHandler(sm),
		auth,
	)
	return router, sm
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createRoom(t *testing.T, h http.Handler, token string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["room_id"])
	return body["room_id"]
}

func TestPublicEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, testSecret)

	rec := do(t, router, http.MethodGet, "/api/public", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/public")

	rec = do(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, rec.Body.String())
}

func TestSessionEndpoints(t *testing.T) {
	router, sm := newTestRouter(t, testSecret)

	rec := do(t, router, http.MethodPost, "/api/sessions", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	roomID := createRoom(t, router, bearer(t, "user-1"))
	assert.Equal(t, 1, sm.SessionCount())

	rec = do(t, router, http.MethodGet, "/api/sessions/"+roomID, bearer(t, "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var view tetris.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, roomID, view.RoomID)
	assert.Equal(t, "user-1", view.OwnerID)
	assert.Equal(t, tetris.StatusWaiting, view.Status)
	assert.Equal(t, 20, view.State.Rows)
	assert.Equal(t, 10, view.State.Cols)

	rec = do(t, router, http.MethodGet, "/api/sessions/unknown", bearer(t, "user-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/sessions/"+roomID, bearer(t, "user-2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/sessions/"+roomID, bearer(t, "user-1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/sessions/"+roomID, bearer(t, "user-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func wsURL(srv *httptest.Server, roomID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + roomID
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestWebSocket_AuthenticatedPlay(t *testing.T) {
	router, _ := newTestRouter(t, testSecret)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	roomID := createRoom(t, router, bearer(t, "user-1"))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, roomID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": bearer(t, "user-1")}))

	var ack map[string]string
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_success", ack["type"])

	var state tetris.StateMessage
	readJSON(t, conn, &state)
	assert.Equal(t, tetris.StatusPlaying, state.Status)
	assert.Len(t, state.State.Active, 4)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "move_left"}))
	readJSON(t, conn, &state)
	assert.True(t, state.Accepted)
}

func TestWebSocket_RejectsOtherUser(t *testing.T) {
	router, _ := newTestRouter(t, testSecret)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	roomID := createRoom(t, router, bearer(t, "user-1"))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, roomID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": bearer(t, "user-2")}))

	var ack map[string]string
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_success", ack["type"])

	var msg map[string]string
	readJSON(t, conn, &msg)
	assert.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["error"], "owned by another user")
}

func TestWebSocket_InvalidToken(t *testing.T) {
	router, _ := newTestRouter(t, testSecret)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	roomID := createRoom(t, router, bearer(t, "user-1"))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, roomID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "garbage"}))

	var msg map[string]string
	readJSON(t, conn, &msg)
	assert.Equal(t, "error", msg["type"])
}

func TestWebSocket_UnknownRoom(t *testing.T) {
	router, _ := newTestRouter(t, testSecret)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "missing"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocket_AuthDisabled(t *testing.T) {
	router, _ := newTestRouter(t, "")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	roomID := createRoom(t, router, "")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, roomID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var state tetris.StateMessage
	readJSON(t, conn, &state)
	assert.Equal(t, "state", state.Type)
	assert.Equal(t, roomID, state.RoomID)
	assert.Equal(t, tetris.StatusPlaying, state.Status)
}
