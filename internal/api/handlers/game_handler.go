package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket" // WebSocketライブラリ
	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris" // SessionManager をインポート
)

const authTimeout = 10 * time.Second

// GameHandler はゲーム関連のHTTPリクエスト（部屋作成、状態取得、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *tetris.SessionManager
	auth           *middleware.Authenticator
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//
//	sm             : セッションマネージャーへのポインタ
//	auth           : WebSocketの認証メッセージを検証する認証器
//	allowedOrigins : WebSocket接続を許可するOrigin
//	logger         : ロガー
//
// Returns:
//
//	*GameHandler: 新しく作成された GameHandler のポインタ
func NewGameHandler(sm *tetris.SessionManager, auth *middleware.Authenticator, allowedOrigins []string, logger *zap.Logger) *GameHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameHandler{
		sessionManager: sm,
		auth:           auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.OriginChecker(allowedOrigins),
		},
		logger: logger.Named("game_handler"),
	}
}

// CreateRoom は新しいゲームセッション（部屋）を作成するためのHTTPハンドラーです。
// POST /api/sessions
func (h *GameHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID := ExtractUserID(r)

	roomID, err := h.sessionManager.CreateSession(userID)
	if err != nil {
		h.logger.Error("Failed to create room", zap.String("user_id", userID), zap.Error(err))
		WriteErrorResponse(w, http.StatusInternalServerError, "ルームの作成に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]string{"room_id": roomID, "message": "ルームを作成しました"})
}

// GetRoomStatus は特定のルームの現在の状態を返すハンドラーです。
// GET /api/sessions/{roomID}
func (h *GameHandler) GetRoomStatus(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	view, err := h.sessionManager.GetSession(roomID)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたルームは見つかりませんでした")
		return
	}

	WriteJSONResponse(w, http.StatusOK, view)
}

// EndRoom はルームを削除し、接続中のクライアントを切断します。
// DELETE /api/sessions/{roomID}
func (h *GameHandler) EndRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	if err := h.sessionManager.Authorize(roomID, ExtractUserID(r)); err != nil {
		h.writeSessionError(w, err)
		return
	}
	if err := h.sessionManager.EndGameSession(roomID); err != nil {
		h.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tetris.ErrSessionNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "指定されたルームは見つかりませんでした")
	case errors.Is(err, tetris.ErrSessionOwnedByOther):
		WriteErrorResponse(w, http.StatusForbidden, "このルームを操作する権限がありません")
	default:
		WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

// HandleWebSocketConnection はHTTP接続をWebSocketプロトコルにアップグレードし、
// その後、WebSocketメッセージの送受信をセッションマネージャーに引き渡します。
// GET /ws/{roomID}
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	if _, err := h.sessionManager.GetSession(roomID); err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたルームは見つかりませんでした")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade to websocket", zap.String("room_id", roomID), zap.Error(err))
		return // Upgrade がエラーレスポンスを書き込み済み
	}

	var userID string
	if h.auth.Enabled() {
		userID, err = h.awaitAuth(conn)
		if err != nil {
			h.logger.Info("WebSocket auth failed", zap.String("room_id", roomID), zap.Error(err))
			conn.WriteJSON(map[string]string{"type": "error", "error": err.Error()})
			conn.Close()
			return
		}
		conn.WriteJSON(map[string]string{"type": "auth_success", "message": "Authentication successful"})
	}

	// readPump と writePump は RegisterClient 内で開始され、以降のコネクション管理は SessionManager が行う
	if err := h.sessionManager.RegisterClient(roomID, userID, conn); err != nil {
		h.logger.Info("Failed to register client", zap.String("room_id", roomID), zap.String("user_id", userID), zap.Error(err))
		conn.WriteJSON(map[string]string{"type": "error", "error": err.Error()})
		conn.Close()
		return
	}
}

// awaitAuth は最初のメッセージとして {"type":"auth","token":...} を待ちます。
func (h *GameHandler) awaitAuth(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}

	var authMsg struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(message, &authMsg); err != nil {
		return "", errors.New("malformed auth message")
	}
	if authMsg.Type != "auth" {
		return "", errors.New("expected auth message")
	}
	return h.auth.Authenticate(authMsg.Token)
}
