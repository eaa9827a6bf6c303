package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
)

// NewRouter はすべてのエンドポイントを登録したルーターを返します。
func NewRouter(game *GameHandler, public *PublicHandler, auth *middleware.Authenticator) *mux.Router {
	r := mux.NewRouter()

	// 認証不要な公開エンドポイント
	r.HandleFunc("/api/public", PublicHandlerFunc).Methods(http.MethodGet)
	r.HandleFunc("/api/health", public.Health).Methods(http.MethodGet)

	// WebSocketはヘッダーを付けられないため、最初のメッセージで認証する
	r.HandleFunc("/ws/{roomID}", game.HandleWebSocketConnection)

	sessions := r.PathPrefix("/api/sessions").Subrouter()
	sessions.Use(auth.Middleware)
	sessions.HandleFunc("", game.CreateRoom).Methods(http.MethodPost)
	sessions.HandleFunc("/{roomID}", game.GetRoomStatus).Methods(http.MethodGet)
	sessions.HandleFunc("/{roomID}", game.EndRoom).Methods(http.MethodDelete)

	return r
}
