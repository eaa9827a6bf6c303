package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
)

// ExtractUserID はリクエストのコンテキストからユーザーIDを取り出します。
// 認証が無効な場合は空文字を返します。
func ExtractUserID(r *http.Request) string {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	return userID
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	WriteJSONResponse(w, statusCode, map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
