package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// BypassToken is accepted in place of a JWT when bypass mode is on.
const BypassToken = "BYPASS_AUTH"

// BypassUserID is the user every bypassed request is attributed to.
const BypassUserID = "test-user-123"

var (
	ErrMissingToken  = errors.New("authorization token is required")
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingUserID = errors.New("invalid token: missing user ID")
)

type UserIDKey struct{}

// GetUserIDFromContext retrieves the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey{}).(string)
	return userID, ok
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey{}, userID)
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Authenticator validates Supabase-style HS256 JWTs. With an empty secret and
// bypass off, authentication is disabled and every caller is anonymous.
type Authenticator struct {
	secret []byte
	bypass bool
	logger *zap.Logger
}

func NewAuthenticator(secret string, bypass bool, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: []byte(secret), bypass: bypass, logger: logger.Named("auth")}
}

// Enabled reports whether callers must identify themselves.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0 || a.bypass
}

// Authenticate parses a raw token (with or without the "Bearer " prefix) and
// returns the user ID from its sub claim.
func (a *Authenticator) Authenticate(token string) (string, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return "", ErrMissingToken
	}
	if a.bypass && token == BypassToken {
		a.logger.Debug("BYPASS_AUTH enabled", zap.String("user_id", BypassUserID))
		return BypassUserID, nil
	}
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: no JWT secret configured", ErrInvalidToken)
	}
	return ParseUserID(token, a.secret)
}

// ParseUserID validates an HMAC-signed JWT and returns its sub claim.
func ParseUserID(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// アルゴリズムがHMACであることを確認
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	// SupabaseのJWTは通常、ユーザーIDを 'sub' (Subject) クレームにUUIDとして格納します。
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", ErrMissingUserID
	}
	return userID, nil
}

// Middleware requires a valid "Authorization: Bearer <token>" header when
// authentication is enabled and stores the user ID in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format. Must be 'Bearer <token>'")
			return
		}

		userID, err := a.Authenticate(authHeader)
		if err != nil {
			a.logger.Info("AuthMiddleware: rejected request", zap.String("path", r.URL.Path), zap.Error(err))
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
