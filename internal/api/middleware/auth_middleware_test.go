package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
}

func TestParseUserID(t *testing.T) {
	userID, err := ParseUserID(signToken(t, testSecret, validClaims("user-1")), []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = ParseUserID(signToken(t, "other-secret", validClaims("user-1")), []byte(testSecret))
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()}
	_, err = ParseUserID(signToken(t, testSecret, expired), []byte(testSecret))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseUserID(signToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}), []byte(testSecret))
	assert.ErrorIs(t, err, ErrMissingUserID)

	_, err = ParseUserID("not-a-jwt", []byte(testSecret))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_Authenticate(t *testing.T) {
	a := NewAuthenticator(testSecret, false, nil)
	assert.True(t, a.Enabled())

	userID, err := a.Authenticate("Bearer " + signToken(t, testSecret, validClaims("user-2")))
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)

	_, err = a.Authenticate("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = a.Authenticate(BypassToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "bypass token rejected unless bypass is on")

	bypass := NewAuthenticator("", true, nil)
	assert.True(t, bypass.Enabled())
	userID, err = bypass.Authenticate(BypassToken)
	require.NoError(t, err)
	assert.Equal(t, BypassUserID, userID)

	assert.False(t, NewAuthenticator("", false, nil).Enabled())
}

func TestAuthenticator_Middleware(t *testing.T) {
	var gotUserID string
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewAuthenticator(testSecret, false, nil).Middleware(next)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, validClaims("user-3")), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.True(t, gotOK)
	assert.Equal(t, "user-3", gotUserID)
}

func TestAuthenticator_MiddlewareDisabled(t *testing.T) {
	called := false
	handler := NewAuthenticator("", false, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := GetUserIDFromContext(r.Context())
		assert.False(t, ok)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/ws/room", nil)
	assert.True(t, check(req), "no Origin header")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.True(t, OriginChecker([]string{"*"})(req))
}
