package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestClerkAuthMiddlewareMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/challenges", nil)
	rr := httptest.NewRecorder()

	ClerkAuthMiddleware(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Not logged in")
}

func TestClerkAuthMiddlewareMalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/challenges", nil)
	req.Header.Set("Authorization", "Token abc123")
	rr := httptest.NewRecorder()

	ClerkAuthMiddleware(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClerkAuthMiddlewareInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/challenges", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()

	ClerkAuthMiddleware(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestOptionalAuthMiddlewarePassesThroughWithoutToken(t *testing.T) {
	var sawClerkID bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawClerkID = GetClerkID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/whoami", nil)
	rr := httptest.NewRecorder()

	OptionalAuthMiddleware(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, sawClerkID)
}

func TestGetClerkIDMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetClerkID(req.Context())
	assert.False(t, ok)
}
