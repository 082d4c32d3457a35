package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2/jwt"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/realtime"
	"boldlyAPI/internal/types/user"
	"boldlyAPI/middleware"
	"boldlyAPI/services"
)

type AuthHandler struct {
	userService *services.UserService
	registry    *realtime.Registry
}

func NewAuthHandler(userService *services.UserService, registry *realtime.Registry) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		registry:    registry,
	}
}

// Login verifies the bearer token itself because the route sits outside the
// protected subrouter. The user record is created on first login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	authHeader := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || token == authHeader {
		respondWithError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		log.Printf("Login: token verification failed: %v", err)
		respondWithError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req user.CreateUserRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	req.ClerkID = claims.Subject

	u, err := h.userService.Login(ctx, &req)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

// Logout is idempotent. If the caller has a live presence connection it is
// dropped; a missing session is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if clerkID, ok := middleware.GetClerkID(ctx); ok {
		u, err := h.userService.GetUserByClerkID(ctx, clerkID)
		if err == nil {
			if client, found := h.registry.Lookup(u.ID.String()); found {
				h.registry.Unregister(u.ID.String(), client)
			}
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Whoami returns the session's user, or an empty object when unauthenticated.
// It never fails.
func (h *AuthHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithJSON(w, http.StatusOK, map[string]string{})
		return
	}

	u, err := h.userService.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		respondWithJSON(w, http.StatusOK, map[string]string{})
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrPrecondition):
		return http.StatusPreconditionFailed
	case errors.Is(err, apperr.ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
