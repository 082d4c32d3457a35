package handlers

import (
	"log"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gorilla/websocket"

	"boldlyAPI/internal/realtime"
	"boldlyAPI/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type RealtimeHandler struct {
	registry    *realtime.Registry
	userService *services.UserService
}

func NewRealtimeHandler(registry *realtime.Registry, userService *services.UserService) *RealtimeHandler {
	return &RealtimeHandler{
		registry:    registry,
		userService: userService,
	}
}

// InitSocket upgrades the connection and binds it to the authenticated user.
// Browsers cannot set headers on websocket requests, so the Clerk token comes
// as a query parameter. A reconnect replaces any previous connection.
func (h *RealtimeHandler) InitSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{Token: token})
	if err != nil {
		log.Printf("InitSocket: token verification failed: %v", err)
		respondWithError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	u, err := h.userService.GetUserByClerkID(r.Context(), claims.Subject)
	if err != nil {
		respondWithError(w, statusForError(err), "User not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("InitSocket: upgrade failed: %v", err)
		return
	}

	client := h.registry.Register(u.ID.String(), conn)
	go client.WritePump()
	go client.ReadPump()
}
