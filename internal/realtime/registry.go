package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Event is the envelope pushed to a live connection.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Registry maps a logged-in user to their live connection. It is an injected
// dependency of the services that push events, not a package-level singleton.
// At most one connection is tracked per user; a reconnect replaces the old one.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// Register binds a connection to a user id, last write wins. The previous
// connection for the same user, if any, is closed.
func (r *Registry) Register(userID string, conn *websocket.Conn) *Client {
	c := &Client{
		UserID:   userID,
		conn:     conn,
		send:     make(chan []byte, 64),
		registry: r,
	}

	r.mu.Lock()
	old := r.clients[userID]
	r.clients[userID] = c
	r.mu.Unlock()

	if old != nil {
		old.close()
	}

	log.Printf("Registry: user %s connected", userID)
	return c
}

func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

// Unregister removes the binding only if it still points at c, so a stale
// ReadPump exit cannot evict a newer connection.
func (r *Registry) Unregister(userID string, c *Client) {
	r.mu.Lock()
	if cur, ok := r.clients[userID]; ok && cur == c {
		delete(r.clients, userID)
	}
	r.mu.Unlock()
	c.close()
}

// Push delivers an event to the user's live connection if there is one.
// Delivery is fire-and-forget: a full buffer or a missing connection is not an
// error, the user will see the new state on the next fetch.
func (r *Registry) Push(userID string, event string, data any) bool {
	c, ok := r.Lookup(userID)
	if !ok {
		return false
	}

	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		log.Printf("Registry: failed to marshal %s event: %v", event, err)
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		log.Printf("Registry: dropping %s event for user %s, send buffer full", event, userID)
		return false
	}
}

// Client is the middleman between one websocket connection and the registry.
type Client struct {
	UserID   string
	conn     *websocket.Conn
	send     chan []byte
	registry *Registry

	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// ReadPump drains client frames until the connection drops, then unregisters.
// Incoming frames are ignored; the channel is server-to-client only.
func (c *Client) ReadPump() {
	defer func() {
		c.registry.Unregister(c.UserID, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump forwards queued events to the peer and keeps the connection alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
