package services

import (
	"github.com/google/uuid"

	"boldlyAPI/internal/realtime"
	"boldlyAPI/middleware"
)

// Notifier fans an event out to a user: the live presence connection when one
// exists, otherwise a device push via the dispatcher. Both paths are
// fire-and-forget; no state change is rolled back on delivery failure.
type Notifier struct {
	registry   *realtime.Registry
	dispatcher *PushDispatcher
}

func NewNotifier(registry *realtime.Registry, dispatcher *PushDispatcher) *Notifier {
	return &Notifier{
		registry:   registry,
		dispatcher: dispatcher,
	}
}

func (n *Notifier) Notify(userID uuid.UUID, event string, data any, pushTitle, pushBody string) {
	delivered := n.registry.Push(userID.String(), event, data)
	middleware.CountRealtimePush(event, delivered)

	if !delivered && n.dispatcher != nil && pushTitle != "" {
		n.dispatcher.Enqueue(userID, pushTitle, pushBody, map[string]any{"event": event})
	}
}
