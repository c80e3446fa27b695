package testsupport

import (
	"context"
	"sync"

	"peiyin/internal/notifications"
)

// Notification is one recorded Publish call.
type Notification struct {
	Event   notifications.Event
	Payload notifications.Payload
}

// Notifier records published events in memory.
type Notifier struct {
	mu     sync.Mutex
	events []Notification
}

// Publish implements notifications.Service.
func (n *Notifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Notification{Event: event, Payload: payload})
	return nil
}

// Events returns a copy of everything published so far.
func (n *Notifier) Events() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.events...)
}
