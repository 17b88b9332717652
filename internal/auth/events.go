package auth

import (
	"sync"

	"github.com/google/uuid"
)

// SessionEventType names a change in a user's authentication state.
type SessionEventType string

const (
	SessionSignedIn       SessionEventType = "signed_in"
	SessionSignedOut      SessionEventType = "signed_out"
	SessionTokenRefreshed SessionEventType = "token_refreshed"
)

// SessionEvent is delivered to OnSessionChange listeners.
type SessionEvent struct {
	Type   SessionEventType
	UserID uuid.UUID
}

// Subscription is returned by OnSessionChange. Unsubscribe is idempotent.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

type sessionHub struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[uint64]func(SessionEvent)
}

func newSessionHub() *sessionHub {
	return &sessionHub{listeners: make(map[uint64]func(SessionEvent))}
}

func (h *sessionHub) subscribe(fn func(SessionEvent)) *Subscription {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	h.mu.Unlock()

	return &Subscription{cancel: func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}}
}

// publish calls listeners synchronously, outside the lock so a listener may
// unsubscribe itself.
func (h *sessionHub) publish(event SessionEvent) {
	h.mu.RLock()
	listeners := make([]func(SessionEvent), 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}
