package hierarchy

import (
	"sync"
	"time"
)

// Notifier fans change events out to subscribers. Events are level-triggered:
// they say "something changed, refetch", never what changed. Handlers run on
// the publisher's goroutine and must not block; subscribers needing to do
// real work should hand the event to their own channel.
type Notifier struct {
	mu   sync.RWMutex
	subs map[int]func(ChangeEvent)
	next int
}

// NewNotifier creates a notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(ChangeEvent))}
}

// Subscribe registers a handler and returns its subscription handle.
func (n *Notifier) Subscribe(handler func(ChangeEvent)) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	n.subs[n.next] = handler
	return n.next
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (n *Notifier) Unsubscribe(handle int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, handle)
}

// Publish delivers an event to every current subscriber.
func (n *Notifier) Publish(kind EventKind, tenantID string) {
	ev := ChangeEvent{Kind: kind, TenantID: tenantID, Timestamp: time.Now()}
	n.mu.RLock()
	handlers := make([]func(ChangeEvent), 0, len(n.subs))
	for _, h := range n.subs {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
