// Package service holds the process-wide event bus that links the map engine
// to its viewers and to viewport input.
package service

import "sync"

// Topic classifies an event.
type Topic string

const (
	// TopicFrame is published after the engine rebuilt its layer stack.
	TopicFrame Topic = "frame"
	// TopicViewport carries a viewport change reported by a viewer.
	TopicViewport Topic = "viewport"
	// TopicDestroyed is published once when the engine is torn down.
	TopicDestroyed Topic = "destroyed"
)

// Viewport is the camera position reported by a viewer.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Event is one bus message.
type Event struct {
	Topic    Topic
	Frame    uint64   // frame sequence for TopicFrame
	Viewport Viewport // for TopicViewport
	Source   string   // publisher, e.g. a viewer session id
}

// EventBus is a simple fan-out pub/sub.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown channels
// are ignored.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Subscribers returns the current subscriber count.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
