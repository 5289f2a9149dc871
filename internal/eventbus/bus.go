// Package eventbus is a synchronous in-process publish/subscribe bus for
// build lifecycle events, with an optional NATS JetStream mirror. Grounded
// on the teacher's internal/pipeline/bus.go (Bus/Handler/Subscribe/Publish),
// rehomed from pipeline stage events to fashion's build/plan/xform events.
package eventbus

import "sync"

// Event is a domain event published during a build.
type Event interface{ Name() string }

// Handler processes an Event; return error to abort delivery to the
// remaining handlers for this event name.
type Handler func(Event) error

// Mirror optionally receives every published event alongside the
// in-process subscribers, e.g. a NATS JetStream publisher.
type Mirror interface {
	Publish(Event) error
}

// Bus is a simple synchronous pub/sub event bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	mirror      Mirror
}

// New constructs an empty bus.
func New() *Bus { return &Bus{subscribers: map[string][]Handler{}} }

// WithMirror attaches a Mirror that receives every event published after
// this call, in addition to in-process subscribers.
func (b *Bus) WithMirror(m Mirror) *Bus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mirror = m
	return b
}

// Subscribe registers a handler for a given event name.
func (b *Bus) Subscribe(event string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.subscribers[event] = append(b.subscribers[event], h)
	b.mu.Unlock()
}

// Publish delivers an event to all handlers synchronously, then to the
// mirror if one is attached. A mirror failure is not propagated: the event
// bus never lets observability block a build.
func (b *Bus) Publish(e Event) error {
	b.mu.RLock()
	hs := append([]Handler(nil), b.subscribers[e.Name()]...)
	mirror := b.mirror
	b.mu.RUnlock()

	for _, h := range hs {
		if err := h(e); err != nil {
			return err
		}
	}
	if mirror != nil {
		_ = mirror.Publish(e)
	}
	return nil
}
