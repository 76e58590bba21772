// Package events provides an in-process publish-subscribe bus for engine
// lifecycle events.
package events

import (
	"log/slog"
	"sync"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// Handler is a function that handles events.
type Handler func(event shared.Event)

// Bus fans engine events out to channel subscribers and handlers. Delivery is
// non-blocking: a subscriber with a full buffer misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[shared.EventType][]chan shared.Event
	handlers    map[shared.EventType][]Handler
	bufferSize  int
	closed      bool
}

// Option configures the Bus.
type Option func(*Bus)

// WithBufferSize sets the subscriber channel buffer size.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		b.bufferSize = size
	}
}

// New creates a new Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[shared.EventType][]chan shared.Event),
		handlers:    make(map[shared.EventType][]Handler),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe creates a channel receiving events of the given type.
func (b *Bus) Subscribe(eventType shared.EventType) <-chan shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan shared.Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a channel receiving every event.
func (b *Bus) SubscribeAll() <-chan shared.Event {
	return b.Subscribe("*")
}

// On registers a handler for events of the given type. Handlers run
// synchronously inside Emit; keep them fast.
func (b *Bus) On(eventType shared.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event to all matching subscribers and handlers.
func (b *Bus) Emit(event shared.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = shared.Now()
	}

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
		}
	}
	for _, ch := range b.subscribers["*"] {
		select {
		case ch <- event:
		default:
		}
	}

	for _, handler := range b.handlers[event.Type] {
		handler(event)
	}
	for _, handler := range b.handlers["*"] {
		handler(event)
	}
}

// Close closes all subscriber channels and stops the bus.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = make(map[shared.EventType][]chan shared.Event)
	b.handlers = make(map[shared.EventType][]Handler)
}

// ============================================================================
// Helper Emitters
// ============================================================================

// EmitRankCompleted emits a rank:completed event.
func (b *Bus) EmitRankCompleted(userID string, rankedCount, gatedCount int) {
	b.Emit(shared.Event{
		Type:   shared.EventRankCompleted,
		UserID: userID,
		Payload: map[string]interface{}{
			"ranked_count": rankedCount,
			"gated_count":  gatedCount,
		},
	})
}

// EmitGenomeUpdated emits a genome:updated event.
func (b *Bus) EmitGenomeUpdated(userID string, confidence float64, outcomes int) {
	b.Emit(shared.Event{
		Type:   shared.EventGenomeUpdated,
		UserID: userID,
		Payload: map[string]interface{}{
			"confidence": confidence,
			"outcomes":   outcomes,
		},
	})
}

// EmitGenomeShock emits a genome:shock event.
func (b *Bus) EmitGenomeShock(userID string, shock shared.ShockEvent) {
	b.Emit(shared.Event{
		Type:   shared.EventGenomeShock,
		UserID: userID,
		Payload: map[string]interface{}{
			"reason": shock.Reason,
			"before": shock.Before,
			"after":  shock.After,
		},
	})
}

// EmitMutationGenerated emits a mutation:generated event.
func (b *Bus) EmitMutationGenerated(userID string, generated int, source map[string]int) {
	b.Emit(shared.Event{
		Type:   shared.EventMutationGenerated,
		UserID: userID,
		Payload: map[string]interface{}{
			"generated": generated,
			"by_source": source,
		},
	})
}

// LogSink returns a handler that logs every event it receives. The serve
// command wires it to SubscribeAll via On("*").
func LogSink(logger *slog.Logger) Handler {
	return func(event shared.Event) {
		logger.Info("engine event",
			"type", string(event.Type),
			"user_id", event.UserID,
			"payload", event.Payload)
	}
}
