// Package bus provides the in-process publish/subscribe fan-out used to
// decouple the import pipeline from its observers. One Bus instance is
// constructed at startup and handed to every producer and subscriber.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind identifies an event type.
type Kind string

const (
	ImportCompleted Kind = "import.completed"
	ImportFailed    Kind = "import.failed"
	ImportSkipped   Kind = "import.skipped"
)

// Event is one published occurrence. Payload is typically a core.Outcome.
// Events are not persisted.
type Event struct {
	Kind    Kind
	At      time.Time
	Payload any
}

// Handler is a subscriber callback. Handlers run on their own goroutine
// per publish; a panic inside one handler is recovered and logged and
// never reaches the publisher or other handlers.
type Handler func(Event)

// Bus is an in-process event bus keyed by event kind.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	wg       sync.WaitGroup
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers a handler for a kind. Handlers for the same kind
// are kept in registration order, but no execution ordering between them
// is guaranteed.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish schedules every handler registered for the event's kind on its
// own goroutine and returns without waiting for any of them. A slow or
// failing subscriber cannot block the publisher or its peers.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[e.Kind]))
	copy(handlers, b.handlers[e.Kind])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event handler panicked",
						"kind", string(e.Kind),
						"panic", r)
				}
			}()
			h(e)
		}(h)
	}
}

// Drain blocks until all in-flight handlers complete or ctx expires.
// Used for graceful shutdown and by tests that need delivery confirmed.
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
