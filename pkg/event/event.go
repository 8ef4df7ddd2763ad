// Package event is the in-process publish/subscribe bus. The outbox relay
// fires every relayed event here; listeners for the mail job and the admin
// live feed subscribe by topic.
package event

import (
	"context"
	"sync"

	"github.com/naturelovers/storefront/pkg/logger"
)

// Handler receives one event payload. A returned error is logged; it does
// not stop other handlers.
type Handler func(ctx context.Context, payload interface{}) error

// Bus dispatches payloads to the handlers registered for a topic. The zero
// value is not usable; call New.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func New() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers h for topic.
func (b *Bus) Listen(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *Bus) snapshot(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[topic]...)
}

// Fire runs every handler for topic in registration order and returns the
// first error.
func (b *Bus) Fire(ctx context.Context, topic string, payload interface{}) error {
	var first error
	for _, h := range b.snapshot(topic) {
		if err := h(ctx, payload); err != nil {
			logger.WithCtx(ctx).Error("event: handler failed", "topic", topic, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// FireAsync runs each handler on its own goroutine and returns immediately.
func (b *Bus) FireAsync(ctx context.Context, topic string, payload interface{}) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range b.snapshot(topic) {
		go func(h Handler) {
			if err := h(ctx, payload); err != nil {
				logger.WithCtx(ctx).Error("event: async handler failed", "topic", topic, "error", err)
			}
		}(h)
	}
}

// Topics lists the topics with at least one handler.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.handlers))
	for t := range b.handlers {
		out = append(out, t)
	}
	return out
}
