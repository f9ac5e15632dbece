// Package bus provides an in-process publish/subscribe channel between
// mutation outcomes and notification fanout. It is constructed explicitly
// and injected, never a package global, so tests can own their own instance.
package bus

import (
	"log/slog"
	"sync"

	"github.com/article-live-api/internal/domain"
)

const subscriberBuffer = 64

// Bus fans domain events out to all subscribers. Delivery is best-effort:
// a subscriber whose buffer is full misses the event rather than blocking
// the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   []chan domain.Event
	closed bool
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers and returns a new subscriber channel. The channel is
// closed by Close.
func (b *Bus) Subscribe() <-chan domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan domain.Event, subscriberBuffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers ev to every subscriber without blocking the caller.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("event bus subscriber full, dropping event", "kind", ev.Kind)
		}
	}
}

// Close closes all subscriber channels. Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
