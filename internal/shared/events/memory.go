package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process EventBus. Handlers run synchronously inside Publish.
// It backs development runs without KurrentDB and the service tests.
type MemoryBus struct {
	mu        sync.RWMutex
	published []Event
	subs      []memorySubscription
}

type memorySubscription struct {
	pattern string
	handler Handler
}

var _ EventBus = (*MemoryBus)(nil)

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	b.published = append(b.published, event)
	subs := make([]memorySubscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if !matchesPattern(event.Type, s.pattern) {
			continue
		}
		if err := s.handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, pattern string, _ string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, memorySubscription{pattern: pattern, handler: handler})
	return nil
}

// Published returns a copy of every event published so far.
func (b *MemoryBus) Published() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.published))
	copy(out, b.published)
	return out
}

// Types returns the type of every published event, in order.
func (b *MemoryBus) Types() []string {
	events := b.Published()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func (b *MemoryBus) Close() {}

func (b *MemoryBus) Health() error { return nil }
