// Package events is the in-process notification bus used to tell stores that
// data they own was changed on another store's behalf.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Topic names a notification.
type Topic string

// TopicStockUpdated is published after product stock is adjusted by another store.
const TopicStockUpdated Topic = "stock-updated"

// Handler reacts to a notification. Notifications carry no payload.
type Handler func(ctx context.Context)

// Bus delivers notifications synchronously, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Topic][]subscription
	logger   *zap.Logger
}

type subscription struct {
	id int
	fn Handler
}

// NewBus constructs an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: make(map[Topic][]subscription), logger: logger}
}

// Subscribe registers fn for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[topic]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish runs every handler of topic before returning. A panicking handler is
// logged and does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, topic Topic) {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[topic]))
	copy(subs, b.handlers[topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(ctx, topic, sub.fn)
	}
}

func (b *Bus) deliver(ctx context.Context, topic Topic, fn Handler) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("event handler panicked", zap.String("topic", string(topic)), zap.Any("panic", rec))
		}
	}()
	fn(ctx)
}
