package shared

import (
	"context"
	"sync"
)

// EventPublisher publishes domain events to interested subscribers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventHandler handles a published domain event
type EventHandler func(ctx context.Context, event DomainEvent) error

// InProcessEventBus is a synchronous, in-process EventPublisher.
// Handler errors are collected but do not stop delivery to other handlers.
type InProcessEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewInProcessEventBus creates a new in-process event bus
func NewInProcessEventBus() *InProcessEventBus {
	return &InProcessEventBus{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for an event type
func (b *InProcessEventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers the events to all subscribed handlers
func (b *InProcessEventBus) Publish(ctx context.Context, events ...DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var firstErr error
	for _, event := range events {
		for _, handler := range b.handlers[event.EventType()] {
			if err := handler(ctx, event); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var _ EventPublisher = (*InProcessEventBus)(nil)
