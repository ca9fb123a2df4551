// Package event delivers domain events, mainly committed log entries, to
// in-process subscribers such as the message broker forwarder.
package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/shared"
)

// DefaultQueueSize is the number of events buffered while the bus is running
const DefaultQueueSize = 256

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus dispatches events to the handlers registered for their
// type. Until Start is called, and after Stop, Publish dispatches
// synchronously. While running, events are queued and dispatched by a
// background worker in publish order, so slow handlers do not hold up
// requests. A full queue falls back to synchronous dispatch.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger

	mu      sync.RWMutex
	queue   chan envelope
	done    chan struct{}
	size    int
	running bool
}

// NewInMemoryEventBus creates a stopped event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
		size:     DefaultQueueSize,
	}
}

// WithQueueSize sets the queue size used by Start
func (b *InMemoryEventBus) WithQueueSize(n int) *InMemoryEventBus {
	if n > 0 {
		b.size = n
	}
	return b
}

// Publish hands the events to their handlers. Handler failures are logged
// and never returned.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var direct []shared.DomainEvent
	b.mu.RLock()
	for _, event := range events {
		if b.running {
			// the request context may be cancelled before the worker runs
			select {
			case b.queue <- envelope{ctx: context.WithoutCancel(ctx), event: event}:
				continue
			default:
				b.logger.Warn("Event queue full, dispatching synchronously",
					zap.String("event_type", event.EventType()))
			}
		}
		direct = append(direct, event)
	}
	b.mu.RUnlock()

	for _, event := range direct {
		b.dispatch(ctx, event)
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for the types the handler
// reports when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start starts the background worker
func (b *InMemoryEventBus) Start(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	b.queue = make(chan envelope, b.size)
	b.done = make(chan struct{})
	b.running = true
	go b.work(b.queue, b.done)
	b.logger.Info("Event bus started", zap.Int("queue_size", b.size))
	return nil
}

// Stop stops accepting queued events and waits until the queue is drained
// or ctx ends
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.queue)
	done := b.done
	b.mu.Unlock()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) work(queue <-chan envelope, done chan<- struct{}) {
	defer close(done)
	for env := range queue {
		b.dispatch(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.safeHandle(ctx, handler, event); err != nil {
			b.logger.Error("Event handler failed",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

func (b *InMemoryEventBus) safeHandle(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
