package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/fabrikhq/modulus/internal/shared/domain"
)

// InProcessEventBus is an in-memory event bus for local mode (no RabbitMQ).
// Events are delivered synchronously to registered consumers.
type InProcessEventBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewInProcessEventBus creates a new in-process event bus.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{
		registry: NewConsumerRegistry(logger),
		logger:   logger,
	}
}

// RegisterConsumer registers an event consumer.
func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish sends an event to the bus, synchronously dispatching to all
// registered consumers. Implements the Publisher interface so the outbox
// processor can target the in-process bus in local mode.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := decodeConsumedEvent(routingKey, payload)

	start := time.Now()
	err := b.registry.Dispatch(ctx, event)
	duration := time.Since(start)

	if err != nil {
		b.logger.Error("event dispatch failed",
			"routing_key", routingKey,
			"event_id", event.EventID,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		// Local mode logs the failure without failing the publish.
		return nil
	}

	b.logger.Debug("event dispatched",
		"routing_key", routingKey,
		"event_id", event.EventID,
		"duration_ms", duration.Milliseconds(),
	)

	return nil
}

// PublishDomainEvent marshals a domain event and dispatches it.
func (b *InProcessEventBus) PublishDomainEvent(ctx context.Context, event domain.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.Publish(ctx, event.RoutingKey(), payload)
}

// Close is a no-op for in-process bus.
func (b *InProcessEventBus) Close() error {
	return nil
}

// GetRegistry returns the underlying consumer registry.
func (b *InProcessEventBus) GetRegistry() *ConsumerRegistry {
	return b.registry
}

// Start blocks until the context is cancelled; dispatch itself is synchronous.
func (b *InProcessEventBus) Start(ctx context.Context) error {
	b.logger.Info("in-process event bus started (synchronous mode)")
	<-ctx.Done()
	return ctx.Err()
}
