// Package event publishes session activity to Kafka. Publishing is fire and
// forget from the caller's perspective: a nil publisher or a failed write
// never affects the operation that produced the event.
package event

import (
	"context"
	"log/slog"

	"github.com/avelane/storefront-session/pkg/kafka"
	"github.com/avelane/storefront-session/pkg/logger"
)

const source = "storefront-session"

// Topics for session activity.
const (
	TopicSessionLogin    = "session.login"
	TopicCartUpdated     = "cart.updated"
	TopicWishlistUpdated = "wishlist.updated"
)

// Producer is the slice of the Kafka producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Publisher emits session activity events. The zero value and a nil pointer
// are both safe no-ops.
type Publisher struct {
	producer Producer
	log      *slog.Logger
}

// NewPublisher creates an activity publisher. producer may be nil when the
// deployment runs without Kafka.
func NewPublisher(producer Producer, log *slog.Logger) *Publisher {
	return &Publisher{producer: producer, log: log}
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) {
	if p == nil || p.producer == nil {
		return
	}

	if aggregateID == "" {
		aggregateID = "guest"
	}

	ev, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, data)
	if err != nil {
		logger.WithContext(ctx, p.log).Warn("build activity event", slog.String("error", err.Error()))
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := p.producer.Publish(ctx, topic, ev); err != nil {
		logger.WithContext(ctx, p.log).Warn("publish activity event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}

// LoginSucceeded records a completed sign in.
func (p *Publisher) LoginSucceeded(ctx context.Context, userID string) {
	p.publish(ctx, TopicSessionLogin, "session.login.succeeded", userID, "session", map[string]string{
		"user_id": userID,
	})
}

// CartUpdated records a cart mutation and the resulting item count.
func (p *Publisher) CartUpdated(ctx context.Context, userID string, itemCount int) {
	p.publish(ctx, TopicCartUpdated, "cart.updated", userID, "cart", map[string]any{
		"user_id":    userID,
		"item_count": itemCount,
	})
}

// WishlistUpdated records a wishlist mutation and the resulting size.
func (p *Publisher) WishlistUpdated(ctx context.Context, userID string, size int) {
	p.publish(ctx, TopicWishlistUpdated, "wishlist.updated", userID, "wishlist", map[string]any{
		"user_id": userID,
		"size":    size,
	})
}
