package ports

import "context"

// EventPublisher emits integration events to a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
