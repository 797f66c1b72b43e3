package events

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// LogPublisher writes events to the request logger. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("routing_key", routingKey).RawJSON("payload", body).Msg("event")
	return nil
}
