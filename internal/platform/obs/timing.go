package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores the request id and a child logger carrying it on the context.
func WithRequestID(ctx context.Context, logger zerolog.Logger, reqID string) context.Context {
	ctx = context.WithValue(ctx, RequestIDKey, reqID)
	l := logger.With().Str("req_id", reqID).Logger()
	return l.WithContext(ctx)
}

// Time logs the duration of op when the returned func is deferred with the operation's error.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			logger.Warn().Str("op", name).Dur("dur", dur).Err(*errp).Msg("operation failed")
			return
		}
		logger.Debug().Str("op", name).Dur("dur", dur).Msg("operation done")
	}
}
