package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// Dispatch runs the handler in a new goroutine on a detached context.
// The request context's logger is carried over; panics and errors are
// logged instead of propagating.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logging.From(bgCtx).Error("async handler failed", "error", goerr.Unwrap(err))
		}
	}()
}
