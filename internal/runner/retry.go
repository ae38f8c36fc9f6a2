package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// withRetry runs fn up to maxRetries+1 times with doubling backoff,
// logging each failed attempt. Cancellation wins over the backoff timer.
func withRetry(ctx context.Context, log *zap.Logger, maxRetries int, baseDelay time.Duration, op string, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		log.Warn("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return fmt.Errorf("%s: %w", op, err)
}
