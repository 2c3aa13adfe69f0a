package database

import (
	"context"
	"fmt"
	"time"

	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// withRetry calls connect up to count+1 times, waiting interval between
// attempts. Cancelling ctx ends the wait early.
func withRetry(ctx context.Context, name string, count int, interval time.Duration, connect func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = connect(ctx); err == nil {
			logger.Log.Info(name+" connected", zap.Int("attempt", attempt))
			return nil
		}
		logger.Log.Warn(name+" connect failed",
			zap.Int("attempt", attempt),
			zap.Int("retry_count", count),
			zap.Error(err),
		)
		if attempt > count {
			return fmt.Errorf("%s: connect failed after %d attempts: %w", name, attempt, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w, last error: %v", name, ctx.Err(), err)
		case <-time.After(interval):
		}
	}
}
