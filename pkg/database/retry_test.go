package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat_sync_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	refused := errors.New("connection refused")

	t.Run("succeeds on a later attempt", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, "mongo", 3, time.Millisecond, func(context.Context) error {
			calls++
			if calls < 3 {
				return refused
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after count retries", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, "postgres", 2, time.Millisecond, func(context.Context) error {
			calls++
			return refused
		})
		assert.ErrorIs(t, err, refused)
		assert.Equal(t, 3, calls)
	})

	t.Run("zero retries still tries once", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, "minio", 0, time.Hour, func(context.Context) error {
			calls++
			return refused
		})
		assert.ErrorIs(t, err, refused)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		start := time.Now()
		err := withRetry(cctx, "mongo", 5, time.Hour, func(context.Context) error {
			calls++
			cancel()
			return refused
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
		assert.Less(t, time.Since(start), time.Minute)
	})
}
