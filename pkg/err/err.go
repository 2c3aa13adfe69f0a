package errprocess

import (
	"fmt"

	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// Wrap logs msg with the cause and returns kind wrapping cause, so callers can
// match both with errors.Is. A nil cause yields kind itself.
func Wrap(kind error, msg string, cause error, fields ...zap.Field) error {
	if cause == nil {
		logger.Log.Error(msg, append(fields, zap.String("kind", kind.Error()))...)
		return fmt.Errorf("%w: %s", kind, msg)
	}
	logger.Log.Error(msg, append(fields, zap.String("kind", kind.Error()), zap.Error(cause))...)
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}
