package app

import (
	"errors"
	"fmt"

	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// wrapKind logs and tags err with kind unless a backend already did
func wrapKind(kind error, msg string, err error, fields ...zap.Field) error {
	if errors.Is(err, kind) {
		logger.Log.Error(msg, append(fields, zap.Error(err))...)
		return fmt.Errorf("%s: %w", msg, err)
	}
	return errprocess.Wrap(kind, msg, err, fields...)
}

// wrapKindQuiet tags err with kind without logging
func wrapKindQuiet(kind error, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
