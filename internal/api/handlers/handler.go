package handlers

import (
	"errors"
	"strconv"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ConnectCheck check bridge is up
func ConnectCheck(c *fiber.Ctx) error {
	return c.SendString("chat sync start!")
}

// DebugLogFlag toggle debug log flag, ?status=true|false
func DebugLogFlag(c *fiber.Ctx) error {
	statusStr := c.Query("status")
	status, err := strconv.ParseBool(statusStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status"})
	}

	logger.Log.Info("debug", zap.Bool("status", status))
	logger.Log.SetDebugMode(status)
	return c.JSON(fiber.Map{"debug": status})
}

// errorStatus HTTP status for a core error
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrNoRoom):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrNotificationPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrFetchFailed),
		errors.Is(err, domain.ErrPermissionUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrStoreWriteFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
		"code":  domain.ErrorCode(err),
	})
}
