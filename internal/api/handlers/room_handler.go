package handlers

import (
	"context"
	"io"
	"strings"

	"chat_sync_service/internal/auth"
	"chat_sync_service/internal/chat/app"
	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/notification"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ImageUploader stores an image and returns its URL
type ImageUploader interface {
	UploadImage(ctx context.Context, roomID string, r io.Reader, size int64, contentType string) (string, error)
}

// RoomHandler 聊天室列表、建立聊天室與圖片訊息
type RoomHandler struct {
	directory *app.RoomDirectory
	remote    domain.RemoteStore
	perms     notification.PermissionStore
	prompter  notification.Prompter
	uploader  ImageUploader
}

// NewRoomHandler create RoomHandler, uploader may be nil when no object storage is configured
func NewRoomHandler(
	directory *app.RoomDirectory,
	remote domain.RemoteStore,
	perms notification.PermissionStore,
	prompter notification.Prompter,
	uploader ImageUploader,
) *RoomHandler {
	return &RoomHandler{
		directory: directory,
		remote:    remote,
		perms:     perms,
		prompter:  prompter,
		uploader:  uploader,
	}
}

// ListRooms refreshes and returns rooms, most recent activity first
func (h *RoomHandler) ListRooms(c *fiber.Ctx) error {
	rooms, err := h.directory.Refresh(c.UserContext())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

// CreateRoom body {name, description}. The list is not refreshed.
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	type request struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	room, err := h.directory.Create(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// UploadImage multipart field "image": uploads it, then sends an image message to room :id
func (h *RoomHandler) UploadImage(c *fiber.Ctx) error {
	if h.uploader == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "image upload not configured"})
	}
	claims, ok := middlewares.ClaimsFrom(c)
	if !ok {
		return errorJSON(c, domain.ErrNotAuthenticated)
	}
	roomID := c.Params("id")

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing image"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		logger.Log.Error("open upload", zap.String("room_id", roomID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open image"})
	}
	defer file.Close()

	ctx := c.UserContext()
	url, err := h.uploader.UploadImage(ctx, roomID, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return errorJSON(c, err)
	}

	session := auth.NewSession()
	session.SignInClaims(claims)
	gate := notification.NewGate(h.perms, claims.MemberID, h.prompter)
	if err := app.NewSendPipeline(h.remote, gate, session).SendImage(ctx, roomID, url); err != nil {
		return errorJSON(c, err)
	}

	logger.Log.Info("image message sent", zap.String("room_id", roomID), zap.String("member_id", claims.MemberID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"image_url": url})
}
