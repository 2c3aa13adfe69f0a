package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"chat_sync_service/internal/api/handlers"
	"chat_sync_service/internal/chat/app"
	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/internal/notification"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

type fakeUploader struct {
	roomID      string
	contentType string
	body        []byte
}

func (f *fakeUploader) UploadImage(_ context.Context, roomID string, r io.Reader, _ int64, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.roomID, f.contentType, f.body = roomID, contentType, b
	return "https://cdn/rooms/" + roomID + "/images/1", nil
}

func newBridge(t *testing.T, autoGrant bool) (*fiber.App, *repository.MemoryRemoteStore, *fakeUploader, string) {
	t.Helper()
	store := repository.NewMemoryRemoteStore()
	perms := notification.NewMemoryPermissionStore()
	prompter := notification.StaticPrompter(autoGrant)
	uploader := &fakeUploader{}

	r := fiber.New()
	RegisterRoutes(r,
		handlers.NewRoomHandler(app.NewRoomDirectory(store), store, perms, prompter, uploader),
		app.NewChatWebsocketHandler(store, perms, prompter, app.DefaultWindowSize),
	)

	tk, err := token.GenerateJWT("m-1", "Alice", "", "test")
	require.NoError(t, err)
	return r, store, uploader, tk
}

func TestRoutes_Public(t *testing.T) {
	r, _, _, _ := newBridge(t, true)

	resp, err := r.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = r.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = r.Test(httptest.NewRequest("GET", "/rooms", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = r.Test(httptest.NewRequest("POST", "/debug?status=maybe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRoutes_CreateThenListRooms(t *testing.T) {
	r, store, _, tk := newBridge(t, true)
	ctx := context.Background()

	older, err := store.Append(ctx, domain.RoomsPath, map[string]interface{}{"name": "older", "latestMessageTimestamp": 10})
	require.NoError(t, err)
	newer, err := store.Append(ctx, domain.RoomsPath, map[string]interface{}{"name": "newer", "latestMessageTimestamp": 20})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/rooms?auth="+tk, strings.NewReader(`{"name":"fresh","description":"no messages yet"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created domain.ChatRoom
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "fresh", created.Name)

	resp, err = r.Test(httptest.NewRequest("GET", "/rooms?auth="+tk, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Rooms []domain.ChatRoom `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	ids := make([]string, 0, len(body.Rooms))
	for _, room := range body.Rooms {
		ids = append(ids, room.ID)
	}
	assert.Equal(t, []string{newer, older, created.ID}, ids)
}

func TestRoutes_CreateRoomValidation(t *testing.T) {
	r, _, _, tk := newBridge(t, true)

	req := httptest.NewRequest("POST", "/rooms?auth="+tk, strings.NewReader(`{"name":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func multipartImage(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestRoutes_UploadImage(t *testing.T) {
	r, store, uploader, tk := newBridge(t, true)
	ctx := context.Background()

	body, contentType := multipartImage(t, "cat.png", []byte("png-bytes"))
	req := httptest.NewRequest("POST", "/rooms/r1/images?auth="+tk, body)
	req.Header.Set("Content-Type", contentType)
	resp, err := r.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	assert.Equal(t, "r1", uploader.roomID)
	assert.Equal(t, "image/png", uploader.contentType)
	assert.Equal(t, []byte("png-bytes"), uploader.body)

	recs, err := store.ReadRange(ctx, domain.MessagesPath("r1"), domain.FieldDate, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	msg, err := domain.MessageFromRecord(recs[0])
	require.NoError(t, err)
	assert.Equal(t, domain.ImagePlaceholderText, msg.Text)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, "https://cdn/rooms/r1/images/1", msg.ImageMessageURL)
	assert.Empty(t, msg.SenderPhotoURL)
}

func TestRoutes_UploadImagePermissionDenied(t *testing.T) {
	r, store, _, tk := newBridge(t, false)

	body, contentType := multipartImage(t, "cat.png", []byte("png-bytes"))
	req := httptest.NewRequest("POST", "/rooms/r1/images?auth="+tk, body)
	req.Header.Set("Content-Type", contentType)
	resp, err := r.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var errBody map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, "notification_permission_denied", errBody["code"])

	doc, err := store.ReadPath(context.Background(), domain.MessagesPath("r1"))
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestRoutes_WebsocketRequiresUpgrade(t *testing.T) {
	r, _, _, tk := newBridge(t, true)

	resp, err := r.Test(httptest.NewRequest("GET", "/ws?auth="+tk, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
