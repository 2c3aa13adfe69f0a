package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// ObjectStore 上傳與取得物件 URL，database.MinIOClient 即為實作
type ObjectStore interface {
	PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// MinIOUploader stores chat images and returns a URL clients can load
type MinIOUploader struct {
	store     ObjectStore
	publicURL string
	expiry    time.Duration
	now       func() time.Time
}

// NewMinIOUploader create MinIOUploader. With publicURL set, image URLs are
// publicURL/objectName; otherwise a presigned URL valid for expiry is used.
func NewMinIOUploader(store ObjectStore, publicURL string, expiry time.Duration) *MinIOUploader {
	return &MinIOUploader{
		store:     store,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		expiry:    expiry,
		now:       time.Now,
	}
}

// ObjectName rooms/{roomID}/images/{unix ms}
func ObjectName(roomID string, at time.Time) string {
	return fmt.Sprintf("rooms/%s/images/%d", roomID, at.UnixMilli())
}

// UploadImage stores the image for roomID and returns its URL
func (u *MinIOUploader) UploadImage(ctx context.Context, roomID string, r io.Reader, size int64, contentType string) (string, error) {
	if roomID == "" {
		return "", domain.ErrNoRoom
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: content type %q is not an image", domain.ErrStoreWriteFailed, contentType)
	}

	name := ObjectName(roomID, u.now())
	if err := u.store.PutObject(ctx, name, r, size, contentType); err != nil {
		logger.Log.Error("upload image", zap.String("room_id", roomID), zap.String("object", name), zap.Error(err))
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWriteFailed, err)
	}

	if u.publicURL != "" {
		return u.publicURL + "/" + name, nil
	}

	url, err := u.store.PresignGetURL(ctx, name, u.expiry)
	if err != nil {
		logger.Log.Error("presign image", zap.String("object", name), zap.Error(err))
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWriteFailed, err)
	}
	return url, nil
}
