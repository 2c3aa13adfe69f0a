package app

import (
	"context"
	"strings"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/metrics"

	"go.uber.org/zap"
)

// SendPipeline 發送訊息：檢查前置條件、寫入訊息、更新聊天室最新時間。
// 寫入的訊息不回傳，送出者經由 live subscription 看到自己的訊息。
type SendPipeline struct {
	remote   domain.RemoteStore
	gate     domain.NotificationGate
	identity domain.IdentityProvider
	now      func() time.Time
}

// NewSendPipeline create SendPipeline
func NewSendPipeline(remote domain.RemoteStore, gate domain.NotificationGate, identity domain.IdentityProvider) *SendPipeline {
	return &SendPipeline{
		remote:   remote,
		gate:     gate,
		identity: identity,
		now:      time.Now,
	}
}

// Send writes a message to roomID. Preconditions are checked in order and
// nothing is written when one fails:
//  1. text is not blank, or an image is attached (ErrEmptyMessage)
//  2. notification permission is granted, asking once (ErrNotificationPermissionDenied,
//     or ErrPermissionUnavailable when the decision cannot be read or stored)
//  3. a user with a display name is signed in (ErrNotAuthenticated)
//
// text is written as given, blank text included when an image is attached.
// The message and the room's latestMessageTimestamp share one timestamp. If
// the timestamp update fails the message is already stored; that gap is
// reported, not retried.
func (p *SendPipeline) Send(ctx context.Context, roomID, text, senderPhotoURL, imageMessageURL string) error {
	err := p.send(ctx, roomID, text, senderPhotoURL, imageMessageURL)
	result := "ok"
	if err != nil {
		result = domain.ErrorCode(err)
	}
	metrics.MessagesSent.WithLabelValues(result).Inc()
	return err
}

// SendImage sends an image message with the placeholder text and no sender photo
func (p *SendPipeline) SendImage(ctx context.Context, roomID, imageURL string) error {
	return p.Send(ctx, roomID, domain.ImagePlaceholderText, "", imageURL)
}

func (p *SendPipeline) send(ctx context.Context, roomID, text, senderPhotoURL, imageMessageURL string) error {
	if strings.TrimSpace(text) == "" && imageMessageURL == "" {
		return domain.ErrEmptyMessage
	}

	// 沒有通知權限就不送出，此耦合待產品確認
	granted, err := p.gate.HasPermission(ctx)
	if err == nil && !granted {
		granted, err = p.gate.RequestPermission(ctx)
	}
	if err != nil {
		logger.Log.Warn("send refused, notification permission unavailable", zap.String("room_id", roomID), zap.Error(err))
		return wrapKindQuiet(domain.ErrPermissionUnavailable, err)
	}
	if !granted {
		logger.Log.Warn("send refused, notification permission denied", zap.String("room_id", roomID))
		return domain.ErrNotificationPermissionDenied
	}

	user, ok := p.identity.CurrentUser()
	if !ok || user == nil || user.DisplayName == "" {
		return domain.ErrNotAuthenticated
	}

	date := p.now().UnixMilli()
	msg := domain.Message{
		SenderName:      user.DisplayName,
		Text:            text,
		Date:            date,
		SenderPhotoURL:  senderPhotoURL,
		ImageMessageURL: imageMessageURL,
	}

	id, err := p.remote.Append(ctx, domain.MessagesPath(roomID), msg.Fields())
	if err != nil {
		return wrapKind(domain.ErrStoreWriteFailed, "append message", err, zap.String("room_id", roomID))
	}

	err = p.remote.Update(ctx, domain.RoomPath(roomID), map[string]interface{}{
		domain.FieldLatestMessageTimestamp: date,
	})
	if err != nil {
		return wrapKind(domain.ErrStoreWriteFailed, "update room timestamp", err,
			zap.String("room_id", roomID),
			zap.String("message_id", id),
		)
	}

	logger.Log.Debug("message sent", zap.String("room_id", roomID), zap.String("message_id", id), zap.Int64("date", date))
	return nil
}
