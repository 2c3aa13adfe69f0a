package repository

import (
	"context"
	"fmt"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 發布 payload 到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

// Subscribe 訂閱 channel，收到訊息後呼叫 handler 處理。訂閱確認後才回傳；
// ctx 取消時關閉訂閱且不呼叫 onLost，channel 異常關閉時呼叫 onLost。
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte), onLost func(error)) error {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("%w: subscribe %s: %w", domain.ErrSubscriptionLost, channel, err)
	}

	go func() {
		ch := sub.Channel()
		defer sub.Close()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					if ctx.Err() != nil {
						return
					}
					logger.Log.Warn("redis subscription closed", zap.String("channel", channel))
					if onLost != nil {
						onLost(fmt.Errorf("%w: channel %s closed", domain.ErrSubscriptionLost, channel))
					}
					return
				}
				handler([]byte(m.Payload))
			case <-ctx.Done():
				logger.Log.Debug("redis sub close", zap.String("channel", channel))
				return
			}
		}
	}()
	return nil
}
