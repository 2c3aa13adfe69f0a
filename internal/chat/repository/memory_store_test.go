package repository

import (
	"context"
	"errors"
	"testing"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

func TestMemoryRemoteStore_ReadPath(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRemoteStore()

	doc, err := s.ReadPath(ctx, domain.RoomsPath)
	require.NoError(t, err)
	assert.Nil(t, doc)

	id, err := s.Append(ctx, domain.RoomsPath, map[string]interface{}{"name": "general"})
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, domain.RoomPath(id), map[string]interface{}{"latestMessageTimestamp": int64(10)}))

	doc, err = s.ReadPath(ctx, domain.RoomsPath)
	require.NoError(t, err)
	require.Len(t, doc.Children, 1)
	assert.Equal(t, id, doc.Children[0].Key)
	assert.Equal(t, "general", doc.Children[0].Fields["name"])
	assert.Equal(t, int64(10), doc.Children[0].Fields["latestMessageTimestamp"])
}

func TestMemoryRemoteStore_ReadRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRemoteStore()
	path := domain.MessagesPath("r1")

	// 故意亂序寫入
	for _, d := range []int64{30, 10, 50, 20, 40} {
		_, err := s.Append(ctx, path, map[string]interface{}{"date": d})
		require.NoError(t, err)
	}

	recs, err := s.ReadRange(ctx, path, "date", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(30), recs[0].Fields["date"])
	assert.Equal(t, int64(40), recs[1].Fields["date"])
	assert.Equal(t, int64(50), recs[2].Fields["date"])

	recs, err = s.ReadRange(ctx, path, "date", 50)
	require.NoError(t, err)
	assert.Len(t, recs, 5)

	recs, err = s.ReadRange(ctx, domain.MessagesPath("empty"), "date", 50)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryRemoteStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRemoteStore()
	fields := map[string]interface{}{"date": int64(1)}
	_, err := s.Append(ctx, "p", fields)
	require.NoError(t, err)
	fields["date"] = int64(99)

	recs, err := s.ReadRange(ctx, "p", "date", 10)
	require.NoError(t, err)
	recs[0].Fields["date"] = int64(42)

	again, err := s.ReadRange(ctx, "p", "date", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again[0].Fields["date"])
}

func TestMemoryRemoteStore_SubscribeAppends(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRemoteStore()
	path := domain.MessagesPath("r1")

	_, err := s.Append(ctx, path, map[string]interface{}{"text": "before"})
	require.NoError(t, err)

	var got []domain.Record
	cancel, err := s.SubscribeAppends(ctx, path, func(r domain.Record) { got = append(got, r) }, nil)
	require.NoError(t, err)

	key, err := s.Append(ctx, path, map[string]interface{}{"text": "after"})
	require.NoError(t, err)
	_, err = s.Append(ctx, domain.MessagesPath("other"), map[string]interface{}{"text": "elsewhere"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, key, got[0].Key)
	assert.Equal(t, "after", got[0].Fields["text"])

	cancel()
	cancel()
	_, err = s.Append(ctx, path, map[string]interface{}{"text": "cancelled"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryRemoteStore_DropSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRemoteStore()
	path := domain.MessagesPath("r1")
	boom := errors.New("boom")

	var lost error
	_, err := s.SubscribeAppends(ctx, path, func(domain.Record) {}, func(err error) { lost = err })
	require.NoError(t, err)

	s.DropSubscriptions(path, boom)
	assert.ErrorIs(t, lost, boom)
	assert.ErrorIs(t, lost, domain.ErrSubscriptionLost)
}

func TestMemoryRemoteStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryRemoteStore()

	_, err := s.ReadPath(ctx, "rooms")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	_, err = s.Append(ctx, "rooms", nil)
	assert.ErrorIs(t, err, domain.ErrStoreWriteFailed)
	err = s.Update(ctx, "rooms/x", nil)
	assert.ErrorIs(t, err, domain.ErrStoreWriteFailed)
}
