package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "rooms", RoomsPath)
	assert.Equal(t, "rooms/r1", RoomPath("r1"))
	assert.Equal(t, "rooms/r1/messages", MessagesPath("r1"))
}

func TestMessageFromRecord(t *testing.T) {
	t.Run("numeric date in any width", func(t *testing.T) {
		for _, date := range []interface{}{int64(1700000000000), float64(1700000000000), int32(17), "1700000000000"} {
			m, err := MessageFromRecord(Record{Key: "k1", Fields: map[string]interface{}{
				"senderName": "Alice",
				"text":       "hi",
				"date":       date,
			}})
			require.NoError(t, err, "date %T", date)
			assert.Equal(t, "k1", m.ID)
			assert.Equal(t, "Alice", m.SenderName)
			assert.NotZero(t, m.Date)
		}
	})

	t.Run("optional urls", func(t *testing.T) {
		m, err := MessageFromRecord(Record{Key: "k2", Fields: map[string]interface{}{
			"senderName":      "Bob",
			"text":            ImagePlaceholderText,
			"date":            int64(5),
			"imageMessageURL": "https://img/1.png",
		}})
		require.NoError(t, err)
		assert.Empty(t, m.SenderPhotoURL)
		assert.Equal(t, "https://img/1.png", m.ImageMessageURL)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := MessageFromRecord(Record{Key: "k3", Fields: map[string]interface{}{"date": "yesterday"}})
		assert.Error(t, err)
	})
}

func TestMessageFields_OmitsEmptyOptionals(t *testing.T) {
	f := Message{SenderName: "Alice", Text: "hi", Date: 7}.Fields()
	assert.Equal(t, map[string]interface{}{"senderName": "Alice", "text": "hi", "date": int64(7)}, f)

	f = Message{SenderName: "Alice", Text: "hi", Date: 7, SenderPhotoURL: "p", ImageMessageURL: "i"}.Fields()
	assert.Equal(t, "p", f[FieldSenderPhotoURL])
	assert.Equal(t, "i", f[FieldImageMessageURL])
}

func TestRoomFromRecord(t *testing.T) {
	r, err := RoomFromRecord(Record{Key: "r1", Fields: map[string]interface{}{
		"name":        "general",
		"description": "talk",
	}})
	require.NoError(t, err)
	assert.Equal(t, ChatRoom{ID: "r1", Name: "general", Description: "talk"}, r)

	r, err = RoomFromRecord(Record{Key: "r2", Fields: map[string]interface{}{
		"name":                   "busy",
		"latestMessageTimestamp": float64(300),
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(300), r.LatestMessageTimestamp)
}

func TestFormatDateIn(t *testing.T) {
	ms := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, "March 5, 2024 14:07", FormatDateIn(ms, time.UTC))
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("%w: room r1: %w", ErrFetchFailed, ErrStoreUnavailable)
	assert.Equal(t, "fetch_failed", ErrorCode(wrapped))
	assert.Equal(t, "store_unavailable", ErrorCode(fmt.Errorf("x: %w", ErrStoreUnavailable)))
	assert.Equal(t, "empty_message", ErrorCode(ErrEmptyMessage))
	assert.Equal(t, "permission_unavailable", ErrorCode(fmt.Errorf("%w: redis down", ErrPermissionUnavailable)))
	assert.Equal(t, "internal", ErrorCode(errors.New("boom")))
}
