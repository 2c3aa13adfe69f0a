package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"chat_sync_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	mu   sync.Mutex
	recs []domain.Record
}

func (s *recordSink) add(r domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, r)
}

func (s *recordSink) snapshot() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Record(nil), s.recs...)
}

type errSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errSink) add(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errSink) snapshot() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// rawPublisher puts payload on the live channel of path as is. Nil for
// backends that hand records over in process.
type rawPublisher func(ctx context.Context, path string, payload []byte) error

// runStoreContract checks the behaviour every RemoteStore backend shares
func runStoreContract(t *testing.T, store domain.RemoteStore, publishRaw rawPublisher) {
	ctx := context.Background()

	t.Run("rooms round trip", func(t *testing.T) {
		id, err := store.Append(ctx, domain.RoomsPath, map[string]interface{}{"name": "general", "description": "talk"})
		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.NoError(t, store.Update(ctx, domain.RoomPath(id), map[string]interface{}{"latestMessageTimestamp": int64(300)}))

		doc, err := store.ReadPath(ctx, domain.RoomsPath)
		require.NoError(t, err)
		require.NotNil(t, doc)

		var found *domain.ChatRoom
		for _, c := range doc.Children {
			if c.Key == id {
				room, err := domain.RoomFromRecord(c)
				require.NoError(t, err)
				found = &room
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "general", found.Name)
		assert.Equal(t, "talk", found.Description)
		assert.Equal(t, int64(300), found.LatestMessageTimestamp)
	})

	t.Run("absent path", func(t *testing.T) {
		doc, err := store.ReadPath(ctx, "rooms/missing-room/messages")
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("range keeps the newest window ascending", func(t *testing.T) {
		path := domain.MessagesPath("range-room")
		for _, d := range []int64{300, 100, 500, 200, 400} {
			_, err := store.Append(ctx, path, domain.Message{SenderName: "a", Text: "m", Date: d}.Fields())
			require.NoError(t, err)
		}

		recs, err := store.ReadRange(ctx, path, domain.FieldDate, 3)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		var dates []int64
		for _, r := range recs {
			m, err := domain.MessageFromRecord(r)
			require.NoError(t, err)
			dates = append(dates, m.Date)
		}
		assert.Equal(t, []int64{300, 400, 500}, dates)
	})

	t.Run("subscription sees appends until cancelled", func(t *testing.T) {
		path := domain.MessagesPath("live-room")
		sink := &recordSink{}
		cancel, err := store.SubscribeAppends(ctx, path, sink.add, nil)
		require.NoError(t, err)

		key, err := store.Append(ctx, path, domain.Message{SenderName: "a", Text: "live", Date: 1}.Fields())
		require.NoError(t, err)
		_, err = store.Append(ctx, domain.MessagesPath("other-room"), domain.Message{Text: "x", Date: 1}.Fields())
		require.NoError(t, err)

		assert.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)
		got := sink.snapshot()
		require.Len(t, got, 1)
		m, err := domain.MessageFromRecord(got[0])
		require.NoError(t, err)
		assert.Equal(t, key, m.ID)
		assert.Equal(t, "live", m.Text)

		cancel()
		time.Sleep(100 * time.Millisecond)
		_, err = store.Append(ctx, path, domain.Message{Text: "late", Date: 2}.Fields())
		require.NoError(t, err)
		time.Sleep(200 * time.Millisecond)
		assert.Len(t, sink.snapshot(), 1)
	})

	t.Run("undecodable live payload reaches onError", func(t *testing.T) {
		if publishRaw == nil {
			t.Skip("records are handed over in process")
		}
		path := domain.MessagesPath("garbled-room")
		sink := &recordSink{}
		errs := &errSink{}
		cancel, err := store.SubscribeAppends(ctx, path, sink.add, errs.add)
		require.NoError(t, err)
		defer cancel()

		require.NoError(t, publishRaw(ctx, path, []byte(`{"key":"k1","fields":{"text":`)))
		assert.Eventually(t, func() bool { return len(errs.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)
		got := errs.snapshot()
		require.Len(t, got, 1)
		assert.ErrorIs(t, got[0], domain.ErrStoreUnavailable)
		assert.NotErrorIs(t, got[0], domain.ErrSubscriptionLost)
		assert.Empty(t, sink.snapshot())

		// the subscription survives the bad payload
		_, err = store.Append(ctx, path, domain.Message{SenderName: "a", Text: "after", Date: 1}.Fields())
		require.NoError(t, err)
		assert.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)
		assert.Len(t, errs.snapshot(), 1)
	})
}

func TestMemoryRemoteStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryRemoteStore(), nil)
}
