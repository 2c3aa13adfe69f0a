package app

import (
	"fmt"
	"math/rand"
	"testing"

	"chat_sync_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func msg(id string, date int64) domain.Message {
	return domain.Message{ID: id, SenderName: "tester", Text: "text " + id, Date: date}
}

func ids(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestMessageStore_MergeIncomingNeverDuplicates(t *testing.T) {
	s := NewMessageStore()
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("m%d", r.Intn(40))
		s.mergeIncoming(msg(id, int64(r.Intn(1000))))
	}

	seen := map[string]bool{}
	for _, m := range s.Messages() {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
	assert.Equal(t, len(seen), s.Len())
}

func TestMessageStore_MergeAfterBulkFetchIsNoop(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceFromBulkFetch([]domain.Message{msg("a", 1), msg("b", 2)})

	assert.False(t, s.mergeIncoming(msg("b", 2)))
	assert.Equal(t, []string{"a", "b"}, ids(s.Messages()))

	assert.True(t, s.mergeIncoming(msg("c", 3)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.Messages()))
}

func TestMessageStore_MergeKeepsArrivalOrder(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceFromBulkFetch(nil)
	s.mergeIncoming(msg("late", 20))
	s.mergeIncoming(msg("early", 10))

	assert.Equal(t, []string{"late", "early"}, ids(s.Messages()))
}

func TestMessageStore_ReplaceOverwrites(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceFromBulkFetch([]domain.Message{msg("a", 1)})
	s.mergeIncoming(msg("x", 5))

	s.ReplaceFromBulkFetch([]domain.Message{msg("c", 3), msg("b", 2)})
	assert.Equal(t, []string{"b", "c"}, ids(s.Messages()))
	assert.False(t, s.Contains("x"))
}

func TestMessageStore_ExtendNeverShrinks(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceFromBulkFetch([]domain.Message{msg("c", 3), msg("d", 4)})
	s.mergeIncoming(msg("e", 5))
	before := s.Len()

	// 新視窗完全重疊舊視窗
	s.ExtendFromBulkFetch([]domain.Message{msg("a", 1), msg("b", 2), msg("c", 3), msg("d", 4)})
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(s.Messages()))
	assert.GreaterOrEqual(t, s.Len(), before)
}

func TestMessageStore_IsFullyLoaded(t *testing.T) {
	s := NewMessageStore()
	assert.False(t, s.IsFullyLoaded(50), "nothing fetched yet")

	s.ReplaceFromBulkFetch([]domain.Message{msg("a", 1)})
	assert.True(t, s.IsFullyLoaded(50))

	window := make([]domain.Message, 0, 50)
	for i := 0; i < 50; i++ {
		window = append(window, msg(fmt.Sprintf("m%d", i), int64(i)))
	}
	s.ReplaceFromBulkFetch(window)
	assert.False(t, s.IsFullyLoaded(50))

	// carry-over does not count toward the fetched window
	s.mergeIncoming(msg("live", 100))
	s.ExtendFromBulkFetch(window[:30])
	assert.True(t, s.IsFullyLoaded(50))
	assert.Equal(t, 51, s.Len())

	s.reset()
	assert.False(t, s.IsFullyLoaded(50))
	assert.Zero(t, s.Len())
}
