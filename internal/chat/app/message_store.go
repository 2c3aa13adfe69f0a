package app

import (
	"sort"
	"sync"

	"chat_sync_service/internal/chat/domain"
)

// MessageStore 單一聊天室的訊息序列，id 不重複
type MessageStore struct {
	mu         sync.RWMutex
	messages   []domain.Message
	index      map[string]struct{}
	fetched    bool
	fetchCount int
}

// NewMessageStore create MessageStore
func NewMessageStore() *MessageStore {
	return &MessageStore{index: make(map[string]struct{})}
}

// ReplaceFromBulkFetch overwrites the sequence with a fetched window
func (s *MessageStore) ReplaceFromBulkFetch(msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(msgs, nil)
}

// ExtendFromBulkFetch replaces the sequence with a wider fetched window and
// keeps every already known message the window misses, so the count never
// drops. Fully-loaded still follows the window size alone.
func (s *MessageStore) ExtendFromBulkFetch(msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(msgs, s.messages)
}

func (s *MessageStore) replaceLocked(window, carry []domain.Message) {
	merged := make([]domain.Message, 0, len(window)+len(carry))
	index := make(map[string]struct{}, len(window)+len(carry))
	for _, list := range [][]domain.Message{window, carry} {
		for _, m := range list {
			if _, ok := index[m.ID]; ok {
				continue
			}
			index[m.ID] = struct{}{}
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })

	s.messages = merged
	s.index = index
	s.fetched = true
	s.fetchCount = len(window)
}

// mergeIncoming appends m unless its id is known. Only the live subscription
// path calls it.
func (s *MessageStore) mergeIncoming(m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[m.ID]; ok {
		return false
	}
	s.index[m.ID] = struct{}{}
	s.messages = append(s.messages, m)
	return true
}

func (s *MessageStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.index = make(map[string]struct{})
	s.fetched = false
	s.fetchCount = 0
}

// IsFullyLoaded reports whether the last bulk fetch came back short of limit
func (s *MessageStore) IsFullyLoaded(limit int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetched && s.fetchCount < limit
}

// Contains reports whether id is already in the sequence
func (s *MessageStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Messages returns a copy of the sequence in display order
func (s *MessageStore) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages...)
}

// Len number of known messages
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
