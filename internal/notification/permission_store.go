package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"chat_sync_service/pkg/database"

	"github.com/go-redis/redis/v8"
)

// PermissionStore 記錄每位成員的通知權限決定
type PermissionStore interface {
	// Get returns decided=false when the member was never asked
	Get(ctx context.Context, memberID string) (granted bool, decided bool, err error)
	Set(ctx context.Context, memberID string, granted bool) error
}

// MemoryPermissionStore in-process PermissionStore
type MemoryPermissionStore struct {
	mu      sync.RWMutex
	granted map[string]bool
}

// NewMemoryPermissionStore create MemoryPermissionStore
func NewMemoryPermissionStore() *MemoryPermissionStore {
	return &MemoryPermissionStore{granted: make(map[string]bool)}
}

// Get permission decision
func (s *MemoryPermissionStore) Get(_ context.Context, memberID string) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	granted, ok := s.granted[memberID]
	return granted, ok, nil
}

// Set permission decision
func (s *MemoryPermissionStore) Set(_ context.Context, memberID string, granted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted[memberID] = granted
	return nil
}

const permissionKeyPrefix = "notification:permission:"

type permissionRecord struct {
	Granted   bool  `json:"granted"`
	DecidedAt int64 `json:"decided_at"`
}

// RedisPermissionStore PermissionStore shared by every bridge instance
type RedisPermissionStore struct {
	repo database.RedisRepository[permissionRecord]
}

// NewRedisPermissionStore create RedisPermissionStore
func NewRedisPermissionStore(client *redis.Client) *RedisPermissionStore {
	return &RedisPermissionStore{repo: database.NewRedisRepository[permissionRecord](client)}
}

// Get permission decision
func (s *RedisPermissionStore) Get(ctx context.Context, memberID string) (bool, bool, error) {
	rec, err := s.repo.Get(ctx, permissionKeyPrefix+memberID)
	if errors.Is(err, database.ErrRedisNil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return rec.Granted, true, nil
}

// Set permission decision, kept without expiry
func (s *RedisPermissionStore) Set(ctx context.Context, memberID string, granted bool) error {
	return s.repo.Set(ctx, permissionKeyPrefix+memberID, permissionRecord{
		Granted:   granted,
		DecidedAt: time.Now().UnixMilli(),
	}, 0)
}
