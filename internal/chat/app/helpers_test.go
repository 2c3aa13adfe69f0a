package app

import (
	"context"
	"sync"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"
)

func init() {
	logger.SetNewNop()
}

// recordingGate NotificationGate that grants permission and records fired notifications
type recordingGate struct {
	mu       sync.Mutex
	granted  bool
	fired    []domain.Notification
	fireErr  error
	callback func(roomID, messageID string)
}

func newRecordingGate() *recordingGate {
	return &recordingGate{granted: true}
}

func (g *recordingGate) HasPermission(context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted, nil
}

func (g *recordingGate) RequestPermission(ctx context.Context) (bool, error) {
	return g.HasPermission(ctx)
}

func (g *recordingGate) FireLocal(_ context.Context, n domain.Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fireErr != nil {
		return g.fireErr
	}
	g.fired = append(g.fired, n)
	return nil
}

func (g *recordingGate) OnOpened(callback func(roomID, messageID string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callback = callback
}

func (g *recordingGate) notifications() []domain.Notification {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Notification(nil), g.fired...)
}

// brokenPermissionStore notification.PermissionStore whose reads or writes fail
type brokenPermissionStore struct {
	getErr error
	setErr error
}

func (s *brokenPermissionStore) Get(context.Context, string) (bool, bool, error) {
	return false, false, s.getErr
}

func (s *brokenPermissionStore) Set(context.Context, string, bool) error {
	return s.setErr
}

// staticIdentity IdentityProvider returning a fixed user
type staticIdentity struct {
	user *domain.Identity
}

func (s staticIdentity) CurrentUser() (*domain.Identity, bool) {
	return s.user, s.user != nil
}
