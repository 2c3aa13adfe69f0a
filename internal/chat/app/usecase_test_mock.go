package app

import (
	"context"

	"chat_sync_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockRemoteStore Mock RemoteStore
type MockRemoteStore struct {
	mock.Mock
}

// ReadPath mock read path
func (m *MockRemoteStore) ReadPath(ctx context.Context, path string) (*domain.Document, error) {
	args := m.Called(ctx, path)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

// ReadRange mock read range
func (m *MockRemoteStore) ReadRange(ctx context.Context, path, orderKey string, limit int) ([]domain.Record, error) {
	args := m.Called(ctx, path, orderKey, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

// Append mock append
func (m *MockRemoteStore) Append(ctx context.Context, path string, fields map[string]interface{}) (string, error) {
	args := m.Called(ctx, path, fields)
	return args.String(0), args.Error(1)
}

// Update mock update
func (m *MockRemoteStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	args := m.Called(ctx, path, fields)
	return args.Error(0)
}

// SubscribeAppends mock subscribe
func (m *MockRemoteStore) SubscribeAppends(ctx context.Context, path string, onAppend func(domain.Record), onLost func(error)) (domain.CancelFunc, error) {
	args := m.Called(ctx, path, onAppend, onLost)
	if args.Get(0) != nil {
		return args.Get(0).(domain.CancelFunc), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNotificationGate Mock NotificationGate
type MockNotificationGate struct {
	mock.Mock
}

// HasPermission mock has permission
func (m *MockNotificationGate) HasPermission(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// RequestPermission mock request permission
func (m *MockNotificationGate) RequestPermission(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// FireLocal mock fire local
func (m *MockNotificationGate) FireLocal(ctx context.Context, n domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

// OnOpened mock on opened
func (m *MockNotificationGate) OnOpened(callback func(roomID, messageID string)) {
	m.Called(callback)
}

// MockIdentityProvider Mock IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

// CurrentUser mock current user
func (m *MockIdentityProvider) CurrentUser() (*domain.Identity, bool) {
	args := m.Called()
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Identity), args.Bool(1)
	}
	return nil, args.Bool(1)
}
