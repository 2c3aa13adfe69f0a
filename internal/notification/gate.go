package notification

import (
	"context"
	"errors"
	"sync"

	"chat_sync_service/internal/chat/domain"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// Prompter asks the user for notification permission
type Prompter interface {
	Prompt(ctx context.Context) bool
}

// StaticPrompter answers every prompt the same way
type StaticPrompter bool

// Prompt returns the fixed answer
func (p StaticPrompter) Prompt(context.Context) bool { return bool(p) }

// Sink delivers a fired notification to the user
type Sink interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, n domain.Notification) error

// Deliver calls f
func (f SinkFunc) Deliver(ctx context.Context, n domain.Notification) error { return f(ctx, n) }

// Gate NotificationGate of one member
type Gate struct {
	perms    PermissionStore
	memberID string
	prompter Prompter
	sinks    []Sink

	mu     sync.Mutex
	opened []func(roomID, messageID string)
}

// NewGate create Gate
func NewGate(perms PermissionStore, memberID string, prompter Prompter, sinks ...Sink) *Gate {
	return &Gate{
		perms:    perms,
		memberID: memberID,
		prompter: prompter,
		sinks:    sinks,
	}
}

// permission reads the member's decision. Store failures are returned wrapped
// in ErrPermissionUnavailable, never read as a refusal.
func (g *Gate) permission(ctx context.Context) (granted, decided bool, err error) {
	granted, decided, err = g.perms.Get(ctx, g.memberID)
	if err != nil {
		return false, false, errprocess.Wrap(domain.ErrPermissionUnavailable, "read notification permission", err,
			zap.String("member_id", g.memberID))
	}
	return granted, decided, nil
}

// HasPermission whether the member granted notifications
func (g *Gate) HasPermission(ctx context.Context) (bool, error) {
	granted, _, err := g.permission(ctx)
	return granted, err
}

// RequestPermission prompts only if the member never decided; a stored
// decision is returned as is. An answer that cannot be stored is returned
// together with the error.
func (g *Gate) RequestPermission(ctx context.Context) (bool, error) {
	granted, decided, err := g.permission(ctx)
	if err != nil {
		return false, err
	}
	if decided {
		return granted, nil
	}

	granted = g.prompter.Prompt(ctx)
	logger.Log.Info("notification permission requested", zap.String("member_id", g.memberID), zap.Bool("granted", granted))
	if err := g.perms.Set(ctx, g.memberID, granted); err != nil {
		return granted, errprocess.Wrap(domain.ErrPermissionUnavailable, "store notification permission", err,
			zap.String("member_id", g.memberID))
	}
	return granted, nil
}

// SetPermission records an explicit decision from the member
func (g *Gate) SetPermission(ctx context.Context, granted bool) error {
	if err := g.perms.Set(ctx, g.memberID, granted); err != nil {
		return errprocess.Wrap(domain.ErrPermissionUnavailable, "store notification permission", err,
			zap.String("member_id", g.memberID))
	}
	return nil
}

// FireLocal hands n to every sink. Without permission nothing is delivered;
// an unreadable permission is returned as an error.
func (g *Gate) FireLocal(ctx context.Context, n domain.Notification) error {
	granted, _, err := g.permission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		logger.Log.Debug("notification suppressed, no permission", zap.String("member_id", g.memberID), zap.String("message_id", n.MessageID))
		return nil
	}
	var errs []error
	for _, s := range g.sinks {
		if err := s.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnOpened registers a handler for opened notifications
func (g *Gate) OnOpened(callback func(roomID, messageID string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opened = append(g.opened, callback)
}

// Open reports that the member opened the notification for (roomID, messageID)
func (g *Gate) Open(roomID, messageID string) {
	g.mu.Lock()
	handlers := append([]func(string, string){}, g.opened...)
	g.mu.Unlock()

	for _, h := range handlers {
		h(roomID, messageID)
	}
}

// OpenDeepLink resolves link and opens it
func (g *Gate) OpenDeepLink(link string) error {
	roomID, messageID, err := ParseDeepLink(link)
	if err != nil {
		return err
	}
	g.Open(roomID, messageID)
	return nil
}
