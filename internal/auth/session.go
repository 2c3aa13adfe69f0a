package auth

import (
	"fmt"
	"sync"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/token"

	"go.uber.org/zap"
)

// Session 目前登入的使用者，實作 domain.IdentityProvider
type Session struct {
	mu   sync.RWMutex
	user *domain.Identity
}

// NewSession create a signed-out Session
func NewSession() *Session {
	return &Session{}
}

// SignIn validates tokenStr and makes its claims the current user
func (s *Session) SignIn(tokenStr string) (*domain.Identity, error) {
	claims, err := token.ParseJWT(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNotAuthenticated, err)
	}
	return s.SignInClaims(claims), nil
}

// SignInClaims makes already verified claims the current user
func (s *Session) SignInClaims(claims *token.Claims) *domain.Identity {
	user := &domain.Identity{
		MemberID:    claims.MemberID,
		DisplayName: claims.DisplayName,
		PhotoURL:    claims.PhotoURL,
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	logger.Log.Debug("signed in", zap.String("member_id", user.MemberID))
	return user
}

// SignOut clears the current user
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// CurrentUser returns a copy of the signed-in user
func (s *Session) CurrentUser() (*domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, false
	}
	u := *s.user
	return &u, true
}
