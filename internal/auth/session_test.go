package auth

import (
	"testing"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

func TestSession_SignInSignOut(t *testing.T) {
	s := NewSession()
	_, ok := s.CurrentUser()
	assert.False(t, ok)

	tok, err := token.GenerateJWT("m-1", "Alice", "https://img/alice.png", "test")
	require.NoError(t, err)

	user, err := s.SignIn(tok)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.DisplayName)

	current, ok := s.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, &domain.Identity{MemberID: "m-1", DisplayName: "Alice", PhotoURL: "https://img/alice.png"}, current)

	// 回傳的是副本
	current.DisplayName = "Mallory"
	again, _ := s.CurrentUser()
	assert.Equal(t, "Alice", again.DisplayName)

	s.SignOut()
	_, ok = s.CurrentUser()
	assert.False(t, ok)
}

func TestSession_SignInInvalidToken(t *testing.T) {
	s := NewSession()
	_, err := s.SignIn("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, ok := s.CurrentUser()
	assert.False(t, ok)
}
