package domain

import "context"

// Notification local notification payload
type Notification struct {
	Text      string `json:"text"`
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

// NotificationGate local notification permission + delivery
type NotificationGate interface {
	// HasPermission reports the stored decision. err wraps
	// ErrPermissionUnavailable when the decision cannot be read.
	HasPermission(ctx context.Context) (bool, error)
	// RequestPermission asks the member once; later calls return the stored decision
	RequestPermission(ctx context.Context) (bool, error)
	FireLocal(ctx context.Context, n Notification) error
	OnOpened(callback func(roomID, messageID string))
}

// Identity signed-in user as seen by the send path
type Identity struct {
	MemberID    string
	DisplayName string
	PhotoURL    string
}

// IdentityProvider returns the current user, false when signed out
type IdentityProvider interface {
	CurrentUser() (*Identity, bool)
}
