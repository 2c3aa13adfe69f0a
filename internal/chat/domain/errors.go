package domain

import "errors"

var (
	// ErrStoreUnavailable read from the remote store failed
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreWriteFailed write to the remote store failed
	ErrStoreWriteFailed = errors.New("store write failed")
	// ErrNotAuthenticated no signed-in user with a display name
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrEmptyMessage blank text and no image
	ErrEmptyMessage = errors.New("empty message")
	// ErrNotificationPermissionDenied notifications not allowed, send refused
	ErrNotificationPermissionDenied = errors.New("notification permission denied")
	// ErrPermissionUnavailable notification permission could not be read or stored
	ErrPermissionUnavailable = errors.New("notification permission unavailable")
	// ErrFetchFailed bulk fetch of a room failed
	ErrFetchFailed = errors.New("fetch failed")
	// ErrSubscriptionLost live channel dropped, re-enter the room to recover
	ErrSubscriptionLost = errors.New("subscription lost")
	// ErrNoRoom operation needs an entered room
	ErrNoRoom = errors.New("no room entered")
	// ErrSessionClosed room was exited before the operation finished
	ErrSessionClosed = errors.New("room session closed")
	// ErrNotFound nothing at path
	ErrNotFound = errors.New("not found")
	// ErrInvalidDeepLink link does not resolve to a room
	ErrInvalidDeepLink = errors.New("invalid deep link")
)

// ErrorCode stable code string for the bridge protocol
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrNotificationPermissionDenied):
		return "notification_permission_denied"
	case errors.Is(err, ErrPermissionUnavailable):
		return "permission_unavailable"
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, ErrStoreWriteFailed):
		return "store_write_failed"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrSubscriptionLost):
		return "subscription_lost"
	case errors.Is(err, ErrNoRoom):
		return "no_room"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidDeepLink):
		return "invalid_deep_link"
	default:
		return "internal"
	}
}
