package notification

import (
	"fmt"
	"net/url"

	"chat_sync_service/internal/chat/domain"
)

const (
	deepLinkScheme = "chatapp"
	deepLinkTarget = "chatroom"
)

// DeepLink chatapp://chatroom?roomId=..&messageId=..
func DeepLink(roomID, messageID string) string {
	q := url.Values{}
	q.Set("roomId", roomID)
	if messageID != "" {
		q.Set("messageId", messageID)
	}
	u := url.URL{Scheme: deepLinkScheme, Host: deepLinkTarget, RawQuery: q.Encode()}
	return u.String()
}

// ParseDeepLink accepts chatapp://chatroom?.. and any URL whose path is /chatroom
func ParseDeepLink(link string) (roomID, messageID string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrInvalidDeepLink, err)
	}

	isChatroom := u.Path == "/"+deepLinkTarget ||
		(u.Scheme == deepLinkScheme && u.Host == deepLinkTarget && (u.Path == "" || u.Path == "/"))
	if !isChatroom {
		return "", "", fmt.Errorf("%w: unsupported target %q", domain.ErrInvalidDeepLink, link)
	}

	q := u.Query()
	roomID = q.Get("roomId")
	if roomID == "" {
		return "", "", fmt.Errorf("%w: missing roomId", domain.ErrInvalidDeepLink)
	}
	return roomID, q.Get("messageId"), nil
}
