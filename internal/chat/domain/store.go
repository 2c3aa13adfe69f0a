package domain

import "context"

// Store paths and field names shared by every RemoteStore backend
const (
	RoomsPath = "rooms"

	FieldName                   = "name"
	FieldDescription            = "description"
	FieldLatestMessageTimestamp = "latestMessageTimestamp"

	FieldSenderName      = "senderName"
	FieldText            = "text"
	FieldDate            = "date"
	FieldSenderPhotoURL  = "senderPhotoURL"
	FieldImageMessageURL = "imageMessageURL"
)

// RoomPath rooms/{roomID}
func RoomPath(roomID string) string {
	return RoomsPath + "/" + roomID
}

// MessagesPath rooms/{roomID}/messages
func MessagesPath(roomID string) string {
	return RoomPath(roomID) + "/messages"
}

// Record is one keyed child of a path
type Record struct {
	Key    string
	Fields map[string]interface{}
}

// Document is the node at a path: its own fields plus its direct children
type Document struct {
	Key      string
	Fields   map[string]interface{}
	Children []Record
}

// CancelFunc detaches a live subscription. Once it returns no further
// callbacks are delivered.
type CancelFunc func()

// RemoteStore 遠端文件儲存 (key-path addressed)
type RemoteStore interface {
	// ReadPath returns nil, nil when nothing exists at path.
	ReadPath(ctx context.Context, path string) (*Document, error)
	// ReadRange returns the last limit children of path by orderKey, ascending.
	ReadRange(ctx context.Context, path, orderKey string, limit int) ([]Record, error)
	// Append stores fields as a new child of path and returns the assigned key.
	Append(ctx context.Context, path string, fields map[string]interface{}) (string, error)
	// Update merges fields into the node at path.
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	// SubscribeAppends delivers every child appended to path after the call.
	// onError gets a live record that could not be decoded, the subscription
	// staying up, and at most once a dropped channel wrapped in
	// ErrSubscriptionLost. Cancelling reports nothing.
	SubscribeAppends(ctx context.Context, path string, onAppend func(Record), onError func(error)) (CancelFunc, error)
}
