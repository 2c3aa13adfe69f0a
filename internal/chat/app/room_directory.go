package app

import (
	"context"
	"sort"
	"sync"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// RoomDirectory 聊天室列表，依最新訊息時間倒序
type RoomDirectory struct {
	remote domain.RemoteStore

	mu    sync.RWMutex
	rooms []domain.ChatRoom
}

// NewRoomDirectory create RoomDirectory
func NewRoomDirectory(remote domain.RemoteStore) *RoomDirectory {
	return &RoomDirectory{remote: remote}
}

// Refresh reads every room and sorts by latestMessageTimestamp descending,
// rooms without messages last. On failure the previous list is kept.
func (d *RoomDirectory) Refresh(ctx context.Context) ([]domain.ChatRoom, error) {
	doc, err := d.remote.ReadPath(ctx, domain.RoomsPath)
	if err != nil {
		return nil, wrapKind(domain.ErrStoreUnavailable, "read rooms", err)
	}

	var rooms []domain.ChatRoom
	if doc != nil {
		rooms = make([]domain.ChatRoom, 0, len(doc.Children))
		for _, rec := range doc.Children {
			room, err := domain.RoomFromRecord(rec)
			if err != nil {
				return nil, wrapKind(domain.ErrStoreUnavailable, "decode room", err, zap.String("room_id", rec.Key))
			}
			rooms = append(rooms, room)
		}
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].LatestMessageTimestamp > rooms[j].LatestMessageTimestamp
	})

	d.mu.Lock()
	d.rooms = rooms
	d.mu.Unlock()

	logger.Log.Debug("rooms refreshed", zap.Int("count", len(rooms)))
	return append([]domain.ChatRoom(nil), rooms...), nil
}

// Create appends a room without latestMessageTimestamp. The directory is not
// refreshed, call Refresh to see it.
func (d *RoomDirectory) Create(ctx context.Context, name, description string) (domain.ChatRoom, error) {
	id, err := d.remote.Append(ctx, domain.RoomsPath, map[string]interface{}{
		domain.FieldName:        name,
		domain.FieldDescription: description,
	})
	if err != nil {
		return domain.ChatRoom{}, wrapKind(domain.ErrStoreWriteFailed, "create room", err)
	}
	logger.Log.Info("room created", zap.String("room_id", id), zap.String("name", name))
	return domain.ChatRoom{ID: id, Name: name, Description: description}, nil
}

// Rooms returns the list from the last successful Refresh
func (d *RoomDirectory) Rooms() []domain.ChatRoom {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.ChatRoom(nil), d.rooms...)
}
