package domain

import "fmt"

// ChatRoom definition chat room, LatestMessageTimestamp 0 代表尚無訊息
type ChatRoom struct {
	ID                     string `json:"id" mapstructure:"-"`
	Name                   string `json:"name" mapstructure:"name"`
	Description            string `json:"description" mapstructure:"description"`
	LatestMessageTimestamp int64  `json:"latestMessageTimestamp,omitempty" mapstructure:"latestMessageTimestamp"`
}

// RoomFromRecord decodes one child of the rooms path
func RoomFromRecord(r Record) (ChatRoom, error) {
	var room ChatRoom
	if err := decodeFields(r.Fields, &room); err != nil {
		return ChatRoom{}, fmt.Errorf("decode room %s: %w", r.Key, err)
	}
	room.ID = r.Key
	return room, nil
}
