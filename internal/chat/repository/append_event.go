package repository

import (
	"encoding/json"
	"fmt"

	"chat_sync_service/internal/chat/domain"
)

// appendEvent live payload announcing a new child. Parent is only set on the
// shared postgres NOTIFY channel, redis channels are already per path.
type appendEvent struct {
	Parent string                 `json:"parent,omitempty"`
	Key    string                 `json:"key"`
	Fields map[string]interface{} `json:"fields"`
}

func (ev appendEvent) record() domain.Record {
	return domain.Record{Key: ev.Key, Fields: ev.Fields}
}

// decodeAppendEvent parses a live payload. Failures wrap ErrStoreUnavailable
// so subscribers can tell a lost record from a lost channel.
func decodeAppendEvent(payload []byte) (appendEvent, error) {
	var ev appendEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return appendEvent{}, fmt.Errorf("%w: decode append event: %w", domain.ErrStoreUnavailable, err)
	}
	if ev.Key == "" {
		return appendEvent{}, fmt.Errorf("%w: append event without key", domain.ErrStoreUnavailable)
	}
	return ev, nil
}
