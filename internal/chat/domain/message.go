package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ImagePlaceholderText 圖片訊息仍帶一段文字
const ImagePlaceholderText = "Here is an image"

// Message 表示一則聊天訊息，ID 由 RemoteStore 在 append 時產生
type Message struct {
	ID              string `json:"id" mapstructure:"-"`
	SenderName      string `json:"senderName" mapstructure:"senderName"`
	Text            string `json:"text" mapstructure:"text"`
	Date            int64  `json:"date" mapstructure:"date"` // ms since epoch
	SenderPhotoURL  string `json:"senderPhotoURL,omitempty" mapstructure:"senderPhotoURL"`
	ImageMessageURL string `json:"imageMessageURL,omitempty" mapstructure:"imageMessageURL"`
}

// Fields returns the record written to the store. Empty optional URLs are omitted.
func (m Message) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		FieldSenderName: m.SenderName,
		FieldText:       m.Text,
		FieldDate:       m.Date,
	}
	if m.SenderPhotoURL != "" {
		fields[FieldSenderPhotoURL] = m.SenderPhotoURL
	}
	if m.ImageMessageURL != "" {
		fields[FieldImageMessageURL] = m.ImageMessageURL
	}
	return fields
}

// MessageFromRecord decodes a stored record, numeric fields are weakly typed
// since backends hand back int32, int64 or float64 for the same value.
func MessageFromRecord(r Record) (Message, error) {
	var m Message
	if err := decodeFields(r.Fields, &m); err != nil {
		return Message{}, fmt.Errorf("decode message %s: %w", r.Key, err)
	}
	m.ID = r.Key
	return m, nil
}

func decodeFields(fields map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}
