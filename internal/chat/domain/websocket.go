package domain

// Action websocket request / push action
type Action string

const (
	// EnterRoom websocket action enter_room
	EnterRoom Action = "enter_room"
	// LeaveRoom websocket action leave_room
	LeaveRoom Action = "leave_room"
	// LoadMore websocket action load_more
	LoadMore Action = "load_more"
	// Refresh websocket action refresh
	Refresh Action = "refresh"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// OpenNotification websocket action open_notification, client tapped a notification
	OpenNotification Action = "open_notification"
	// SetNotificationPermission websocket action set_notification_permission
	SetNotificationPermission Action = "set_notification_permission"

	// Messages server push, full message snapshot of the entered room
	Messages Action = "messages"
	// NotifyMessage server push, local notification for a live message
	NotifyMessage Action = "notify_message"
	// OpenRoom server push, an opened notification resolved to a room
	OpenRoom Action = "open_room"
	// SubscriptionLost server push, live channel dropped
	SubscriptionLostPush Action = "subscription_lost"
)

// WSRequest websocket Request
type WSRequest struct {
	Action          string `json:"action"`
	RoomID          string `json:"room_id"`
	MessageID       string `json:"message_id"`
	Content         string `json:"content"`
	ImageMessageURL string `json:"image_message_url"`
	Link            string `json:"link"`
	Granted         bool   `json:"granted"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
}

// MessageView message plus its display date
type MessageView struct {
	Message
	DisplayDate string `json:"displayDate"`
}

// NewMessageViews decorates messages for the bridge
func NewMessageViews(msgs []Message) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, MessageView{Message: m, DisplayDate: FormatDate(m.Date)})
	}
	return views
}
