package proto

import "time"

const (
	// OutboundTypeEvent marks a server-initiated notification.
	OutboundTypeEvent = "event"
	// OutboundTypeError marks a protocol-level error.
	OutboundTypeError = "error"

	// EventNewMessage carries a freshly persisted direct message to its receiver.
	EventNewMessage = "newMessage"
)

// Message is the wire shape of a direct message.
type Message struct {
	ID         string    `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Outbound is the envelope for frames pushed to a connected client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error frame.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// NewMessageEvent wraps a message in the push envelope.
func NewMessageEvent(msg Message) Outbound {
	return Outbound{
		Type:  OutboundTypeEvent,
		Event: EventNewMessage,
		Data:  msg,
	}
}
