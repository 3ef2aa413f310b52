package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeRegister = "register"
	InboundTypeJoin     = "join"
	InboundTypeLeave    = "leave"
	InboundTypeMsg      = "msg"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameRegistered     = "registered"
	EventNameJoined         = "joined"
	EventNameLeft           = "left"
	EventNameMessageCreated = "message.created"
	EventNameUnread         = "unread"
)

// RegisterData binds the connection to an authenticated user.
type RegisterData struct {
	Token string `json:"token"`
}

// RoomData scopes a join/leave request to one conversation's room.
type RoomData struct {
	ConversationID int64 `json:"conversation_id"`
}

// MsgData is a text message sent over the socket transport.
type MsgData struct {
	ConversationID int64  `json:"conversation_id"`
	Text           string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventRegistered confirms the connection is bound to a user.
type EventRegistered struct {
	UserID int64 `json:"user_id"`
}

// EventRoom acknowledges a room join or leave.
type EventRoom struct {
	ConversationID int64 `json:"conversation_id"`
}

// EventMessage is the full message payload delivered to room subscribers.
type EventMessage struct {
	ID              int64  `json:"id"`
	ConversationID  int64  `json:"conversation_id"`
	SenderID        int64  `json:"sender_id"`
	Kind            string `json:"kind"`
	Text            string `json:"text,omitempty"`
	MediaURL        string `json:"media_url,omitempty"`
	MediaType       string `json:"media_type,omitempty"`
	VoiceURL        string `json:"voice_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	TS              int64  `json:"ts"`
}

// EventUnread carries a user's fresh total unread count.
type EventUnread struct {
	Total int `json:"total"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
