package core

import "github.com/duetlink/matchtalk/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRegistered confirms that the connection is bound to a user.
	EventRegistered EventKind = iota
	// EventJoined confirms that the connection joined a conversation room.
	EventJoined
	// EventLeft confirms that the connection left a conversation room.
	EventLeft
	// EventMessageCreated notifies room subscribers about a new message.
	EventMessageCreated
	// EventUnread delivers a fresh total unread count to one user.
	EventUnread
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind           EventKind
	ConversationID int64
	UserID         int64
	Message        *store.Message // non-nil for EventMessageCreated
	TotalUnread    int            // for EventUnread
	Error          *CoreError     // non-nil for EventError
}
