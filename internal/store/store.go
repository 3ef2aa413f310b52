package store

import (
	"context"
	"fmt"
	"time"
)

// User represents a registered user referenced by the messaging core.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Conversation is a two-party messaging thread. Participants are stored
// normalized (UserAID < UserBID) so the unordered pair has a single canonical
// representation enforceable by a unique index.
type Conversation struct {
	ID        int64
	UserAID   int64
	UserBID   int64
	PairKey   string // "dm:{minUserId}:{maxUserId}", unique
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID int64) bool {
	return userID == c.UserAID || userID == c.UserBID
}

// OtherParticipant returns the participant that is not userID.
// The caller must already have verified membership.
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if userID == c.UserAID {
		return c.UserBID
	}
	return c.UserAID
}

// PairKey builds the canonical dedup key for an unordered user pair.
func PairKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("dm:%d:%d", userA, userB)
}

// MessageKind discriminates the message payload variant.
type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindMedia MessageKind = "media"
	MessageKindVoice MessageKind = "voice"
)

// MediaType narrows media messages to the supported attachment types.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Message is a persisted chat message. Exactly one payload variant is set,
// discriminated by Kind: Text, MediaURL+MediaType, or VoiceURL+DurationSeconds.
// IsRead is scoped to the recipient (the non-sender participant).
type Message struct {
	ID              int64
	ConversationID  int64
	SenderID        int64
	Kind            MessageKind
	Text            string
	MediaURL        string
	MediaType       MediaType
	VoiceURL        string
	DurationSeconds int
	IsRead          bool
	CreatedAt       time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ConversationStore handles conversation persistence and the two-participant
// membership invariant.
type ConversationStore interface {
	// CreateOrGetConversation returns the conversation for the unordered
	// pair {userA, userB}, creating it if absent. Repeated and concurrent
	// calls for the same pair resolve to the same row: the insert is an
	// upsert against the unique pair_key index.
	CreateOrGetConversation(ctx context.Context, userA, userB int64) (*Conversation, error)

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, id int64) (*Conversation, error)

	// ListConversationsForUser lists the conversations userID participates
	// in, ordered by updated_at descending.
	ListConversationsForUser(ctx context.Context, userID int64) ([]*Conversation, error)

	// DeleteConversation removes a conversation and cascades to its
	// messages and pin flags. Membership enforcement belongs to the
	// service layer.
	DeleteConversation(ctx context.Context, id int64) error

	// SetPinned sets the per-user pin flag on a conversation.
	SetPinned(ctx context.Context, conversationID, userID int64, pinned bool) error

	// IsPinned reports the per-user pin flag.
	IsPinned(ctx context.Context, conversationID, userID int64) (bool, error)

	// TouchConversation moves updated_at forward to at. Updates are
	// monotonic: a timestamp older than the stored one is a no-op, so
	// concurrent senders cannot move the conversation backwards.
	TouchConversation(ctx context.Context, id int64, at time.Time) error
}

// MessageStore handles message persistence and read-state bookkeeping.
type MessageStore interface {
	// AppendMessage persists a message with IsRead=false and assigns its ID.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns a conversation's messages ascending by
	// created_at, ties broken by insertion order.
	ListMessages(ctx context.Context, conversationID int64) ([]*Message, error)

	// LastMessage returns the most recent message of a conversation, or
	// nil if the conversation has none.
	LastMessage(ctx context.Context, conversationID int64) (*Message, error)

	// CountUnread counts messages in the conversation authored by the
	// other participant and not yet read by userID.
	CountUnread(ctx context.Context, conversationID, userID int64) (int, error)

	// TotalUnread sums CountUnread across every conversation userID
	// participates in.
	TotalUnread(ctx context.Context, userID int64) (int, error)

	// MarkConversationRead marks all messages not authored by userID as read.
	MarkConversationRead(ctx context.Context, conversationID, userID int64) error

	// MarkConversationUnread flips the latest inbound message back to unread.
	MarkConversationUnread(ctx context.Context, conversationID, userID int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ConversationStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
