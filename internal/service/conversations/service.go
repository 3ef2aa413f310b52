package conversations

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/store"
)

// Common errors for conversation operations.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
)

// BadgePublisher delivers unread-badge updates to a user's active connection.
type BadgePublisher interface {
	PublishUnread(userID int64, total int)
}

// Preview is one row of the conversation list view: the conversation, its
// most recent message, and the caller's unread count and pin flag.
type Preview struct {
	Conversation *store.Conversation
	LastMessage  *store.Message
	UnreadCount  int
	Pinned       bool
}

// Service provides conversation lifecycle and read-state business logic.
type Service struct {
	store     store.Store
	publisher BadgePublisher
	log       *zerolog.Logger
}

// New creates a conversation service. publisher may be nil in tests.
func New(st store.Store, publisher BadgePublisher, logger *zerolog.Logger) *Service {
	return &Service{
		store:     st,
		publisher: publisher,
		log:       logger,
	}
}

// CreateConversation returns the conversation between caller and other,
// creating it if absent. Both users must exist; repeated calls for the same
// pair, in either order, return the same conversation.
func (s *Service) CreateConversation(ctx context.Context, callerID, otherID int64) (*store.Conversation, error) {
	if callerID == otherID {
		return nil, ErrSelfConversation
	}

	if _, err := s.store.GetUserByID(ctx, callerID); err != nil {
		return nil, ErrUserNotFound
	}
	if _, err := s.store.GetUserByID(ctx, otherID); err != nil {
		return nil, ErrUserNotFound
	}

	conv, err := s.store.CreateOrGetConversation(ctx, callerID, otherID)
	if err != nil {
		return nil, fmt.Errorf("create or get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the caller's conversations with their previews,
// pinned conversations first, then most recently updated.
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]*Preview, error) {
	convs, err := s.store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	previews := make([]*Preview, 0, len(convs))
	for _, conv := range convs {
		last, err := s.store.LastMessage(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("last message: %w", err)
		}
		unread, err := s.store.CountUnread(ctx, conv.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
		pinned, err := s.store.IsPinned(ctx, conv.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("pin flag: %w", err)
		}
		previews = append(previews, &Preview{
			Conversation: conv,
			LastMessage:  last,
			UnreadCount:  unread,
			Pinned:       pinned,
		})
	}

	// The store already orders by updated_at descending; the pin is a
	// UI-level priority override on top of that.
	sort.SliceStable(previews, func(i, j int) bool {
		return previews[i].Pinned && !previews[j].Pinned
	})

	return previews, nil
}

// DeleteConversation removes a conversation and all its messages. Only a
// participant may delete it.
func (s *Service) DeleteConversation(ctx context.Context, conversationID, userID int64) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}

	if err := s.store.DeleteConversation(ctx, conv.ID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	s.log.Info().Int64("conversation_id", conv.ID).Int64("user_id", userID).Msg("conversation deleted")
	return nil
}

// TogglePin flips the caller's pin flag and returns the new state.
func (s *Service) TogglePin(ctx context.Context, conversationID, userID int64) (bool, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return false, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return false, ErrNotParticipant
	}

	pinned, err := s.store.IsPinned(ctx, conv.ID, userID)
	if err != nil {
		return false, fmt.Errorf("pin flag: %w", err)
	}
	if err := s.store.SetPinned(ctx, conv.ID, userID, !pinned); err != nil {
		return false, fmt.Errorf("set pin: %w", err)
	}
	return !pinned, nil
}

// TotalUnread returns the caller's unread count summed over all their
// conversations.
func (s *Service) TotalUnread(ctx context.Context, userID int64) (int, error) {
	total, err := s.store.TotalUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("total unread: %w", err)
	}
	return total, nil
}

// MarkRead marks every inbound message of the conversation as read and
// pushes the caller's fresh badge to their active connection.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID int64) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}

	if err := s.store.MarkConversationRead(ctx, conv.ID, userID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	s.publishBadge(ctx, userID)
	return nil
}

// MarkUnread flips the latest inbound message back to unread.
func (s *Service) MarkUnread(ctx context.Context, conversationID, userID int64) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}

	if err := s.store.MarkConversationUnread(ctx, conv.ID, userID); err != nil {
		return fmt.Errorf("mark unread: %w", err)
	}

	s.publishBadge(ctx, userID)
	return nil
}

func (s *Service) publishBadge(ctx context.Context, userID int64) {
	if s.publisher == nil {
		return
	}
	total, err := s.store.TotalUnread(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to derive unread total")
		return
	}
	s.publisher.PublishUnread(userID, total)
}
