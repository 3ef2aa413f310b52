package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/store"
)

// Common errors for messaging operations.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant")
	ErrInvalidPayload       = errors.New("invalid message payload")
)

// Publisher delivers realtime notifications for persisted messages.
// Delivery is best-effort and never fails the send.
type Publisher interface {
	// PublishMessage broadcasts a message to its conversation room.
	PublishMessage(conversationID int64, msg *store.Message)

	// PublishUnread delivers a fresh total unread count to one user.
	PublishUnread(userID int64, total int)
}

// Payload carries exactly one message variant. Zero or multiple variants are
// rejected before anything is persisted.
type Payload struct {
	Text            string
	MediaURL        string
	MediaType       store.MediaType
	VoiceURL        string
	DurationSeconds int
}

// kind validates the payload and returns its variant.
func (p Payload) kind() (store.MessageKind, error) {
	hasText := strings.TrimSpace(p.Text) != ""
	hasMedia := p.MediaURL != "" || p.MediaType != ""
	hasVoice := p.VoiceURL != "" || p.DurationSeconds != 0

	set := 0
	for _, has := range []bool{hasText, hasMedia, hasVoice} {
		if has {
			set++
		}
	}
	if set != 1 {
		return "", fmt.Errorf("%w: exactly one of text, media, voice must be set", ErrInvalidPayload)
	}

	switch {
	case hasText:
		return store.MessageKindText, nil
	case hasMedia:
		if p.MediaURL == "" {
			return "", fmt.Errorf("%w: media url is required", ErrInvalidPayload)
		}
		if p.MediaType != store.MediaTypeImage && p.MediaType != store.MediaTypeVideo {
			return "", fmt.Errorf("%w: media type must be image or video", ErrInvalidPayload)
		}
		return store.MessageKindMedia, nil
	default:
		if p.VoiceURL == "" {
			return "", fmt.Errorf("%w: voice url is required", ErrInvalidPayload)
		}
		if p.DurationSeconds <= 0 {
			return "", fmt.Errorf("%w: duration must be positive", ErrInvalidPayload)
		}
		return store.MessageKindVoice, nil
	}
}

// Service validates and persists messages, then publishes them to the single
// room-based fan-out path. All message-creation paths (REST and socket) go
// through here.
type Service struct {
	store     store.Store
	publisher Publisher
	log       *zerolog.Logger
}

// New creates a messaging service. publisher may be nil in tests.
func New(st store.Store, publisher Publisher, logger *zerolog.Logger) *Service {
	return &Service{
		store:     st,
		publisher: publisher,
		log:       logger,
	}
}

// SendText sends a plain text message.
func (s *Service) SendText(ctx context.Context, conversationID, senderID int64, text string) (*store.Message, error) {
	return s.send(ctx, conversationID, senderID, Payload{Text: text})
}

// SendMedia sends an image or video message. The media url points at an
// already uploaded attachment; this service never touches raw bytes.
func (s *Service) SendMedia(ctx context.Context, conversationID, senderID int64, mediaURL string, mediaType store.MediaType) (*store.Message, error) {
	return s.send(ctx, conversationID, senderID, Payload{MediaURL: mediaURL, MediaType: mediaType})
}

// SendVoice sends a voice message referencing an uploaded recording.
func (s *Service) SendVoice(ctx context.Context, conversationID, senderID int64, voiceURL string, durationSeconds int) (*store.Message, error) {
	return s.send(ctx, conversationID, senderID, Payload{VoiceURL: voiceURL, DurationSeconds: durationSeconds})
}

// Send sends a message with an explicit payload.
func (s *Service) Send(ctx context.Context, conversationID, senderID int64, payload Payload) (*store.Message, error) {
	return s.send(ctx, conversationID, senderID, payload)
}

// send is the validate-then-persist path. Nothing is written unless every
// check passes.
func (s *Service) send(ctx context.Context, conversationID, senderID int64, payload Payload) (*store.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	kind, err := payload.kind()
	if err != nil {
		return nil, err
	}

	msg := &store.Message{
		ConversationID:  conv.ID,
		SenderID:        senderID,
		Kind:            kind,
		Text:            payload.Text,
		MediaURL:        payload.MediaURL,
		MediaType:       payload.MediaType,
		VoiceURL:        payload.VoiceURL,
		DurationSeconds: payload.DurationSeconds,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if err := s.store.TouchConversation(ctx, conv.ID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	s.notify(ctx, conv, msg)
	return msg, nil
}

// notify publishes the message to its room and a badge update to the
// recipient. Failures here are logged and never propagated: the send already
// succeeded once persisted.
func (s *Service) notify(ctx context.Context, conv *store.Conversation, msg *store.Message) {
	if s.publisher == nil {
		return
	}

	s.publisher.PublishMessage(conv.ID, msg)

	recipient := conv.OtherParticipant(msg.SenderID)
	total, err := s.store.TotalUnread(ctx, recipient)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", recipient).Msg("failed to derive unread total")
		return
	}
	s.publisher.PublishUnread(recipient, total)
}

// GetMessages returns the conversation history in chronological order.
func (s *Service) GetMessages(ctx context.Context, conversationID, requestingUserID int64) ([]*store.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(requestingUserID) {
		return nil, ErrNotParticipant
	}

	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
