package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/service/messaging"
	"github.com/duetlink/matchtalk/internal/store"
)

// MessageResponse is the wire representation of a message.
type MessageResponse struct {
	ID              int64  `json:"id"`
	ConversationID  int64  `json:"conversation_id"`
	SenderID        int64  `json:"sender_id"`
	Kind            string `json:"kind"`
	Text            string `json:"text,omitempty"`
	MediaURL        string `json:"media_url,omitempty"`
	MediaType       string `json:"media_type,omitempty"`
	VoiceURL        string `json:"voice_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	IsRead          bool   `json:"is_read"`
	CreatedAt       string `json:"created_at"`
}

// SendMessageRequest carries exactly one message variant.
type SendMessageRequest struct {
	Text            string `json:"text"`
	MediaURL        string `json:"media_url"`
	MediaType       string `json:"media_type"`
	VoiceURL        string `json:"voice_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

func messageResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		ID:              msg.ID,
		ConversationID:  msg.ConversationID,
		SenderID:        msg.SenderID,
		Kind:            string(msg.Kind),
		Text:            msg.Text,
		MediaURL:        msg.MediaURL,
		MediaType:       string(msg.MediaType),
		VoiceURL:        msg.VoiceURL,
		DurationSeconds: msg.DurationSeconds,
		IsRead:          msg.IsRead,
		CreatedAt:       msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// respondMessagingError maps messaging service errors to HTTP statuses.
func respondMessagingError(c *gin.Context, logger *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, messaging.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
	case errors.Is(err, messaging.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant"})
	case errors.Is(err, messaging.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.Error().Err(err).Msg("messaging operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// GetMessagesHandler returns the conversation history in chronological order.
func GetMessagesHandler(svc *messaging.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		convID, ok := conversationIDParam(c)
		if !ok {
			return
		}

		messages, err := svc.GetMessages(c.Request.Context(), convID, userID)
		if err != nil {
			respondMessagingError(c, logger, err)
			return
		}

		resp := make([]MessageResponse, 0, len(messages))
		for _, msg := range messages {
			resp = append(resp, messageResponse(msg))
		}

		c.JSON(http.StatusOK, gin.H{"messages": resp})
	}
}

// SendMessageHandler persists one message and fans it out to the room.
func SendMessageHandler(svc *messaging.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		convID, ok := conversationIDParam(c)
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}

		msg, err := svc.Send(c.Request.Context(), convID, userID, messaging.Payload{
			Text:            req.Text,
			MediaURL:        req.MediaURL,
			MediaType:       store.MediaType(req.MediaType),
			VoiceURL:        req.VoiceURL,
			DurationSeconds: req.DurationSeconds,
		})
		if err != nil {
			respondMessagingError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, messageResponse(msg))
	}
}
