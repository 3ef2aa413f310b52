package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/service/conversations"
	"github.com/duetlink/matchtalk/internal/store"
)

// ConversationResponse is the wire representation of a conversation.
type ConversationResponse struct {
	ID           int64    `json:"id"`
	Participants [2]int64 `json:"participants"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// PreviewResponse is one row of the conversation list.
type PreviewResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	LastMessage  *MessageResponse     `json:"last_message,omitempty"`
	UnreadCount  int                  `json:"unread_count"`
	Pinned       bool                 `json:"pinned"`
}

// CreateConversationRequest opens (or returns) the conversation with another user.
type CreateConversationRequest struct {
	OtherUserID int64 `json:"other_user_id" binding:"required"`
}

func conversationResponse(conv *store.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:           conv.ID,
		Participants: [2]int64{conv.UserAID, conv.UserBID},
		CreatedAt:    conv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    conv.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// conversationIDParam parses the :id path segment. On failure it writes the
// 400 response and returns false.
func conversationIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id"})
		return 0, false
	}
	return id, true
}

// respondConversationError maps conversation service errors to HTTP statuses.
func respondConversationError(c *gin.Context, logger *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, conversations.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
	case errors.Is(err, conversations.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
	case errors.Is(err, conversations.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant"})
	case errors.Is(err, conversations.ErrSelfConversation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot start a conversation with yourself"})
	default:
		logger.Error().Err(err).Msg("conversation operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// CreateConversationHandler opens the conversation between the caller and
// another user, creating it on first contact.
func CreateConversationHandler(svc *conversations.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req CreateConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}

		conv, err := svc.CreateConversation(c.Request.Context(), userID, req.OtherUserID)
		if err != nil {
			respondConversationError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, conversationResponse(conv))
	}
}

// ListConversationsHandler returns the caller's conversation previews,
// pinned first, then most recently active.
func ListConversationsHandler(svc *conversations.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		previews, err := svc.ListConversations(c.Request.Context(), userID)
		if err != nil {
			respondConversationError(c, logger, err)
			return
		}

		resp := make([]PreviewResponse, 0, len(previews))
		for _, p := range previews {
			row := PreviewResponse{
				Conversation: conversationResponse(p.Conversation),
				UnreadCount:  p.UnreadCount,
				Pinned:       p.Pinned,
			}
			if p.LastMessage != nil {
				m := messageResponse(p.LastMessage)
				row.LastMessage = &m
			}
			resp = append(resp, row)
		}

		c.JSON(http.StatusOK, gin.H{"conversations": resp})
	}
}

// DeleteConversationHandler removes a conversation and its history.
func DeleteConversationHandler(svc *conversations.Service, logger *zerolog.Logger) gin.HandlerFunc {
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

		if err := svc.DeleteConversation(c.Request.Context(), convID, userID); err != nil {
			respondConversationError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// TogglePinHandler flips the caller's pin flag on a conversation.
func TogglePinHandler(svc *conversations.Service, logger *zerolog.Logger) gin.HandlerFunc {
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

		pinned, err := svc.TogglePin(c.Request.Context(), convID, userID)
		if err != nil {
			respondConversationError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"pinned": pinned})
	}
}

// MarkReadHandler marks every inbound message in the conversation as read.
func MarkReadHandler(svc *conversations.Service, logger *zerolog.Logger) gin.HandlerFunc {
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

		if err := svc.MarkRead(c.Request.Context(), convID, userID); err != nil {
			respondConversationError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"read": true})
	}
}

// MarkUnreadHandler flips the latest inbound message back to unread.
func MarkUnreadHandler(svc *conversations.Service, logger *zerolog.Logger) gin.HandlerFunc {
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

		if err := svc.MarkUnread(c.Request.Context(), convID, userID); err != nil {
			respondConversationError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"unread": true})
	}
}

// TotalUnreadHandler returns the caller's unread badge count.
func TotalUnreadHandler(svc *conversations.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		total, err := svc.TotalUnread(c.Request.Context(), userID)
		if err != nil {
			respondConversationError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"total": total})
	}
}
