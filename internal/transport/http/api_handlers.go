package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/auth"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is the response for successful auth operations.
type AuthResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// ErrorResponse is a generic error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterHandler handles user registration.
func RegisterHandler(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}

		token, user, err := authService.Register(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			logger.Debug().Err(err).Str("username", req.Username).Msg("registration failed")
			switch {
			case errors.Is(err, auth.ErrUserExists):
				c.JSON(http.StatusConflict, ErrorResponse{Error: "username already taken"})
			case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "registration failed"})
			}
			return
		}

		c.JSON(http.StatusCreated, AuthResponse{
			Token:    token,
			UserID:   user.ID,
			Username: user.Username,
		})
	}
}

// LoginHandler handles user login.
func LoginHandler(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}

		token, user, err := authService.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			logger.Debug().Err(err).Str("username", req.Username).Msg("login failed")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}

		c.JSON(http.StatusOK, AuthResponse{
			Token:    token,
			UserID:   user.ID,
			Username: user.Username,
		})
	}
}
