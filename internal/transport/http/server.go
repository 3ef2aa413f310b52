package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/auth"
	"github.com/duetlink/matchtalk/internal/config"
	"github.com/duetlink/matchtalk/internal/core"
	"github.com/duetlink/matchtalk/internal/service/conversations"
	"github.com/duetlink/matchtalk/internal/service/messaging"
)

// NewServer builds the HTTP server: public auth endpoints, authenticated
// conversation/message API, and the websocket endpoint.
func NewServer(
	hub *core.Hub,
	authService *auth.Service,
	convService *conversations.Service,
	msgService *messaging.Service,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(newRateLimiter(authRatePerMinute)))
	{
		api.POST("/register", RegisterHandler(authService, logger))
		api.POST("/login", LoginHandler(authService, logger))
	}

	authed := router.Group("/api")
	authed.Use(AuthMiddleware(authService, logger))
	{
		authed.POST("/conversations", CreateConversationHandler(convService, logger))
		authed.GET("/conversations", ListConversationsHandler(convService, logger))
		authed.DELETE("/conversations/:id", DeleteConversationHandler(convService, logger))
		authed.POST("/conversations/:id/pin", TogglePinHandler(convService, logger))
		authed.POST("/conversations/:id/read", MarkReadHandler(convService, logger))
		authed.POST("/conversations/:id/unread", MarkUnreadHandler(convService, logger))
		authed.GET("/conversations/:id/messages", GetMessagesHandler(msgService, logger))
		authed.POST("/conversations/:id/messages", SendMessageHandler(msgService, logger))
		authed.GET("/unread", TotalUnreadHandler(convService, logger))
	}

	wsh := newWSHandler(hub, authService, msgService, cfg, logger)
	router.GET("/ws", wsh.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
