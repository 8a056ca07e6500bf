package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gamelink/gamelink-server/internal/auth"
	"github.com/gamelink/gamelink-server/internal/config"
	"github.com/gamelink/gamelink-server/internal/metrics"
	"github.com/gamelink/gamelink-server/internal/presence"
	"github.com/gamelink/gamelink-server/internal/service/messaging"
	"github.com/gamelink/gamelink-server/internal/service/posts"
	"github.com/gamelink/gamelink-server/internal/store"
)

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	Auth      *auth.Service
	Messaging *messaging.Service
	Posts     *posts.Service
	Store     store.Store
	Registry  *presence.Registry
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Log       *zerolog.Logger
}

// NewServer builds the HTTP server with REST routes and the push endpoint.
func NewServer(cfg *config.Config, deps Deps) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(deps.Log))

	apiHandlers := NewAPIHandlers(deps.Auth, deps.Log)
	userHandlers := NewUserHandlers(deps.Store, deps.Log)
	messageHandlers := NewMessageHandlers(deps.Messaging, deps.Log)
	postHandlers := NewPostHandlers(deps.Posts, deps.Log)
	wsHandler := NewWSHandler(deps.Auth, deps.Registry, deps.Metrics, deps.Log)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	if cfg.MetricsEnabled && deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	router.POST("/api/auth/register", apiHandlers.Register)
	router.POST("/api/auth/login", apiHandlers.Login)

	// Feed reads are public, like the rest of the site.
	router.GET("/api/posts", postHandlers.Feed)

	authorized := router.Group("/api")
	authorized.Use(AuthMiddleware(deps.Auth, deps.Log))
	{
		authorized.GET("/auth/me", userHandlers.Me)
		authorized.PUT("/auth/profile", userHandlers.UpdateProfile)

		authorized.GET("/messages/users", messageHandlers.ListPartners)
		authorized.GET("/messages/unread/:id", messageHandlers.UnreadCount)
		authorized.GET("/messages/:id", messageHandlers.GetConversation)
		authorized.POST("/messages/send/:id", messageHandlers.Send)
		authorized.POST("/messages/read/:id", messageHandlers.MarkRead)

		authorized.POST("/posts", postHandlers.Create)
	}

	router.GET("/ws", wsHandler.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
