package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/gamelink/gamelink-server/internal/auth"
	"github.com/gamelink/gamelink-server/internal/config"
	"github.com/gamelink/gamelink-server/internal/metrics"
	"github.com/gamelink/gamelink-server/internal/presence"
	"github.com/gamelink/gamelink-server/internal/service/messaging"
	"github.com/gamelink/gamelink-server/internal/service/posts"
	"github.com/gamelink/gamelink-server/internal/store"
	"github.com/gamelink/gamelink-server/internal/store/sqlite"
	transporthttp "github.com/gamelink/gamelink-server/internal/transport/http"
)

// App wires together the store, services and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	registry := presence.NewRegistry()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	mets := metrics.New(promRegistry)

	notifier := transporthttp.NewPushNotifier(registry, mets, logger)
	messagingService := messaging.New(st, notifier)
	postsService := posts.New(st)

	server := transporthttp.NewServer(cfg, transporthttp.Deps{
		Auth:      authService,
		Messaging: messagingService,
		Posts:     postsService,
		Store:     st,
		Registry:  registry,
		Metrics:   mets,
		Gatherer:  promRegistry,
		Log:       logger,
	})

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
