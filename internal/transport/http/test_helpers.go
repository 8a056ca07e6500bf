package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/gamelink/gamelink-server/internal/auth"
	"github.com/gamelink/gamelink-server/internal/config"
	"github.com/gamelink/gamelink-server/internal/metrics"
	"github.com/gamelink/gamelink-server/internal/presence"
	"github.com/gamelink/gamelink-server/internal/service/messaging"
	"github.com/gamelink/gamelink-server/internal/service/posts"
	"github.com/gamelink/gamelink-server/internal/store"
	"github.com/gamelink/gamelink-server/internal/store/sqlite"
)

// testEnv bundles a fully wired server plus the pieces tests poke at directly.
type testEnv struct {
	server   *stdhttp.Server
	store    store.Store
	auth     *auth.Service
	registry *presence.Registry
	metrics  *metrics.Metrics
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

// newTestEnv wires a complete server against an in-memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := createTestStore(t)
	t.Cleanup(func() { st.Close() })

	authService := createTestAuthService(t, st, "test-secret")
	registry := presence.NewRegistry()

	promReg := prometheus.NewRegistry()
	mets := metrics.New(promReg)

	disabledLogger := zerolog.New(nil)

	notifier := NewPushNotifier(registry, mets, &disabledLogger)
	messagingService := messaging.New(st, notifier)
	postsService := posts.New(st)

	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		JWTSecret:         "test-secret",
		MetricsEnabled:    true,
	}

	server := NewServer(&cfg, Deps{
		Auth:      authService,
		Messaging: messagingService,
		Posts:     postsService,
		Store:     st,
		Registry:  registry,
		Metrics:   mets,
		Gatherer:  promReg,
		Log:       &disabledLogger,
	})

	return &testEnv{
		server:   server,
		store:    st,
		auth:     authService,
		registry: registry,
		metrics:  mets,
	}
}

// registerUser registers a user and returns its token.
func (env *testEnv) registerUser(t *testing.T, username string) string {
	t.Helper()

	token, err := env.auth.Register(context.Background(), username, username, "password123")
	if err != nil {
		t.Fatalf("failed to register user %s: %v", username, err)
	}
	return token
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// userID looks up a registered user's id by username.
func (env *testEnv) userID(t *testing.T, username string) int64 {
	t.Helper()

	u, err := env.store.GetUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("failed to look up user %s: %v", username, err)
	}
	return u.ID
}
