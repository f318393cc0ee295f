// Package solvine embeds the Solvine agent registry server.
//
// The cmd/solvine binary is a thin wrapper around App; other programs can
// build the same server with their own execution backend, lifecycle hooks,
// routes and middleware:
//
//	app, err := solvine.New(ctx, solvine.WithBackend(myBackend))
//	if err != nil { ... }
//	err = app.Run(ctx)
package solvine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/solvine-ai/solvine/internal/auth"
	"github.com/solvine-ai/solvine/internal/config"
	"github.com/solvine-ai/solvine/internal/mcp"
	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/ratelimit"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/registry/catalog"
	"github.com/solvine-ai/solvine/internal/server"
	"github.com/solvine-ai/solvine/internal/service/agents"
	"github.com/solvine-ai/solvine/internal/service/dispatch"
	"github.com/solvine-ai/solvine/internal/storage"
	"github.com/solvine-ai/solvine/internal/storage/postgres"
	"github.com/solvine-ai/solvine/internal/storage/sqlite"
	"github.com/solvine-ai/solvine/internal/telemetry"
)

// headEmoji decorates the HEAD agent in listings and prompts.
const headEmoji = "🧠"

// App is a fully wired Solvine server.
type App struct {
	cfg          config.Config
	agentSvc     *agents.Service
	srv          *server.Server
	store        storage.Store
	limiter      ratelimit.Limiter
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New loads configuration from the environment, applies opts on top of it
// and wires every subsystem. DYNAMIC agents saved by a previous run are
// restored before New returns.
func New(ctx context.Context, opts ...Option) (_ *App, err error) {
	o := resolvedOptions{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Parse()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("solvine starting", "version", o.version, "port", cfg.Port, "store", cfg.Store)

	otelShutdown, err := telemetry.Init(ctx, telemetry.Options{
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     o.version,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = otelShutdown(context.Background())
		}
	}()

	cat, err := catalog.Load(cfg.MockCatalogPath)
	if err != nil {
		return nil, err
	}
	mocks := cat.Agents
	reg, err := registry.New(registry.Config{
		Head: model.AgentRecord{
			Name:        cfg.HeadAgent,
			Role:        cfg.HeadRole,
			Stability:   cfg.HeadStability,
			DisplayName: displayName(cfg.HeadAgent),
			Emoji:       headEmoji,
		},
		Mocks: mocks,
	})
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = store.Close(context.Background())
		}
	}()

	agentSvc := agents.New(reg, store, cfg.DefaultStability, logger)
	res, err := agentSvc.Rehydrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("rehydrate: %w", err)
	}
	for _, h := range o.eventHooks {
		agentSvc.AddHook(hookAdapter{hook: h})
	}
	logger.Info("registry ready",
		"head", reg.HeadName(),
		"mock_agents", len(mocks),
		"restored", res.Restored,
		"skipped", res.Skipped,
	)

	var backend dispatch.Backend
	if o.backend != nil {
		backend = backendAdapter{backend: o.backend}
	}
	gate := dispatch.NewGate(agentSvc, backend, logger).WithRoutes(cat.Routes)
	mcpSrv := mcp.New(agentSvc, gate, o.version, logger)

	adminKey, err := auth.NewAdminKey(cfg.AdminAPIKey)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	var jwtMgr *auth.JWTManager
	if adminKey != nil {
		jwtMgr, err = auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration, logger)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		logger.Info("auth: admin token required for mutations")
	} else {
		logger.Warn("auth: disabled (no SOLVINE_ADMIN_API_KEY); mutating routes are open")
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	extraRoutes := make([]func(*http.ServeMux, func(http.Handler) http.Handler), 0, len(o.routeRegistrars))
	for _, r := range o.routeRegistrars {
		extraRoutes = append(extraRoutes, r)
	}
	middlewares := make([]func(http.Handler) http.Handler, 0, len(o.middlewares))
	for _, mw := range o.middlewares {
		middlewares = append(middlewares, mw)
	}

	srv := server.New(server.ServerConfig{
		AgentSvc:            agentSvc,
		Gate:                gate,
		Logger:              logger,
		JWTMgr:              jwtMgr,
		AdminKey:            adminKey,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             o.version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ExtraRoutes:         extraRoutes,
		Middlewares:         middlewares,
	})

	return &App{
		cfg:          cfg,
		agentSvc:     agentSvc,
		srv:          srv,
		store:        store,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      o.version,
	}, nil
}

// Handler returns the root HTTP handler, middleware included.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Agents returns the currently visible agents, HEAD first.
func (a *App) Agents(ctx context.Context) []Agent {
	recs := a.agentSvc.List(ctx)
	out := make([]Agent, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toPublicAgent(rec))
	}
	return out
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails. On return, Shutdown has already been called; callers should not call
// it separately.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown drains in-flight HTTP requests, then closes the store, the rate
// limiter and the OTEL providers.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("solvine shutting down")

	var errs []error
	if err := a.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.limiter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("rate limiter: %w", err))
	}
	if err := a.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := a.otelShutdown(ctx); err != nil {
		a.logger.Warn("otel shutdown failed", "error", err)
	}

	a.logger.Info("solvine stopped")
	return errors.Join(errs...)
}

func applyOverrides(cfg *config.Config, o resolvedOptions) {
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.store != "" {
		cfg.Store = o.store
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
}

// openStore returns the persistence backend named by cfg.Store.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return sqlite.New(ctx, cfg.SQLitePath, logger)
	case config.StorePostgres:
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	default:
		return storage.NewMemoryStore(), nil
	}
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ── Adapters ───────────────────────────────────────────────────────────────────

// backendAdapter wraps a solvine.Backend to satisfy dispatch.Backend.
type backendAdapter struct {
	backend Backend
}

func (b backendAdapter) Respond(ctx context.Context, agent model.AgentRecord, message string) (string, error) {
	return b.backend.Respond(ctx, toPublicAgent(agent), message)
}

// hookAdapter wraps a solvine.EventHook to satisfy agents.Hook.
type hookAdapter struct {
	hook EventHook
}

func (h hookAdapter) OnAgentCreated(ctx context.Context, agent model.AgentRecord, upgraded bool) error {
	return h.hook.OnAgentCreated(ctx, toPublicAgent(agent), upgraded)
}

func (h hookAdapter) OnAgentDeleted(ctx context.Context, agent model.AgentRecord, unshadowed bool) error {
	return h.hook.OnAgentDeleted(ctx, toPublicAgent(agent), unshadowed)
}
