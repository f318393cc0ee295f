package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/cors"

	"github.com/solvine-ai/solvine/internal/auth"
	"github.com/solvine-ai/solvine/internal/ratelimit"
	"github.com/solvine-ai/solvine/internal/service/agents"
	"github.com/solvine-ai/solvine/internal/service/dispatch"
)

// Server is the Solvine HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): JWTMgr, AdminKey, Limiter, MCPServer.
type ServerConfig struct {
	// Required dependencies.
	AgentSvc *agents.Service
	Gate     *dispatch.Gate
	Logger   *slog.Logger

	// Optional dependencies (nil = disabled).
	JWTMgr    *auth.JWTManager
	AdminKey  *auth.AdminKey
	Limiter   ratelimit.Limiter
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string

	// ExtraRoutes are called once after the built-in routes are registered.
	// requireAdmin applies the same token check as the built-in mutations.
	ExtraRoutes []func(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler)
	// Middlewares wrap the whole chain; the first entry is outermost.
	Middlewares []func(http.Handler) http.Handler
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		AgentSvc:            cfg.AgentSvc,
		Gate:                cfg.Gate,
		JWTMgr:              cfg.JWTMgr,
		AdminKey:            cfg.AdminKey,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	authEnabled := cfg.AdminKey != nil && cfg.JWTMgr != nil
	adminOnly := requireAdmin(cfg.AdminKey, cfg.JWTMgr)

	mux := http.NewServeMux()

	// Reads are always open.
	mux.HandleFunc("GET /agents", h.HandleListAgents)
	mux.HandleFunc("GET /agents/{name}", h.HandleGetAgent)
	mux.HandleFunc("GET /status", h.HandleStatus)
	mux.HandleFunc("POST /query", h.HandleQuery)

	// Mutations require an admin token when an admin key is configured.
	mux.Handle("POST /agents", adminOnly(http.HandlerFunc(h.HandleCreateAgent)))
	mux.Handle("POST /create_agent", adminOnly(http.HandlerFunc(h.HandleCreateAgent)))
	mux.Handle("DELETE /agents/{name}", adminOnly(http.HandlerFunc(h.HandleDeleteAgent)))

	if authEnabled {
		mux.HandleFunc("POST /auth/token", h.HandleAuthToken)
	}

	// MCP tools can mutate the registry, so the whole transport sits behind
	// the same check as the HTTP mutations.
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", adminOnly(mcpHTTP))
	}

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	for _, register := range cfg.ExtraRoutes {
		register(mux, adminOnly)
	}

	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}
	rateLimit := ratelimit.Middleware(cfg.Limiter, ratelimit.SkipPaths(ratelimit.IPKeyFunc, "/health"), reqIDFunc, cfg.Logger)

	// Middleware chain (outermost executes first):
	// request ID → security headers → CORS → tracing → logging → rate limit → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = rateLimit(handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = newCORS(cfg.CORSAllowedOrigins).Handler(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)
	for _, mw := range slices.Backward(cfg.Middlewares) {
		handler = mw(handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		// Credentials cannot be combined with a wildcard origin.
		AllowCredentials: !slices.Contains(origins, "*"),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
	})
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
