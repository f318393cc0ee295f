package solvine

import (
	"log/slog"

	"github.com/solvine-ai/solvine/internal/config"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	port            int
	store           string
	databaseURL     string
	sqlitePath      string
	logger          *slog.Logger
	version         string
	backend         Backend
	eventHooks      []EventHook
	routeRegistrars []RouteRegistrar
	middlewares     []Middleware
}

// WithPort overrides the TCP port from config (SOLVINE_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabaseURL selects the Postgres store and overrides DATABASE_URL.
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) {
		o.store = config.StorePostgres
		o.databaseURL = url
	}
}

// WithSQLitePath selects the SQLite store and overrides SOLVINE_SQLITE_PATH.
func WithSQLitePath(path string) Option {
	return func(o *resolvedOptions) {
		o.store = config.StoreSQLite
		o.sqlitePath = path
	}
}

// WithMemoryStore keeps DYNAMIC agents in process memory only, whatever
// SOLVINE_STORE says.
func WithMemoryStore() Option {
	return func(o *resolvedOptions) { o.store = config.StoreMemory }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithBackend sets the execution backend used for queries.
// Only the last call wins.
func WithBackend(b Backend) Option {
	return func(o *resolvedOptions) { o.backend = b }
}

// WithEventHook registers a hook for agent lifecycle notifications.
// Multiple hooks may be registered; all registered hooks receive every event.
func WithEventHook(hook EventHook) Option {
	return func(o *resolvedOptions) { o.eventHooks = append(o.eventHooks, hook) }
}

// WithExtraRoutes registers additional routes on the shared HTTP mux.
// Multiple registrars may be registered; all are called in registration order.
func WithExtraRoutes(fn RouteRegistrar) Option {
	return func(o *resolvedOptions) { o.routeRegistrars = append(o.routeRegistrars, fn) }
}

// WithMiddleware registers an outermost HTTP middleware.
// Multiple middlewares may be registered. Applied in registration order:
// the first-registered middleware is outermost (called first by every request).
func WithMiddleware(mw Middleware) Option {
	return func(o *resolvedOptions) { o.middlewares = append(o.middlewares, mw) }
}
