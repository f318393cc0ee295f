package solvine

import (
	"context"
	"net/http"
)

// Backend produces an agent's reply to a query. The registry resolves the
// target first; a Backend only ever sees visible agents.
// When none is provided via WithBackend, queries get a fixed acknowledgement.
type Backend interface {
	Respond(ctx context.Context, agent Agent, message string) (string, error)
}

// EventHook receives async notifications after agents are created or deleted.
// Multiple hooks may be registered via multiple WithEventHook calls.
// Hook methods run in goroutines; they must not block indefinitely.
// Failures are logged but do not fail the originating request.
type EventHook interface {
	// OnAgentCreated is called after a DYNAMIC agent is stored. upgraded is
	// true when it now hides a built-in agent of the same name.
	OnAgentCreated(ctx context.Context, agent Agent, upgraded bool) error
	// OnAgentDeleted is called after a DYNAMIC agent is removed. unshadowed is
	// true when a built-in agent of the same name is visible again.
	OnAgentDeleted(ctx context.Context, agent Agent, unshadowed bool) error
}

// RouteRegistrar registers additional routes on the shared HTTP mux.
// Extra routes share the mux, auth chain and OTEL instrumentation with the
// built-in routes. requireAdmin wraps a handler with the admin token check
// (a no-op when auth is disabled).
type RouteRegistrar func(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler)

// Middleware wraps the root HTTP handler.
// Applied outermost (before routing), so it sees all requests including /health.
// Multiple middlewares are applied in registration order (first-registered = outermost).
type Middleware func(http.Handler) http.Handler
