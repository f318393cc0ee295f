// Package dispatch gates query/chat traffic on registry resolution.
//
// A message is only handed to the execution Backend after the target name
// resolves to a visible agent; unknown names are rejected with the
// registry's NotFound error, which carries the currently visible names.
// A message that names no agent is routed by keyword, falling back to HEAD.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/registry/catalog"
)

// MaxMessageRunes bounds the size of a dispatched message.
const MaxMessageRunes = 8000

// ErrBackendUnavailable wraps failures of the execution backend.
var ErrBackendUnavailable = errors.New("dispatch: backend unavailable")

// Backend produces an agent's reply. Implementations live outside the
// registry; the gate never inspects the reply.
type Backend interface {
	Respond(ctx context.Context, agent model.AgentRecord, message string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, agent model.AgentRecord, message string) (string, error)

func (f BackendFunc) Respond(ctx context.Context, agent model.AgentRecord, message string) (string, error) {
	return f(ctx, agent, message)
}

// AckBackend replies with a fixed acknowledgement naming the agent. It is the
// default when no execution backend is wired.
type AckBackend struct{}

func (AckBackend) Respond(_ context.Context, agent model.AgentRecord, message string) (string, error) {
	label := agent.DisplayName
	if label == "" {
		label = agent.Name
	}
	return fmt.Sprintf("%s (%s) received your message (%d characters).", label, agent.Role, utf8.RuneCountInString(message)), nil
}

// Resolver is the subset of the agents service the gate needs.
type Resolver interface {
	Resolve(ctx context.Context, name string) (model.AgentRecord, error)
	List(ctx context.Context) []model.AgentRecord
	HeadName() string
}

// Gate resolves then dispatches.
type Gate struct {
	resolver Resolver
	backend  Backend
	routes   []catalog.Route
	logger   *slog.Logger
	now      func() time.Time
}

// NewGate returns a Gate. A nil backend means AckBackend.
func NewGate(resolver Resolver, backend Backend, logger *slog.Logger) *Gate {
	if backend == nil {
		backend = AckBackend{}
	}
	return &Gate{resolver: resolver, backend: backend, logger: logger, now: time.Now}
}

// WithRoutes sets the keyword routes used for unaddressed messages and
// returns g.
func (g *Gate) WithRoutes(routes []catalog.Route) *Gate {
	g.routes = routes
	return g
}

// Dispatch sends req.Message to req.Agent. When no agent is named the message
// goes to the first route with a keyword contained in it, or to HEAD. The
// reply always comes from a single agent, which is reported as primary.
func (g *Gate) Dispatch(ctx context.Context, req model.QueryRequest) (model.QueryResponse, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return model.QueryResponse{}, fmt.Errorf("%w: message is required", registry.ErrInvalidInput)
	}
	if utf8.RuneCountInString(msg) > MaxMessageRunes {
		return model.QueryResponse{}, fmt.Errorf("%w: message exceeds %d characters", registry.ErrInvalidInput, MaxMessageRunes)
	}

	target := req.Agent
	if strings.TrimSpace(target) == "" {
		target = g.route(ctx, msg)
	}
	agent, err := g.resolver.Resolve(ctx, target)
	if err != nil {
		return model.QueryResponse{}, err
	}

	reply, err := g.backend.Respond(ctx, agent, msg)
	if err != nil {
		g.logger.Error("dispatch: backend failed", "agent", agent.Name, "error", err)
		return model.QueryResponse{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	return model.QueryResponse{
		Agent:          agent.Name,
		Role:           agent.Role,
		Message:        reply,
		Timestamp:      g.now().UTC(),
		StabilityScore: agent.Stability,
		IsPrimary:      true,
	}, nil
}

// route picks the agent for an unaddressed message. A matching route whose
// agent is not visible falls back to HEAD rather than trying later routes.
func (g *Gate) route(ctx context.Context, msg string) string {
	head := g.resolver.HeadName()
	if len(g.routes) == 0 {
		return head
	}
	lower := strings.ToLower(msg)
	for _, r := range g.routes {
		if !slices.ContainsFunc(r.Keywords, func(k string) bool { return strings.Contains(lower, k) }) {
			continue
		}
		name := model.NormalizeName(r.Agent)
		if slices.ContainsFunc(g.resolver.List(ctx), func(a model.AgentRecord) bool { return a.Name == name }) {
			return name
		}
		g.logger.Debug("dispatch: routed agent not visible", "agent", name)
		return head
	}
	return head
}
