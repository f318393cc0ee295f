package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/registry/catalog"
	"github.com/solvine-ai/solvine/internal/service/agents"
	"github.com/solvine-ai/solvine/internal/service/dispatch"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newAgents(t *testing.T) *agents.Service {
	t.Helper()
	mocks, err := catalog.Default()
	require.NoError(t, err)
	reg, err := registry.New(registry.Config{
		Head:  model.AgentRecord{Name: "jasper", Role: "Head Agent & Coordinator", Stability: 0.85, DisplayName: "Jasper"},
		Mocks: mocks,
	})
	require.NoError(t, err)
	return agents.New(reg, nil, 0.8, quietLogger)
}

func TestDispatch_DefaultsToHead(t *testing.T) {
	gate := dispatch.NewGate(newAgents(t), nil, quietLogger)

	resp, err := gate.Dispatch(context.Background(), model.QueryRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "jasper", resp.Agent)
	assert.Equal(t, "Head Agent & Coordinator", resp.Role)
	assert.InDelta(t, 0.85, resp.StabilityScore, 1e-9)
	assert.True(t, resp.IsPrimary)
	assert.Contains(t, resp.Message, "Jasper")
	assert.False(t, resp.Timestamp.IsZero())
}

func TestDispatch_UsesResolvedRecord(t *testing.T) {
	svc := newAgents(t)
	var seen model.AgentRecord
	backend := dispatch.BackendFunc(func(_ context.Context, a model.AgentRecord, msg string) (string, error) {
		seen = a
		return "ok: " + msg, nil
	})
	gate := dispatch.NewGate(svc, backend, quietLogger)

	_, err := svc.Create(context.Background(), agents.CreateInput{Name: "midas", Role: "Dynamic Financial Advisor"})
	require.NoError(t, err)

	resp, err := gate.Dispatch(context.Background(), model.QueryRequest{Message: "  budget?  ", Agent: "MIDAS"})
	require.NoError(t, err)
	assert.Equal(t, model.TierDynamic, seen.Tier, "dispatch sees the shadowing DYNAMIC record")
	assert.Equal(t, "ok: budget?", resp.Message)
	assert.Equal(t, "Dynamic Financial Advisor", resp.Role)
}

func TestDispatch_RejectsUnknownAgentWithVisibleNames(t *testing.T) {
	called := false
	backend := dispatch.BackendFunc(func(context.Context, model.AgentRecord, string) (string, error) {
		called = true
		return "", nil
	})
	gate := dispatch.NewGate(newAgents(t), backend, quietLogger)

	_, err := gate.Dispatch(context.Background(), model.QueryRequest{Message: "hi", Agent: "nobody"})
	require.ErrorIs(t, err, registry.ErrNotFound)
	visible, ok := registry.VisibleNames(err)
	require.True(t, ok)
	assert.Equal(t, []string{"jasper", "aiven", "halcyon", "midas", "quanta", "veilsynth"}, visible)
	assert.False(t, called, "backend must not be reached")
}

func TestDispatch_ValidatesMessage(t *testing.T) {
	gate := dispatch.NewGate(newAgents(t), nil, quietLogger)

	_, err := gate.Dispatch(context.Background(), model.QueryRequest{Message: "   "})
	assert.ErrorIs(t, err, registry.ErrInvalidInput)

	_, err = gate.Dispatch(context.Background(), model.QueryRequest{Message: strings.Repeat("x", dispatch.MaxMessageRunes+1)})
	assert.ErrorIs(t, err, registry.ErrInvalidInput)
}

func TestDispatch_BackendFailure(t *testing.T) {
	backend := dispatch.BackendFunc(func(context.Context, model.AgentRecord, string) (string, error) {
		return "", errors.New("model offline")
	})
	gate := dispatch.NewGate(newAgents(t), backend, quietLogger)

	_, err := gate.Dispatch(context.Background(), model.QueryRequest{Message: "hi"})
	assert.ErrorIs(t, err, dispatch.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "model offline")
}

func defaultRoutes(t *testing.T) []catalog.Route {
	t.Helper()
	c, err := catalog.Load("")
	require.NoError(t, err)
	return c.Routes
}

func TestDispatch_RoutesUnaddressedMessagesByKeyword(t *testing.T) {
	gate := dispatch.NewGate(newAgents(t), nil, quietLogger).WithRoutes(defaultRoutes(t))
	ctx := context.Background()

	cases := map[string]string{
		"How should I set my monthly BUDGET?":      "midas",
		"I need a design for my logo":              "aiven",
		"urgent: server is down":                   "halcyon",
		"find the pattern in these dreams":         "veilsynth",
		"please calculate the compound interest":   "quanta",
		"what's the weather like":                  "jasper",
		"invest in a creative agency":              "midas",
		"Can you compute a budget for my project?": "midas",
	}
	for msg, want := range cases {
		resp, err := gate.Dispatch(ctx, model.QueryRequest{Message: msg})
		require.NoError(t, err, msg)
		assert.Equal(t, want, resp.Agent, msg)
		assert.True(t, resp.IsPrimary, msg)
	}
}

func TestDispatch_RoutedAgentUsesShadowingRecord(t *testing.T) {
	svc := newAgents(t)
	gate := dispatch.NewGate(svc, nil, quietLogger).WithRoutes(defaultRoutes(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, agents.CreateInput{Name: "midas", Role: "Dynamic Financial Advisor"})
	require.NoError(t, err)

	resp, err := gate.Dispatch(ctx, model.QueryRequest{Message: "portfolio review"})
	require.NoError(t, err)
	assert.Equal(t, "midas", resp.Agent)
	assert.Equal(t, "Dynamic Financial Advisor", resp.Role)
}

func TestDispatch_RouteToMissingAgentFallsBackToHead(t *testing.T) {
	svc := newAgents(t)
	routes := []catalog.Route{
		{Agent: "helper", Keywords: []string{"ticket"}},
		{Agent: "halcyon", Keywords: []string{"ticket", "help"}},
	}
	gate := dispatch.NewGate(svc, nil, quietLogger).WithRoutes(routes)
	ctx := context.Background()

	resp, err := gate.Dispatch(ctx, model.QueryRequest{Message: "open a ticket"})
	require.NoError(t, err)
	assert.Equal(t, "jasper", resp.Agent, "first matching route decides even when its agent is absent")

	_, err = svc.Create(ctx, agents.CreateInput{Name: "helper", Role: "Helpdesk"})
	require.NoError(t, err)
	resp, err = gate.Dispatch(ctx, model.QueryRequest{Message: "open a ticket"})
	require.NoError(t, err)
	assert.Equal(t, "helper", resp.Agent)

	_, err = svc.Delete(ctx, "helper")
	require.NoError(t, err)
	resp, err = gate.Dispatch(ctx, model.QueryRequest{Message: "open a ticket"})
	require.NoError(t, err)
	assert.Equal(t, "jasper", resp.Agent)
}

func TestDispatch_NamedAgentSkipsRouting(t *testing.T) {
	gate := dispatch.NewGate(newAgents(t), nil, quietLogger).WithRoutes(defaultRoutes(t))

	resp, err := gate.Dispatch(context.Background(), model.QueryRequest{Message: "budget please", Agent: "quanta"})
	require.NoError(t, err)
	assert.Equal(t, "quanta", resp.Agent)
}
