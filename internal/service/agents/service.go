// Package agents provides the shared business logic for registry operations.
//
// Both the HTTP API and the MCP server delegate to this service so that
// persistence write-through, logging and metrics behave the same on every
// surface. The registry stays the source of truth for visibility; the store
// only mirrors DYNAMIC records so they can be replayed at startup.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/storage"
	"github.com/solvine-ai/solvine/internal/telemetry"
)

// Service wraps a registry with persistence and instrumentation.
type Service struct {
	reg              *registry.Registry
	store            storage.Store
	defaultStability float64
	logger           *slog.Logger
	tracer           trace.Tracer

	// writeMu serializes Create and Delete end to end so the registry check
	// still holds when the store write returns.
	writeMu sync.Mutex

	hooks []Hook

	created       metric.Int64Counter
	deleted       metric.Int64Counter
	resolveMisses metric.Int64Counter
	storeDuration metric.Float64Histogram
}

// New creates a Service. store may be nil, in which case nothing is persisted.
func New(reg *registry.Registry, store storage.Store, defaultStability float64, logger *slog.Logger) *Service {
	if store == nil {
		store = storage.NewMemoryStore()
	}
	meter := telemetry.Meter("solvine/agents")
	created, _ := meter.Int64Counter("solvine.agents.created",
		metric.WithDescription("DYNAMIC agents created"),
	)
	deleted, _ := meter.Int64Counter("solvine.agents.deleted",
		metric.WithDescription("DYNAMIC agents deleted"),
	)
	misses, _ := meter.Int64Counter("solvine.agents.resolve_misses",
		metric.WithDescription("Lookups for names with no visible agent"),
	)
	storeDur, _ := meter.Float64Histogram("solvine.store.duration",
		metric.WithDescription("Time spent in the persistence store (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		reg:              reg,
		store:            store,
		defaultStability: defaultStability,
		logger:           logger,
		tracer:           telemetry.Tracer("solvine/agents"),
		created:          created,
		deleted:          deleted,
		resolveMisses:    misses,
		storeDuration:    storeDur,
	}
}

// HeadName returns the reserved HEAD agent name.
func (s *Service) HeadName() string { return s.reg.HeadName() }

// StoreKind names the configured persistence backend.
func (s *Service) StoreKind() string { return s.store.Kind() }

// Ping checks the persistence backend.
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// List returns the visible set in priority order.
func (s *Service) List(ctx context.Context) []model.AgentRecord {
	_, span := s.tracer.Start(ctx, "agents.List")
	defer span.End()
	out := s.reg.ListVisible()
	span.SetAttributes(attribute.Int("solvine.visible_count", len(out)))
	return out
}

// Resolve returns the visible record for name.
func (s *Service) Resolve(ctx context.Context, name string) (model.AgentRecord, error) {
	ctx, span := s.tracer.Start(ctx, "agents.Resolve", trace.WithAttributes(attribute.String("solvine.agent", name)))
	defer span.End()
	rec, err := s.reg.Resolve(name)
	if err != nil {
		s.recordMiss(ctx, err)
		return model.AgentRecord{}, err
	}
	span.SetAttributes(attribute.String("solvine.tier", string(rec.Tier)))
	return rec, nil
}

// Details returns the visible record for name with its lifecycle state.
func (s *Service) Details(ctx context.Context, name string) (model.AgentDetails, error) {
	ctx, span := s.tracer.Start(ctx, "agents.Details", trace.WithAttributes(attribute.String("solvine.agent", name)))
	defer span.End()
	d, err := s.reg.Details(name)
	if err != nil {
		s.recordMiss(ctx, err)
		return model.AgentDetails{}, err
	}
	return d, nil
}

// Status returns a snapshot over the visible set.
func (s *Service) Status(context.Context) registry.Status {
	return s.reg.Status()
}

func (s *Service) recordMiss(ctx context.Context, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		s.resolveMisses.Add(ctx, 1)
	}
}

// CreateInput carries an unvalidated create request from any surface.
type CreateInput struct {
	Name        string
	Role        string
	Stability   *float64 // nil means the configured default
	Personality *string
	Skills      []string
}

// Create adds a DYNAMIC agent and persists it. The record is saved to the
// store before the registry changes, so readers never observe an agent whose
// save fails.
func (s *Service) Create(ctx context.Context, in CreateInput) (registry.CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "agents.Create", trace.WithAttributes(attribute.String("solvine.agent", in.Name)))
	defer span.End()

	role := strings.TrimSpace(in.Role)
	if role == "" {
		return registry.CreateResult{}, fmt.Errorf("%w: role is required", registry.ErrInvalidInput)
	}
	stability := s.defaultStability
	if in.Stability != nil {
		stability = *in.Stability
	}
	var personality *string
	if in.Personality != nil {
		if p := strings.TrimSpace(*in.Personality); p != "" {
			personality = &p
		}
	}
	req := registry.CreateRequest{
		Name:        in.Name,
		Role:        role,
		Stability:   stability,
		Personality: personality,
		Skills:      cleanSkills(in.Skills),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	planned, err := s.reg.CheckCreate(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return registry.CreateResult{}, err
	}

	if err := s.timedStore(ctx, func() error { return s.store.SaveAgent(ctx, planned.Agent) }); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store save failed")
		return registry.CreateResult{}, fmt.Errorf("agents: persist %s: %w", planned.Agent.Name, err)
	}

	req.CreatedAt = *planned.Agent.CreatedAt
	res, err := s.reg.Create(req)
	if err != nil {
		// Only reachable if the registry was mutated outside this service.
		if delErr := s.store.DeleteAgent(ctx, planned.Agent.Name); delErr != nil {
			s.logger.Error("agents: undo save after failed create", "agent", planned.Agent.Name, "error", delErr)
		}
		span.SetStatus(codes.Error, err.Error())
		return registry.CreateResult{}, err
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.Bool("upgraded", res.Upgraded)))
	span.SetAttributes(attribute.Bool("solvine.upgraded", res.Upgraded))
	s.logger.Info("agent created",
		"agent", res.Agent.Name,
		"role", res.Agent.Role,
		"stability", res.Agent.Stability,
		"upgraded", res.Upgraded,
	)
	s.fireCreated(res.Agent, res.Upgraded)
	return res, nil
}

// Delete removes a DYNAMIC agent and its persisted copy. The store is updated
// first; a failed store delete leaves the registry untouched.
func (s *Service) Delete(ctx context.Context, name string) (registry.DeleteResult, error) {
	ctx, span := s.tracer.Start(ctx, "agents.Delete", trace.WithAttributes(attribute.String("solvine.agent", name)))
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	planned, err := s.reg.CheckDelete(name)
	if err != nil {
		s.recordMiss(ctx, err)
		span.SetStatus(codes.Error, err.Error())
		return registry.DeleteResult{}, err
	}

	err = s.timedStore(ctx, func() error { return s.store.DeleteAgent(ctx, planned.Agent.Name) })
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store delete failed")
		return registry.DeleteResult{}, fmt.Errorf("agents: unpersist %s: %w", planned.Agent.Name, err)
	}
	if err != nil {
		s.logger.Warn("agents: deleted agent was missing from store", "agent", planned.Agent.Name)
	}

	res, err := s.reg.Delete(planned.Agent.Name)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return registry.DeleteResult{}, err
	}

	s.deleted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("unshadowed", res.Unshadowed)))
	s.logger.Info("agent deleted", "agent", res.Agent.Name, "unshadowed", res.Unshadowed)
	s.fireDeleted(res.Agent, res.Unshadowed)
	return res, nil
}

// RehydrateResult reports what Rehydrate did.
type RehydrateResult struct {
	Restored int
	Skipped  int
}

// Rehydrate replays every stored record through the registry's Create so the
// usual name rules apply. Records that are no longer acceptable (for example
// a name that has since become the HEAD name) are skipped and left in the
// store.
func (s *Service) Rehydrate(ctx context.Context) (RehydrateResult, error) {
	ctx, span := s.tracer.Start(ctx, "agents.Rehydrate")
	defer span.End()

	var records []model.AgentRecord
	err := s.timedStore(ctx, func() error {
		var err error
		records, err = s.store.ListAgents(ctx)
		return err
	})
	if err != nil {
		return RehydrateResult{}, fmt.Errorf("agents: load stored agents: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var out RehydrateResult
	for _, rec := range records {
		if _, err := s.reg.Create(replayRequest(rec)); err != nil {
			out.Skipped++
			s.logger.Warn("agents: skipping stored agent", "agent", rec.Name, "error", err)
			continue
		}
		out.Restored++
	}
	span.SetAttributes(
		attribute.Int("solvine.restored", out.Restored),
		attribute.Int("solvine.skipped", out.Skipped),
	)
	s.logger.Info("agents rehydrated", "store", s.store.Kind(), "restored", out.Restored, "skipped", out.Skipped)
	return out, nil
}

func (s *Service) timedStore(ctx context.Context, fn func() error) error {
	start := time.Now()
	err := fn()
	s.storeDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("store", s.store.Kind())))
	return err
}

// replayRequest turns a stored record back into a create request that
// reproduces it, display casing and creation time included.
func replayRequest(rec model.AgentRecord) registry.CreateRequest {
	name := rec.Name
	if rec.DisplayName != "" && model.NormalizeName(rec.DisplayName) == rec.Name {
		name = rec.DisplayName
	}
	req := registry.CreateRequest{
		Name:        name,
		Role:        rec.Role,
		Stability:   rec.Stability,
		Personality: rec.Personality,
		Skills:      rec.Skills,
	}
	if rec.CreatedAt != nil {
		req.CreatedAt = *rec.CreatedAt
	}
	return req
}

func cleanSkills(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
