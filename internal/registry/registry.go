// Package registry tracks the three agent tiers (a single HEAD agent,
// runtime-created DYNAMIC agents and a fixed catalog of MOCK agents) and
// resolves every name to at most one visible record, preferring
// HEAD > DYNAMIC > MOCK.
//
// The HEAD slot and the MOCK catalog are written once in New and read without
// locking afterwards. The DYNAMIC map is guarded by a readers-writer lock:
// lookups run in parallel, Create and Delete are exclusive.
package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/solvine-ai/solvine/internal/model"
)

// Config holds the static inputs of a Registry.
type Config struct {
	// Head is the privileged agent. Its name is reserved for the lifetime of
	// the registry.
	Head model.AgentRecord
	// Mocks is the built-in catalog. It is copied; later changes to the slice
	// have no effect.
	Mocks []model.AgentRecord
	// Now overrides the clock used for CreatedAt and uptime (tests).
	Now func() time.Time
}

// Registry is the agent catalog. Construct one with New; the zero value is
// not usable.
type Registry struct {
	head      model.AgentRecord
	mocks     map[string]model.AgentRecord
	mockNames []string // sorted
	now       func() time.Time
	startedAt time.Time

	mu      sync.RWMutex
	dynamic map[string]model.AgentRecord
}

// New validates the HEAD record and MOCK catalog and returns a registry with
// no DYNAMIC records.
func New(cfg Config) (*Registry, error) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	head := cfg.Head.Clone()
	head.Name = model.NormalizeName(head.Name)
	if err := model.ValidateName(head.Name); err != nil {
		return nil, fmt.Errorf("registry: head agent: %w", err)
	}
	if err := model.ValidateStability(head.Stability); err != nil {
		return nil, fmt.Errorf("registry: head agent: %w", err)
	}
	head.Tier = model.TierHead
	head.CreatedAt = nil
	head.Personality = nil
	head.Skills = nil

	mocks := make(map[string]model.AgentRecord, len(cfg.Mocks))
	for _, m := range cfg.Mocks {
		rec := m.Clone()
		rec.Name = model.NormalizeName(rec.Name)
		if err := model.ValidateName(rec.Name); err != nil {
			return nil, fmt.Errorf("registry: mock agent %q: %w", m.Name, err)
		}
		if err := model.ValidateStability(rec.Stability); err != nil {
			return nil, fmt.Errorf("registry: mock agent %q: %w", rec.Name, err)
		}
		if rec.Name == head.Name {
			return nil, fmt.Errorf("registry: mock agent %q uses the reserved head agent name", rec.Name)
		}
		if _, dup := mocks[rec.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate mock agent %q", rec.Name)
		}
		rec.Tier = model.TierMock
		rec.CreatedAt = nil
		rec.Personality = nil
		rec.Skills = nil
		mocks[rec.Name] = rec
	}

	return &Registry{
		head:      head,
		mocks:     mocks,
		mockNames: slices.Sorted(maps.Keys(mocks)),
		now:       now,
		startedAt: now(),
		dynamic:   make(map[string]model.AgentRecord),
	}, nil
}

// HeadName returns the reserved name of the HEAD agent.
func (r *Registry) HeadName() string {
	return r.head.Name
}

// Head returns a copy of the HEAD record.
func (r *Registry) Head() model.AgentRecord {
	return r.head.Clone()
}

// IsMock reports whether name is defined in the MOCK catalog, shadowed or not.
func (r *Registry) IsMock(name string) bool {
	_, ok := r.mocks[model.NormalizeName(name)]
	return ok
}
