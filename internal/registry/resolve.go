package registry

import (
	"maps"
	"slices"

	"github.com/solvine-ai/solvine/internal/model"
)

// ListVisible returns one record per visible name: HEAD first, then DYNAMIC
// records by name, then MOCK records that no DYNAMIC record shadows, by name.
func (r *Registry) ListVisible() []model.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listVisibleLocked()
}

// Resolve returns the visible record for name. Lookups are case-insensitive.
// On a miss the error is a *NotFoundError listing the visible names.
func (r *Registry) Resolve(name string) (model.AgentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, err := r.resolveLocked(model.NormalizeName(name))
	if err != nil {
		return model.AgentRecord{}, err
	}
	return rec.Clone(), nil
}

// Details resolves name like Resolve and reports whether the winning record
// shadows a MOCK definition.
func (r *Registry) Details(name string) (model.AgentDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := model.NormalizeName(name)
	rec, err := r.resolveLocked(n)
	if err != nil {
		return model.AgentDetails{}, err
	}
	_, latent := r.mocks[n]
	return model.AgentDetails{
		AgentRecord: rec.Clone(),
		Status:      "active",
		ShadowsMock: rec.Tier == model.TierDynamic && latent,
	}, nil
}

// resolveLocked walks the priority chain. Callers hold r.mu (read or write)
// and pass a normalized name.
func (r *Registry) resolveLocked(name string) (model.AgentRecord, error) {
	if name == r.head.Name {
		return r.head, nil
	}
	if rec, ok := r.dynamic[name]; ok {
		return rec, nil
	}
	if rec, ok := r.mocks[name]; ok {
		return rec, nil
	}
	return model.AgentRecord{}, &NotFoundError{Name: name, Visible: r.visibleNamesLocked()}
}

func (r *Registry) listVisibleLocked() []model.AgentRecord {
	out := make([]model.AgentRecord, 0, 1+len(r.dynamic)+len(r.mocks))
	claimed := make(map[string]struct{}, cap(out))

	out = append(out, r.head.Clone())
	claimed[r.head.Name] = struct{}{}

	for _, name := range slices.Sorted(maps.Keys(r.dynamic)) {
		if _, ok := claimed[name]; ok {
			continue
		}
		out = append(out, r.dynamic[name].Clone())
		claimed[name] = struct{}{}
	}

	for _, name := range r.mockNames {
		if _, ok := claimed[name]; ok {
			continue
		}
		out = append(out, r.mocks[name].Clone())
	}
	return out
}

func (r *Registry) visibleNamesLocked() []string {
	recs := r.listVisibleLocked()
	names := make([]string, len(recs))
	for i, rec := range recs {
		names[i] = rec.Name
	}
	return names
}
