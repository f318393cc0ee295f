package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/solvine-ai/solvine/internal/model"
)

// CreateRequest describes a new DYNAMIC agent.
type CreateRequest struct {
	Name        string
	Role        string
	Stability   float64
	Personality *string
	Skills      []string
	// CreatedAt is set when replaying a persisted record. Zero means now.
	CreatedAt time.Time
}

// CreateResult is the outcome of a successful Create.
type CreateResult struct {
	Agent model.AgentRecord
	// Upgraded is true when the new record shadows a MOCK agent of the same name.
	Upgraded bool
}

// DeleteResult is the outcome of a successful Delete.
type DeleteResult struct {
	Agent model.AgentRecord
	// Unshadowed is true when a MOCK agent of the same name is visible again.
	Unshadowed bool
}

// Create adds a DYNAMIC agent. The HEAD name is always rejected with
// ErrInvalidName; an existing DYNAMIC name fails with ErrAlreadyExists and the
// existing record is left untouched. A MOCK record of the same name is not
// modified, only shadowed.
func (r *Registry) Create(req CreateRequest) (CreateResult, error) {
	rec, err := r.newDynamic(req)
	if err != nil {
		return CreateResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.dynamic[rec.Name]; exists {
		return CreateResult{}, fmt.Errorf("%w: dynamic agent %q", ErrAlreadyExists, rec.Name)
	}
	r.dynamic[rec.Name] = rec
	_, upgraded := r.mocks[rec.Name]

	return CreateResult{Agent: rec.Clone(), Upgraded: upgraded}, nil
}

// CheckCreate reports what Create would do for req without changing the
// registry. The returned record carries the creation time Create will use
// when req.CreatedAt is set to it.
func (r *Registry) CheckCreate(req CreateRequest) (CreateResult, error) {
	rec, err := r.newDynamic(req)
	if err != nil {
		return CreateResult{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, exists := r.dynamic[rec.Name]; exists {
		return CreateResult{}, fmt.Errorf("%w: dynamic agent %q", ErrAlreadyExists, rec.Name)
	}
	_, upgraded := r.mocks[rec.Name]
	return CreateResult{Agent: rec, Upgraded: upgraded}, nil
}

// newDynamic validates req and builds the record Create would insert.
func (r *Registry) newDynamic(req CreateRequest) (model.AgentRecord, error) {
	name := model.NormalizeName(req.Name)
	if name == "" {
		return model.AgentRecord{}, fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}
	if name == r.head.Name {
		return model.AgentRecord{}, fmt.Errorf("%w: %q is reserved for the head agent", ErrInvalidName, name)
	}
	if err := model.ValidateName(name); err != nil {
		return model.AgentRecord{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if err := model.ValidateStability(req.Stability); err != nil {
		return model.AgentRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	createdAt = createdAt.UTC()

	rec := model.AgentRecord{
		Name:        name,
		Tier:        model.TierDynamic,
		Role:        req.Role,
		Stability:   req.Stability,
		DisplayName: strings.TrimSpace(req.Name),
		Emoji:       "🤖",
		Skills:      append([]string(nil), req.Skills...),
		CreatedAt:   &createdAt,
	}
	if req.Personality != nil {
		p := *req.Personality
		rec.Personality = &p
	}
	return rec, nil
}

// Delete removes a DYNAMIC agent. Empty names fail with ErrInvalidName, the
// HEAD name and MOCK-only names with ErrForbidden, and unknown names with a
// *NotFoundError.
func (r *Registry) Delete(name string) (DeleteResult, error) {
	n, err := r.checkDeleteName(name)
	if err != nil {
		return DeleteResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.deleteResultLocked(n)
	if err != nil {
		return DeleteResult{}, err
	}
	delete(r.dynamic, n)
	return res, nil
}

// CheckDelete reports what Delete would do for name without changing the
// registry.
func (r *Registry) CheckDelete(name string) (DeleteResult, error) {
	n, err := r.checkDeleteName(name)
	if err != nil {
		return DeleteResult{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deleteResultLocked(n)
}

func (r *Registry) checkDeleteName(name string) (string, error) {
	n := model.NormalizeName(name)
	if n == "" {
		return "", fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}
	if n == r.head.Name {
		return "", fmt.Errorf("%w: cannot delete the head agent %q", ErrForbidden, n)
	}
	return n, nil
}

func (r *Registry) deleteResultLocked(n string) (DeleteResult, error) {
	rec, ok := r.dynamic[n]
	if !ok {
		if _, isMock := r.mocks[n]; isMock {
			return DeleteResult{}, fmt.Errorf("%w: %q is a built-in agent", ErrForbidden, n)
		}
		return DeleteResult{}, &NotFoundError{Name: n, Visible: r.visibleNamesLocked()}
	}
	_, unshadowed := r.mocks[n]
	return DeleteResult{Agent: rec.Clone(), Unshadowed: unshadowed}, nil
}
