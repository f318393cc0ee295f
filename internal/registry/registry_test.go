package registry_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/registry/catalog"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t testing.TB) *registry.Registry {
	t.Helper()
	mocks, err := catalog.Default()
	require.NoError(t, err)
	reg, err := registry.New(registry.Config{
		Head: model.AgentRecord{
			Name:        "jasper",
			Role:        "Head Agent & Coordinator",
			Stability:   0.85,
			DisplayName: "Jasper",
		},
		Mocks: mocks,
		Now:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return reg
}

func names(recs []model.AgentRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := registry.New(registry.Config{Head: model.AgentRecord{Name: "", Stability: 0.5}})
	assert.Error(t, err, "empty head name")

	_, err = registry.New(registry.Config{Head: model.AgentRecord{Name: "jasper", Stability: 2}})
	assert.Error(t, err, "head stability out of range")

	_, err = registry.New(registry.Config{
		Head:  model.AgentRecord{Name: "jasper", Stability: 0.5},
		Mocks: []model.AgentRecord{{Name: "Jasper", Role: "impostor", Stability: 0.5}},
	})
	assert.Error(t, err, "mock reusing the head name")

	_, err = registry.New(registry.Config{
		Head: model.AgentRecord{Name: "jasper", Stability: 0.5},
		Mocks: []model.AgentRecord{
			{Name: "midas", Stability: 0.5},
			{Name: "MIDAS", Stability: 0.6},
		},
	})
	assert.Error(t, err, "duplicate mock")
}

func TestNew_NormalizesHead(t *testing.T) {
	reg, err := registry.New(registry.Config{Head: model.AgentRecord{Name: " Jasper ", Stability: 0.85}})
	require.NoError(t, err)
	assert.Equal(t, "jasper", reg.HeadName())
	assert.Equal(t, model.TierHead, reg.Head().Tier)
}

func TestEndToEndScenario(t *testing.T) {
	reg := newTestRegistry(t)

	initial := reg.ListVisible()
	require.Len(t, initial, 6)
	assert.Equal(t, []string{"jasper", "aiven", "halcyon", "midas", "quanta", "veilsynth"}, names(initial))
	assert.Equal(t, model.TierHead, initial[0].Tier)
	for _, r := range initial[1:] {
		assert.Equal(t, model.TierMock, r.Tier)
	}

	res, err := reg.Create(registry.CreateRequest{Name: "midas", Role: "Dynamic Financial Advisor", Stability: 0.8})
	require.NoError(t, err)
	assert.True(t, res.Upgraded)

	upgraded := reg.ListVisible()
	assert.Equal(t, []string{"jasper", "midas", "aiven", "halcyon", "quanta", "veilsynth"}, names(upgraded))
	midas := upgraded[1]
	assert.Equal(t, model.TierDynamic, midas.Tier)
	assert.Equal(t, "Dynamic Financial Advisor", midas.Role)
	require.NotNil(t, midas.CreatedAt)
	assert.True(t, midas.CreatedAt.Equal(fixedNow))

	del, err := reg.Delete("midas")
	require.NoError(t, err)
	assert.True(t, del.Unshadowed)

	after := reg.ListVisible()
	assert.Equal(t, names(initial), names(after))
	assert.Equal(t, initial, after)
}

func TestResolve_PriorityChain(t *testing.T) {
	reg := newTestRegistry(t)

	head, err := reg.Resolve("JASPER")
	require.NoError(t, err)
	assert.Equal(t, model.TierHead, head.Tier)

	mock, err := reg.Resolve("Quanta")
	require.NoError(t, err)
	assert.Equal(t, model.TierMock, mock.Tier)

	_, err = reg.Create(registry.CreateRequest{Name: "quanta", Role: "Quantum Planner", Stability: 0.7})
	require.NoError(t, err)

	dyn, err := reg.Resolve("quanta")
	require.NoError(t, err)
	assert.Equal(t, model.TierDynamic, dyn.Tier)
	assert.Equal(t, "Quantum Planner", dyn.Role)
}

func TestResolve_NotFoundCarriesVisibleNames(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create(registry.CreateRequest{Name: "helper", Role: "Helper", Stability: 0.5})
	require.NoError(t, err)

	_, err = reg.Resolve("nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrNotFound))

	visible, ok := registry.VisibleNames(err)
	require.True(t, ok)
	assert.Equal(t, []string{"jasper", "helper", "aiven", "halcyon", "midas", "quanta", "veilsynth"}, visible)
	assert.Contains(t, err.Error(), "nobody")
}

func TestDetails(t *testing.T) {
	reg := newTestRegistry(t)

	d, err := reg.Details("midas")
	require.NoError(t, err)
	assert.Equal(t, model.TierMock, d.Tier)
	assert.False(t, d.ShadowsMock)
	assert.Nil(t, d.CreatedAt)
	assert.Equal(t, "active", d.Status)

	p := "analytical"
	_, err = reg.Create(registry.CreateRequest{Name: "Midas", Role: "Dynamic Financial Advisor", Stability: 0.8, Personality: &p, Skills: []string{"budgeting"}})
	require.NoError(t, err)

	d, err = reg.Details("midas")
	require.NoError(t, err)
	assert.Equal(t, model.TierDynamic, d.Tier)
	assert.True(t, d.ShadowsMock)
	require.NotNil(t, d.CreatedAt)
	require.NotNil(t, d.Personality)
	assert.Equal(t, "analytical", *d.Personality)
	assert.Equal(t, []string{"budgeting"}, d.Skills)
	assert.Equal(t, "Midas", d.DisplayName)

	h, err := reg.Details("jasper")
	require.NoError(t, err)
	assert.Nil(t, h.CreatedAt)

	_, err = reg.Details("ghost")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestCreate_ReservedAndInvalidNames(t *testing.T) {
	reg := newTestRegistry(t)

	for _, n := range []string{"jasper", "Jasper", " JASPER "} {
		_, err := reg.Create(registry.CreateRequest{Name: n, Role: "impostor", Stability: 0.5})
		assert.ErrorIs(t, err, registry.ErrInvalidName, "name %q", n)
	}
	for _, n := range []string{"", "   ", "bad name", "x/y"} {
		_, err := reg.Create(registry.CreateRequest{Name: n, Role: "r", Stability: 0.5})
		assert.ErrorIs(t, err, registry.ErrInvalidName, "name %q", n)
	}

	_, err := reg.Create(registry.CreateRequest{Name: "ok", Role: "r", Stability: 1.5})
	assert.ErrorIs(t, err, registry.ErrInvalidInput)

	assert.Len(t, reg.ListVisible(), 6, "failed creates must not change the visible set")
}

func TestCreate_NoOverwrite(t *testing.T) {
	reg := newTestRegistry(t)

	first, err := reg.Create(registry.CreateRequest{Name: "midas", Role: "First", Stability: 0.8})
	require.NoError(t, err)

	_, err = reg.Create(registry.CreateRequest{Name: "MIDAS", Role: "Second", Stability: 0.1})
	assert.ErrorIs(t, err, registry.ErrAlreadyExists)

	got, err := reg.Resolve("midas")
	require.NoError(t, err)
	assert.Equal(t, first.Agent, got)
}

func TestCreate_ReturnedRecordIsACopy(t *testing.T) {
	reg := newTestRegistry(t)
	res, err := reg.Create(registry.CreateRequest{Name: "helper", Role: "Helper", Stability: 0.5, Skills: []string{"a"}})
	require.NoError(t, err)
	res.Agent.Skills[0] = "mutated"
	res.Agent.Role = "mutated"

	got, err := reg.Resolve("helper")
	require.NoError(t, err)
	assert.Equal(t, "Helper", got.Role)
	assert.Equal(t, []string{"a"}, got.Skills)
}

func TestCreate_PreservesReplayedCreatedAt(t *testing.T) {
	reg := newTestRegistry(t)
	then := time.Date(2025, 8, 14, 9, 30, 0, 0, time.UTC)
	res, err := reg.Create(registry.CreateRequest{Name: "old", Role: "r", Stability: 0.5, CreatedAt: then})
	require.NoError(t, err)
	assert.True(t, res.Agent.CreatedAt.Equal(then))
	assert.False(t, res.Upgraded)
}

func TestDelete(t *testing.T) {
	reg := newTestRegistry(t)

	for _, blank := range []string{"", "   "} {
		_, err := reg.Delete(blank)
		assert.ErrorIs(t, err, registry.ErrInvalidName, "delete %q", blank)
		assert.NotErrorIs(t, err, registry.ErrNotFound)
	}

	_, err := reg.Delete("jasper")
	assert.ErrorIs(t, err, registry.ErrForbidden)

	_, err = reg.Delete("halcyon")
	assert.ErrorIs(t, err, registry.ErrForbidden, "mock-only names cannot be deleted")

	_, err = reg.Delete("nobody")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	visible, ok := registry.VisibleNames(err)
	require.True(t, ok)
	assert.Len(t, visible, 6)

	_, err = reg.Create(registry.CreateRequest{Name: "helper", Role: "Helper", Stability: 0.5})
	require.NoError(t, err)

	res, err := reg.Delete("HELPER")
	require.NoError(t, err)
	assert.False(t, res.Unshadowed)
	assert.Equal(t, "helper", res.Agent.Name)

	// A dynamic name with no mock behind it becomes fully unused.
	_, err = reg.Resolve("helper")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	_, err = reg.Delete("helper")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestUnshadowRestoresOriginalMock(t *testing.T) {
	reg := newTestRegistry(t)
	orig, err := reg.Resolve("midas")
	require.NoError(t, err)

	_, err = reg.Create(registry.CreateRequest{Name: "midas", Role: "Dynamic Financial Advisor", Stability: 0.8})
	require.NoError(t, err)
	_, err = reg.Delete("midas")
	require.NoError(t, err)

	back, err := reg.Resolve("midas")
	require.NoError(t, err)
	assert.Equal(t, orig, back)
	assert.Equal(t, "Financial Advisor", back.Role)
	assert.InDelta(t, 0.87, back.Stability, 1e-9)
	assert.True(t, reg.IsMock("midas"))
}

func TestConcurrentCreate_ExactlyOneWins(t *testing.T) {
	for round := 0; round < 50; round++ {
		reg := newTestRegistry(t)

		const callers = 8
		var wg sync.WaitGroup
		errs := make([]error, callers)
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = reg.Create(registry.CreateRequest{Name: "helper", Role: "Helper", Stability: 0.5})
			}(i)
		}
		close(start)
		wg.Wait()

		ok, exists := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, registry.ErrAlreadyExists):
				exists++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, ok)
		require.Equal(t, callers-1, exists)
	}
}

func TestConcurrentDelete_ExactlyOneWins(t *testing.T) {
	for round := 0; round < 50; round++ {
		reg := newTestRegistry(t)
		_, err := reg.Create(registry.CreateRequest{Name: "helper", Role: "Helper", Stability: 0.5})
		require.NoError(t, err)

		const callers = 8
		var wg sync.WaitGroup
		errs := make([]error, callers)
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = reg.Delete("helper")
			}(i)
		}
		close(start)
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			require.ErrorIs(t, err, registry.ErrNotFound)
		}
		require.Equal(t, 1, ok)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	reg := newTestRegistry(t)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_, _ = reg.Create(registry.CreateRequest{Name: "midas", Role: "Dyn", Stability: 0.5})
				_, _ = reg.Delete("midas")
			}
		}()
	}
	for rd := 0; rd < 4; rd++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				visible := reg.ListVisible()
				seen := map[string]bool{}
				for _, r := range visible {
					if seen[r.Name] {
						t.Errorf("duplicate visible name %q", r.Name)
					}
					seen[r.Name] = true
				}
				if len(visible) != 6 {
					t.Errorf("visible set size = %d, want 6", len(visible))
				}
				if _, err := reg.Resolve("midas"); err != nil {
					t.Errorf("midas must always resolve: %v", err)
				}
			}
		}()
	}
	wg.Wait()
}

func TestStatus(t *testing.T) {
	reg := newTestRegistry(t)
	st := reg.Status()
	assert.Equal(t, 6, st.AgentsCount)
	// (0.85 + 0.87 + 0.91 + 0.94 + 0.82 + 0.89) / 6 = 0.88
	assert.InDelta(t, 0.88, st.SystemStability, 1e-9)
	assert.Equal(t, time.Duration(0), st.Uptime)

	_, err := reg.Create(registry.CreateRequest{Name: "helper", Role: "Helper", Stability: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 7, reg.Status().AgentsCount)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0h 0m", registry.FormatUptime(0))
	assert.Equal(t, "2h 5m", registry.FormatUptime(2*time.Hour+5*time.Minute+30*time.Second))
	assert.Equal(t, "0h 0m", registry.FormatUptime(-time.Second))
}

func TestCheckCreateAndCheckDelete_LeaveRegistryUnchanged(t *testing.T) {
	reg := newTestRegistry(t)

	planned, err := reg.CheckCreate(registry.CreateRequest{Name: "Midas", Role: "Dynamic Financial Advisor", Stability: 0.8})
	require.NoError(t, err)
	assert.True(t, planned.Upgraded)
	require.NotNil(t, planned.Agent.CreatedAt)

	rec, err := reg.Resolve("midas")
	require.NoError(t, err)
	assert.Equal(t, model.TierMock, rec.Tier, "CheckCreate must not insert")

	created, err := reg.Create(registry.CreateRequest{
		Name: "Midas", Role: "Dynamic Financial Advisor", Stability: 0.8, CreatedAt: *planned.Agent.CreatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, planned.Agent, created.Agent, "Create reproduces the checked record")

	_, err = reg.CheckCreate(registry.CreateRequest{Name: "midas", Role: "x", Stability: 0.5})
	assert.ErrorIs(t, err, registry.ErrAlreadyExists)
	_, err = reg.CheckCreate(registry.CreateRequest{Name: "jasper", Role: "x", Stability: 0.5})
	assert.ErrorIs(t, err, registry.ErrInvalidName)

	res, err := reg.CheckDelete("MIDAS")
	require.NoError(t, err)
	assert.True(t, res.Unshadowed)
	rec, err = reg.Resolve("midas")
	require.NoError(t, err)
	assert.Equal(t, model.TierDynamic, rec.Tier, "CheckDelete must not remove")

	_, err = reg.CheckDelete("")
	assert.ErrorIs(t, err, registry.ErrInvalidName)
	_, err = reg.CheckDelete("jasper")
	assert.ErrorIs(t, err, registry.ErrForbidden)
	_, err = reg.CheckDelete("halcyon")
	assert.ErrorIs(t, err, registry.ErrForbidden)
	_, err = reg.CheckDelete("ghost")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}
