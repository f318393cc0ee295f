package agents_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/registry/catalog"
	"github.com/solvine-ai/solvine/internal/service/agents"
	"github.com/solvine-ai/solvine/internal/storage"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	mocks, err := catalog.Default()
	require.NoError(t, err)
	reg, err := registry.New(registry.Config{
		Head:  model.AgentRecord{Name: "jasper", Role: "Head Agent & Coordinator", Stability: 0.85},
		Mocks: mocks,
	})
	require.NoError(t, err)
	return reg
}

func newService(t *testing.T, store storage.Store) *agents.Service {
	t.Helper()
	return agents.New(newRegistry(t), store, 0.8, quietLogger)
}

func ptr[T any](v T) *T { return &v }

// flakyStore wraps a MemoryStore and fails writes on demand.
type flakyStore struct {
	*storage.MemoryStore
	mu         sync.Mutex
	failSave   bool
	failDelete bool
}

func (f *flakyStore) SaveAgent(ctx context.Context, rec model.AgentRecord) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.SaveAgent(ctx, rec)
}

func (f *flakyStore) DeleteAgent(ctx context.Context, name string) error {
	f.mu.Lock()
	fail := f.failDelete
	f.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return f.MemoryStore.DeleteAgent(ctx, name)
}

// blockingStore parks SaveAgent and DeleteAgent until release receives the
// error to return. entered is signalled once the call is parked.
type blockingStore struct {
	*storage.MemoryStore
	entered chan struct{}
	release chan error
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		MemoryStore: storage.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan error),
	}
}

func (b *blockingStore) SaveAgent(ctx context.Context, rec model.AgentRecord) error {
	b.entered <- struct{}{}
	if err := <-b.release; err != nil {
		return err
	}
	return b.MemoryStore.SaveAgent(ctx, rec)
}

func (b *blockingStore) DeleteAgent(ctx context.Context, name string) error {
	b.entered <- struct{}{}
	if err := <-b.release; err != nil {
		return err
	}
	return b.MemoryStore.DeleteAgent(ctx, name)
}

func TestCreate_NotVisibleUntilStored(t *testing.T) {
	ctx := context.Background()
	store := newBlockingStore()
	svc := newService(t, store)

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Create(ctx, agents.CreateInput{Name: "helper", Role: "Helper"})
		errc <- err
	}()
	<-store.entered

	_, err := svc.Resolve(ctx, "helper")
	assert.ErrorIs(t, err, registry.ErrNotFound, "agent must not be visible while its save is in flight")

	store.release <- errors.New("disk full")
	err = <-errc
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	_, err = svc.Resolve(ctx, "helper")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestCreate_ShadowAppearsOnlyAfterStore(t *testing.T) {
	ctx := context.Background()
	store := newBlockingStore()
	svc := newService(t, store)

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Create(ctx, agents.CreateInput{Name: "midas", Role: "Dynamic Financial Advisor"})
		errc <- err
	}()
	<-store.entered

	rec, err := svc.Resolve(ctx, "midas")
	require.NoError(t, err)
	assert.Equal(t, model.TierMock, rec.Tier)

	store.release <- nil
	require.NoError(t, <-errc)

	rec, err = svc.Resolve(ctx, "midas")
	require.NoError(t, err)
	assert.Equal(t, model.TierDynamic, rec.Tier)
}

func TestDelete_VisibleUntilStoreDeletes(t *testing.T) {
	ctx := context.Background()
	store := newBlockingStore()
	svc := newService(t, store)

	go func() {
		<-store.entered
		store.release <- nil
	}()
	_, err := svc.Create(ctx, agents.CreateInput{Name: "helper", Role: "Helper"})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Delete(ctx, "helper")
		errc <- err
	}()
	<-store.entered

	rec, err := svc.Resolve(ctx, "helper")
	require.NoError(t, err, "agent stays visible while its delete is in flight")
	assert.Equal(t, model.TierDynamic, rec.Tier)

	store.release <- nil
	require.NoError(t, <-errc)

	_, err = svc.Resolve(ctx, "helper")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestCreate_PersistsAndAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := newService(t, store)

	res, err := svc.Create(ctx, agents.CreateInput{
		Name:        "Helper",
		Role:        "  Research Assistant ",
		Personality: ptr("   "),
		Skills:      []string{" search ", "", "summarize"},
	})
	require.NoError(t, err)
	assert.False(t, res.Upgraded)
	assert.Equal(t, "helper", res.Agent.Name)
	assert.Equal(t, "Research Assistant", res.Agent.Role)
	assert.InDelta(t, 0.8, res.Agent.Stability, 1e-9)
	assert.Nil(t, res.Agent.Personality, "blank personality is dropped")
	assert.Equal(t, []string{"search", "summarize"}, res.Agent.Skills)

	stored, err := store.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Agent, stored[0])
}

func TestCreate_RequiresRole(t *testing.T) {
	svc := newService(t, nil)
	_, err := svc.Create(context.Background(), agents.CreateInput{Name: "helper", Role: " "})
	assert.ErrorIs(t, err, registry.ErrInvalidInput)
}

func TestCreate_RegistryErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := newService(t, store)

	_, err := svc.Create(ctx, agents.CreateInput{Name: "jasper", Role: "impostor"})
	assert.ErrorIs(t, err, registry.ErrInvalidName)

	_, err = svc.Create(ctx, agents.CreateInput{Name: "x", Role: "r", Stability: ptr(-1.0)})
	assert.ErrorIs(t, err, registry.ErrInvalidInput)

	_, err = svc.Create(ctx, agents.CreateInput{Name: "midas", Role: "Dynamic Financial Advisor"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, agents.CreateInput{Name: "midas", Role: "Again"})
	assert.ErrorIs(t, err, registry.ErrAlreadyExists)

	stored, err := store.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "only the successful create reaches the store")
}

func TestCreate_StoreFailureLeavesRegistryUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore(), failSave: true}
	svc := newService(t, store)

	_, err := svc.Create(ctx, agents.CreateInput{Name: "midas", Role: "Dynamic Financial Advisor"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	rec, err := svc.Resolve(ctx, "midas")
	require.NoError(t, err)
	assert.Equal(t, model.TierMock, rec.Tier, "failed create must leave the MOCK record visible")
}

func TestDelete_RemovesFromStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := newService(t, store)

	_, err := svc.Create(ctx, agents.CreateInput{Name: "midas", Role: "Dynamic Financial Advisor", Stability: ptr(0.8)})
	require.NoError(t, err)

	res, err := svc.Delete(ctx, "MIDAS")
	require.NoError(t, err)
	assert.True(t, res.Unshadowed)

	stored, err := store.ListAgents(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	rec, err := svc.Resolve(ctx, "midas")
	require.NoError(t, err)
	assert.Equal(t, "Financial Advisor", rec.Role)
}

func TestDelete_StoreFailureLeavesRegistryUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	svc := newService(t, store)

	created, err := svc.Create(ctx, agents.CreateInput{Name: "Helper", Role: "Helper", Skills: []string{"a"}})
	require.NoError(t, err)

	store.mu.Lock()
	store.failDelete = true
	store.mu.Unlock()

	_, err = svc.Delete(ctx, "helper")
	require.Error(t, err)

	rec, err := svc.Resolve(ctx, "helper")
	require.NoError(t, err)
	assert.Equal(t, created.Agent, rec, "failed delete keeps the original record")
}

func TestDelete_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	_, err := svc.Delete(ctx, "jasper")
	assert.ErrorIs(t, err, registry.ErrForbidden)
	_, err = svc.Delete(ctx, "aiven")
	assert.ErrorIs(t, err, registry.ErrForbidden)
	_, err = svc.Delete(ctx, "ghost")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestRehydrate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	first := newService(t, store)
	_, err := first.Create(ctx, agents.CreateInput{Name: "Midas", Role: "Dynamic Financial Advisor", Stability: ptr(0.8)})
	require.NoError(t, err)
	_, err = first.Create(ctx, agents.CreateInput{Name: "helper", Role: "Helper", Personality: ptr("kind")})
	require.NoError(t, err)
	before := first.List(ctx)

	// A record that can no longer be created is skipped, not fatal.
	jasperTime := time.Now().UTC()
	require.NoError(t, store.SaveAgent(ctx, model.AgentRecord{
		Name: "jasper", Tier: model.TierDynamic, Role: "impostor", Stability: 0.5, CreatedAt: &jasperTime,
	}))

	second := newService(t, store)
	res, err := second.Rehydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Restored)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, before, second.List(ctx))

	d, err := second.Details(ctx, "midas")
	require.NoError(t, err)
	assert.True(t, d.ShadowsMock)
	assert.Equal(t, "Midas", d.DisplayName)
}

func TestConcurrentCreate_OneWinnerOneStoredRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := newService(t, store)

	const callers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(ctx, agents.CreateInput{Name: "helper", Role: "Helper"}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, registry.ErrAlreadyExists) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	stored, err := store.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestStatusAndMeta(t *testing.T) {
	svc := newService(t, nil)
	assert.Equal(t, "jasper", svc.HeadName())
	assert.Equal(t, "memory", svc.StoreKind())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.Equal(t, 6, svc.Status(context.Background()).AgentsCount)
}
