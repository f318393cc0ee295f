package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/storage/sqlite"
	"github.com/solvine-ai/solvine/internal/storage/storetest"
	"github.com/solvine-ai/solvine/internal/testutil"
)

func TestStore_Conformance(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(ctx, testutil.SQLitePath(t), testutil.TestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	assert.Equal(t, "sqlite", store.Kind())
	storetest.Run(t, store)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := testutil.SQLitePath(t)

	store, err := sqlite.New(ctx, path, testutil.TestLogger())
	require.NoError(t, err)
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAgent(ctx, model.AgentRecord{
		Name: "helper", Tier: model.TierDynamic, Role: "Helper", Stability: 0.6, CreatedAt: &created,
	}))
	require.NoError(t, store.Close(ctx))

	// Reopening re-runs the migration runner; already-applied files are skipped.
	store, err = sqlite.New(ctx, path, testutil.TestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	list, err := store.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "helper", list[0].Name)
	assert.True(t, list[0].CreatedAt.Equal(created))
}

func TestStore_RejectsOutOfRangeStability(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(ctx, testutil.SQLitePath(t), testutil.TestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	err = store.SaveAgent(ctx, model.AgentRecord{Name: "bad", Role: "r", Stability: 1.5})
	assert.Error(t, err)
}
