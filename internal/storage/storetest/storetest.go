// Package storetest holds the behavioural suite every storage.Store
// implementation must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/storage"
)

// Run exercises store. The store must start empty.
func Run(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 2, 3, 4, 5, 6, 789000000, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("EmptyList", func(t *testing.T) {
		list, err := store.ListAgents(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		p := "calm, precise"
		created := base
		in := model.AgentRecord{
			Name:        "midas",
			Tier:        model.TierDynamic,
			Role:        "Dynamic Financial Advisor",
			Stability:   0.8,
			DisplayName: "Midas",
			Emoji:       "🤖",
			Personality: &p,
			Skills:      []string{"budgeting", "forecasting"},
			CreatedAt:   &created,
		}
		require.NoError(t, store.SaveAgent(ctx, in))

		list, err := store.ListAgents(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		got := list[0]
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, model.TierDynamic, got.Tier)
		assert.Equal(t, in.Role, got.Role)
		assert.InDelta(t, in.Stability, got.Stability, 1e-9)
		assert.Equal(t, in.DisplayName, got.DisplayName)
		assert.Equal(t, in.Emoji, got.Emoji)
		require.NotNil(t, got.Personality)
		assert.Equal(t, p, *got.Personality)
		assert.Equal(t, in.Skills, got.Skills)
		require.NotNil(t, got.CreatedAt)
		assert.WithinDuration(t, created, *got.CreatedAt, time.Millisecond)
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		created := base
		require.NoError(t, store.SaveAgent(ctx, model.AgentRecord{
			Name: "midas", Tier: model.TierDynamic, Role: "Replaced", Stability: 0.3, CreatedAt: &created,
		}))
		list, err := store.ListAgents(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Replaced", list[0].Role)
		assert.Nil(t, list[0].Personality)
		assert.Empty(t, list[0].Skills)
	})

	t.Run("OrderedByCreation", func(t *testing.T) {
		later := base.Add(time.Hour)
		earlier := base.Add(-time.Hour)
		require.NoError(t, store.SaveAgent(ctx, model.AgentRecord{
			Name: "zeta", Tier: model.TierDynamic, Role: "z", Stability: 0.5, CreatedAt: &later,
		}))
		require.NoError(t, store.SaveAgent(ctx, model.AgentRecord{
			Name: "alpha", Tier: model.TierDynamic, Role: "a", Stability: 0.5, CreatedAt: &earlier,
		}))
		list, err := store.ListAgents(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"alpha", "midas", "zeta"}, []string{list[0].Name, list[1].Name, list[2].Name})
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.DeleteAgent(ctx, "zeta"))
		assert.ErrorIs(t, store.DeleteAgent(ctx, "zeta"), storage.ErrNotFound)
		assert.ErrorIs(t, store.DeleteAgent(ctx, "never-existed"), storage.ErrNotFound)

		list, err := store.ListAgents(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}
