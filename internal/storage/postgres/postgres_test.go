package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvine-ai/solvine/internal/storage/postgres"
	"github.com/solvine-ai/solvine/internal/storage/storetest"
	"github.com/solvine-ai/solvine/internal/testutil"
	"github.com/solvine-ai/solvine/migrations"
)

func TestStore_Conformance(t *testing.T) {
	dsn := testutil.StartPostgres(t)
	ctx := context.Background()

	store, err := postgres.New(ctx, dsn, testutil.TestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	assert.Equal(t, "postgres", store.Kind())
	storetest.Run(t, store)

	// Migrations are idempotent.
	require.NoError(t, store.RunMigrations(ctx, migrations.Postgres()))
	var applied int
	require.NoError(t, store.Pool().QueryRow(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)
}
