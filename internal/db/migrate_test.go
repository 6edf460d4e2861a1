package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openUnmigratedDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenDB(filepath.Join(t.TempDir(), "subjects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMigrateUpFromEmpty(t *testing.T) {
	t.Parallel()
	database := openUnmigratedDB(t)

	version, dirty, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, database.MigrateUp(MigrationsFS()))

	version, dirty, err = database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Up again is a no-op.
	require.NoError(t, database.MigrateUp(MigrationsFS()))
}

func TestMigrateDownStepsBack(t *testing.T) {
	t.Parallel()
	database := openUnmigratedDB(t)
	require.NoError(t, database.MigrateUp(MigrationsFS()))

	require.NoError(t, database.MigrateDown(MigrationsFS()))
	version, _, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	// The v1 schema still accepts inserts without the v2 column.
	_, err = database.ExecContext(context.Background(), `
		INSERT INTO subjects (id, created_at, updated_at)
		VALUES ('x', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
	assert.NoError(t, err)
}

func TestMigrateToSpecificVersion(t *testing.T) {
	t.Parallel()
	database := openUnmigratedDB(t)

	require.NoError(t, database.MigrateTo(MigrationsFS(), 1))
	version, _, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, database.MigrateTo(MigrationsFS(), 2))
	version, _, err = database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestMigrateForceClearsDirtyMarker(t *testing.T) {
	t.Parallel()
	database := openUnmigratedDB(t)
	require.NoError(t, database.MigrateUp(MigrationsFS()))

	require.NoError(t, database.MigrateForce(MigrationsFS(), 1))
	version, dirty, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

// The in-place v2 migration wraps pre-existing v1 rows so old galleries
// keep matching after an upgrade.
func TestMigrationWrapsLegacyRows(t *testing.T) {
	t.Parallel()
	database := openUnmigratedDB(t)
	ctx := context.Background()

	require.NoError(t, database.MigrateTo(MigrationsFS(), 1))
	_, err := database.ExecContext(ctx, `
		INSERT INTO subjects (id, iris_template, created_at, updated_at)
		VALUES ('old', '1, 0, 1', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)

	require.NoError(t, database.MigrateUp(MigrationsFS()))

	got, err := database.GetByID(ctx, "old")
	require.NoError(t, err)
	require.Len(t, got.Templates, 1)
	assert.Equal(t, []float64{1, 0, 1}, got.Templates[0])

	var v1 any
	row := database.QueryRowContext(ctx, `SELECT iris_template FROM subjects WHERE id = 'old'`)
	require.NoError(t, row.Scan(&v1))
	assert.Nil(t, v1, "v1 payload cleared by the migration")
}
