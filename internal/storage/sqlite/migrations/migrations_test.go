package migrations_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/storage/sqlite/migrations"
)

func TestNewMigrator(t *testing.T) {
	_, err := migrations.NewMigrator(migrations.MigratorConfig{Logger: log.Noop})
	assert.Error(t, err)
}

func TestMigratorUp(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "launcher.db"))
	require.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db})
	require.NoError(err)

	version, err := m.Version(ctx)
	require.NoError(err)
	assert.Equal(uint(0), version)

	require.NoError(m.Up(ctx))
	version, err = m.Version(ctx)
	require.NoError(err)
	assert.Equal(uint(1), version)

	// An up to date schema is not an error.
	require.NoError(m.Up(ctx))

	_, err = db.ExecContext(ctx, `INSERT INTO instances (id, name, modpack_id, modpack_version_id, dir, created_at) VALUES ('inst-1', 'skyblock', 'mp-1', 'latest', '/data/skyblock', 1700000000)`)
	require.NoError(err)

	var lastKnown string
	require.NoError(db.QueryRowContext(ctx, `SELECT last_known_version FROM instances WHERE id = 'inst-1'`).Scan(&lastKnown))
	assert.Empty(lastKnown)

	_, err = db.ExecContext(ctx, `INSERT INTO instances (id, name, modpack_id, modpack_version_id, dir, created_at) VALUES ('inst-2', 'skyblock', 'mp-1', 'latest', '/data/other', 1700000000)`)
	assert.Error(err, "instance names are unique")
}
