package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := loadMigrations(migrationFiles)

	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].version)
	assert.Equal(t, "001_documents.up.sql", migrations[0].name)
	assert.Contains(t, migrations[0].sql, "CREATE TABLE IF NOT EXISTS documents")
}

func TestLoadMigrations_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.up.sql":  {Data: []byte("SELECT 10;")},
		"migrations/002_next.up.sql":   {Data: []byte("SELECT 2;")},
		"migrations/002_next.down.sql": {Data: []byte("SELECT 0;")},
	}

	migrations, err := loadMigrations(fsys)

	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 2, migrations[0].version)
	assert.Equal(t, 10, migrations[1].version)
}

func TestLoadMigrations_BadName(t *testing.T) {
	fsys := fstest.MapFS{"migrations/initial.up.sql": {Data: []byte("SELECT 1;")}}

	_, err := loadMigrations(fsys)

	assert.Error(t, err)
}

func TestMigrate_AppliesOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"migrations/001_a.up.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"migrations/002_b.up.sql": {Data: []byte("CREATE TABLE b (id INTEGER); INSERT INTO b VALUES (1);")},
	}

	applied, err := migrate(ctx, db, fsys)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	applied, err = migrate(ctx, db, fsys)
	require.NoError(t, err)
	assert.Zero(t, applied)

	var version int
	require.NoError(t, db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 2, version)
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"migrations/001_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"migrations/002_broken.up.sql": {Data: []byte("CREATE TABLE broken (id INTEGER); NOT SQL;")},
	}

	applied, err := migrate(ctx, db, fsys)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_broken.up.sql")
	assert.Equal(t, 1, applied)

	var version int
	require.NoError(t, db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 1, version)

	var tables int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'broken'`).Scan(&tables))
	assert.Zero(t, tables)
}
