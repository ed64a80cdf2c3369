package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionString(t *testing.T) {
	cache := buildConnectionString("/tmp/r.db", ProfileCache)
	assert.Contains(t, cache, "/tmp/r.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, cache, "synchronous(OFF)")

	std := buildConnectionString("file:x?mode=memory", ProfileStandard)
	assert.Contains(t, std, "file:x?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, std, "synchronous(NORMAL)")
}

func TestNew_MigratesResultsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.db")
	db, err := New(Config{Path: path, Profile: ProfileCache, Name: "results"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.Equal(t, ProfileCache, db.Profile())
	assert.Equal(t, "results", db.Name())

	require.NoError(t, db.Migrate())
	// Idempotent.
	require.NoError(t, db.Migrate())

	var name string
	err = db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='simulation_results'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "simulation_results", name)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageSize)
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "other"})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "tx.db"), Name: "tx"})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn().Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO t (v) VALUES (1)")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO t (v) VALUES (2)")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("oops")
	})
	assert.ErrorContains(t, err, "panic in transaction")

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count)

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}
