package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lolsync.db")
	db, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"players", "matches", "match_participants", "match_timelines", "yearly_aggregates", "job_progress"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lolsync.db")

	first, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestDSN(t *testing.T) {
	got := dsn("/tmp/x.db")
	assert.Contains(t, got, "_txlock=immediate")
	assert.Contains(t, got, "_foreign_keys=on")
	assert.Contains(t, got, "_busy_timeout=10000")
}
