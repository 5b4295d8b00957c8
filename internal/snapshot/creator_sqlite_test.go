package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/raoulx24/dbkeeper/internal/housekeeping"
)

// A database held open in WAL mode has -wal/-shm sidecars; the backup must
// wait until the last connection closes and SQLite removes them.
func TestCreateBackupWaitsForOpenWALDatabase(t *testing.T) {
	src := filepath.Join(t.TempDir(), "wastedesk.db")

	db, err := sqlx.Connect("sqlite", src)
	require.NoError(t, err)

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE client (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO client (name) VALUES (?), (?)`, "Acme Waste", "Greenway")
	require.NoError(t, err)

	c := newTestCreator()

	res := c.CreateBackup(context.Background(), src)
	assert.Equal(t, housekeeping.OutcomeDeferred, res.Outcome)

	require.NoError(t, db.Close())

	res = c.CreateBackup(context.Background(), src)
	require.Equal(t, housekeeping.OutcomeCreated, res.Outcome, res.Message())
	assert.FileExists(t, res.Path)
}
