package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/dbkeeper/internal/audit"
	dbfs "github.com/raoulx24/dbkeeper/internal/fs"
	"github.com/raoulx24/dbkeeper/internal/housekeeping"
	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/snapshot"
)

func fixedClock() time.Time {
	return time.Date(2025, 10, 27, 14, 3, 9, 0, time.Local)
}

type fixture struct {
	source string
	dir    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "db.sqlite")
	require.NoError(t, os.WriteFile(source, []byte("db"), 0o644))
	return fixture{source: source, dir: filepath.Join(root, snapshot.DirName)}
}

func (f fixture) touch(t *testing.T, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, n), []byte("zip"), 0o644))
	}
}

func (f fixture) day(t *testing.T, day string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f.touch(t, fmt.Sprintf("bk%s%02d0000_db.sqlite.zip", day, i))
	}
}

func (f fixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func (f fixture) auditLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(audit.Path(f.source))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func newEngine(max int, opts ...Option) *Engine {
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return New(max, audit.New(audit.WithClock(fixedClock)), logging.Nop(), opts...)
}

func TestCleanOldBackupsScenario(t *testing.T) {
	f := newFixture(t)
	f.touch(t,
		"bk20251001000000_db.sqlite.zip",
		"bk20251001030000_db.sqlite.zip",
		"bk20251001060000_db.sqlite.zip",
		"bk20251001090000_db.sqlite.zip",
		"bk20251001120000_db.sqlite.zip",
		"bk20251001150000_db.sqlite.zip",
		"bk20251001180000_db.sqlite.zip",
	)

	res := newEngine(5).CleanOldBackups(context.Background(), f.source)

	require.Equal(t, housekeeping.OutcomeCleaned, res.Outcome, res.Message())
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, 5, res.Kept)
	assert.Equal(t, []string{
		"bk20251001000000_db.sqlite.zip",
		"bk20251001030000_db.sqlite.zip",
		"bk20251001090000_db.sqlite.zip",
		"bk20251001120000_db.sqlite.zip",
		"bk20251001180000_db.sqlite.zip",
	}, f.files(t))

	assert.Equal(t, []string{
		"2025-10-27 14:03:09 [INFO] Deleted old backup: bk20251001060000_db.sqlite.zip",
		"2025-10-27 14:03:09 [INFO] Deleted old backup: bk20251001150000_db.sqlite.zip",
		"2025-10-27 14:03:09 [INFO] Backup cleanup finished: 2 file(s) deleted",
	}, f.auditLines(t))
}

func TestCleanOldBackupsSummaryMatchesDiskAcrossDays(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 9)
	f.day(t, "20251002", 3)
	f.day(t, "20251003", 12)

	res := newEngine(5).CleanOldBackups(context.Background(), f.source)

	require.Equal(t, housekeeping.OutcomeCleaned, res.Outcome)
	assert.Equal(t, 4+0+7, res.Deleted)
	assert.Len(t, f.files(t), 24-res.Deleted)

	lines := f.auditLines(t)
	summaries := 0
	for _, l := range lines {
		if strings.Contains(l, "Backup cleanup finished") {
			summaries++
		}
	}
	assert.Equal(t, 1, summaries)
	assert.Equal(t, fmt.Sprintf("2025-10-27 14:03:09 [INFO] Backup cleanup finished: %d file(s) deleted", res.Deleted), lines[len(lines)-1])
	assert.Len(t, lines, res.Deleted+1)
}

func TestCleanOldBackupsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 11)
	e := newEngine(5)

	first := e.CleanOldBackups(context.Background(), f.source)
	require.Equal(t, 6, first.Deleted)

	second := e.CleanOldBackups(context.Background(), f.source)
	assert.Equal(t, housekeeping.OutcomeCleaned, second.Outcome)
	assert.Zero(t, second.Deleted)
	assert.Equal(t, 5, second.Kept)

	lines := f.auditLines(t)
	assert.Equal(t, "2025-10-27 14:03:09 [INFO] Backup cleanup finished: no excess backups found", lines[len(lines)-1])
}

func TestCleanOldBackupsAbsentDirectory(t *testing.T) {
	f := newFixture(t)

	res := newEngine(5).CleanOldBackups(context.Background(), f.source)

	assert.Equal(t, housekeeping.OutcomeAbsent, res.Outcome)
	assert.True(t, res.OK())
	assert.True(t, housekeeping.IsKind(res.Err, housekeeping.KindAbsent))
	assert.Empty(t, f.auditLines(t))
	assert.NoDirExists(t, f.dir)
}

func TestCleanOldBackupsIgnoresForeignFiles(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 7)
	foreign := []string{
		"bkXX251001000000_db.sqlite.zip",
		"bk2025_db.zip",
		"notes.txt",
		"bk20251001000000_db.sqlite.tar",
		"history.db",
	}
	f.touch(t, foreign...)
	require.NoError(t, os.Mkdir(filepath.Join(f.dir, "bk20251001990000_dir.zip"), 0o755))

	res := newEngine(5).CleanOldBackups(context.Background(), f.source)

	require.Equal(t, 2, res.Deleted)
	remaining := f.files(t)
	for _, n := range foreign {
		assert.Contains(t, remaining, n)
	}
	assert.Contains(t, remaining, "bk20251001990000_dir.zip")
}

func TestCleanOldBackupsAcceptsConnectionString(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 6)

	res := newEngine(5).CleanOldBackups(context.Background(), `Data Source="`+f.source+`";Version=3`)

	assert.Equal(t, f.source, res.Source)
	assert.Equal(t, 1, res.Deleted)
}

type faultFS struct {
	*dbfs.OSFS
	failRemove  string
	vanish      string
	readDirErr  error
	removeCalls int
}

func (f *faultFS) ReadDir(path string) ([]os.DirEntry, error) {
	if f.readDirErr != nil {
		return nil, f.readDirErr
	}
	return f.OSFS.ReadDir(path)
}

func (f *faultFS) Remove(ctx context.Context, path string) error {
	f.removeCalls++
	switch filepath.Base(path) {
	case f.failRemove:
		return &os.PathError{Op: "remove", Path: path, Err: syscall.EACCES}
	case f.vanish:
		_ = os.Remove(path)
	}
	return f.OSFS.Remove(ctx, path)
}

func TestCleanOldBackupsStopsOnDeleteError(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 7) // drops hours 02 and 05

	ffs := &faultFS{OSFS: dbfs.New(), failRemove: "bk20251001050000_db.sqlite.zip"}
	res := newEngine(5, WithFS(ffs)).CleanOldBackups(context.Background(), f.source)

	assert.Equal(t, housekeeping.OutcomeFailed, res.Outcome)
	assert.True(t, housekeeping.IsKind(res.Err, housekeeping.KindIO))
	assert.ErrorIs(t, res.Err, syscall.EACCES)
	assert.Equal(t, 1, res.Deleted)

	lines := f.auditLines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, "2025-10-27 14:03:09 [INFO] Deleted old backup: bk20251001020000_db.sqlite.zip", lines[0])
	assert.Contains(t, lines[1], "[ERROR] Backup cleanup failed:")
	assert.Contains(t, lines[1], "bk20251001050000_db.sqlite.zip")
}

func TestCleanOldBackupsListingError(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 7)

	ffs := &faultFS{OSFS: dbfs.New(), readDirErr: errors.New("i/o error")}
	res := newEngine(5, WithFS(ffs)).CleanOldBackups(context.Background(), f.source)

	assert.Equal(t, housekeeping.OutcomeFailed, res.Outcome)
	assert.Zero(t, ffs.removeCalls)
	lines := f.auditLines(t)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "[ERROR] Backup cleanup failed: listing")
}

func TestCleanOldBackupsSkipsVanishedFile(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 7)

	ffs := &faultFS{OSFS: dbfs.New(), vanish: "bk20251001020000_db.sqlite.zip"}
	res := newEngine(5, WithFS(ffs)).CleanOldBackups(context.Background(), f.source)

	require.Equal(t, housekeeping.OutcomeCleaned, res.Outcome)
	assert.Equal(t, 1, res.Deleted)
	lines := f.auditLines(t)
	assert.Equal(t, "2025-10-27 14:03:09 [INFO] Backup cleanup finished: 1 file(s) deleted", lines[len(lines)-1])
}

func TestUpdateConfig(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 7)

	e := newEngine(5)
	e.UpdateConfig(3)
	assert.Equal(t, 3, e.MaxPerDay())

	res := e.CleanOldBackups(context.Background(), f.source)
	assert.Equal(t, 4, res.Deleted)

	e.UpdateConfig(1)
	assert.Equal(t, 2, e.MaxPerDay())
}

func TestPlanMatchesClean(t *testing.T) {
	f := newFixture(t)
	f.day(t, "20251001", 9)
	f.day(t, "20251002", 4)
	e := newEngine(5)

	plan, err := e.Plan(context.Background(), f.source)
	require.NoError(t, err)
	require.Len(t, plan.Days, 2)
	assert.Equal(t, 13, plan.Total())
	assert.Equal(t, 4, plan.Dropped())
	assert.Len(t, f.files(t), 13, "plan must not delete anything")
	assert.Empty(t, f.auditLines(t), "plan must not write the audit log")

	res := e.CleanOldBackups(context.Background(), f.source)
	assert.Equal(t, plan.Dropped(), res.Deleted)

	var kept []string
	for _, d := range plan.Days {
		kept = append(kept, names(d.Keep)...)
	}
	assert.ElementsMatch(t, kept, f.files(t))
}

func TestPlanAbsentDirectory(t *testing.T) {
	f := newFixture(t)

	plan, err := newEngine(5).Plan(context.Background(), f.source)
	require.NoError(t, err)
	assert.Empty(t, plan.Days)
	assert.Equal(t, f.dir, plan.Dir)
}
