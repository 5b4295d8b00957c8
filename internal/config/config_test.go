package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("source:\n  path: /srv/app.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/app.db", cfg.SourcePath())
	assert.Equal(t, 5, cfg.Backup.MaxPerDay)
	assert.Equal(t, 9, cfg.Backup.CompressionLevel)
	assert.True(t, cfg.Backup.CleanAfterBackup)
	assert.Equal(t, "off", cfg.Source.Watch.Mode)
	assert.Equal(t, 30*time.Second, cfg.Source.Watch.PollInterval)
	assert.Equal(t, filepath.Join("/srv", "backup_history.db"), cfg.HistoryPath())
}

func TestParseFullFile(t *testing.T) {
	t.Setenv("DBKEEPER_TEST_DIR", "/var/lib/wastedesk")

	cfg, err := Parse([]byte(`
source:
  path: "Data Source=$(DBKEEPER_TEST_DIR)/wastedesk.db;Cache=Shared"
  watch:
    mode: poll
    pollInterval: 10s
    debounceWindow: 500ms
backup:
  maxPerDay: 8
  schedule: "*/15 * * * *"
  cleanAfterBackup: false
  compressionLevel: 1
history:
  enabled: false
  path: /tmp/h.db
logging:
  level: debug
  format: json
api:
  enabled: true
  listen: ":9000"
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/wastedesk/wastedesk.db", cfg.SourcePath())
	assert.Equal(t, "poll", cfg.Source.Watch.Mode)
	assert.Equal(t, 10*time.Second, cfg.Source.Watch.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Source.Watch.DebounceWindow)
	assert.Equal(t, time.Second, cfg.Source.Watch.StabilityWindow)
	assert.Equal(t, 8, cfg.Backup.MaxPerDay)
	assert.Equal(t, "*/15 * * * *", cfg.Backup.Schedule)
	assert.False(t, cfg.Backup.CleanAfterBackup)
	assert.True(t, cfg.Backup.OnShutdown)
	assert.Equal(t, 1, cfg.Backup.CompressionLevel)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "/tmp/h.db", cfg.HistoryPath())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":9000", cfg.API.Listen)
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]string{
		"missing source": "backup:\n  maxPerDay: 5\n",
		"max per day":    "source:\n  path: a.db\nbackup:\n  maxPerDay: 1\n",
		"compression":    "source:\n  path: a.db\nbackup:\n  compressionLevel: 12\n",
		"schedule":       "source:\n  path: a.db\nbackup:\n  schedule: sometimes\n",
		"watch mode":     "source:\n  path: a.db\n  watch:\n    mode: inotify\n",
		"reload method":  "source:\n  path: a.db\nconfigReload:\n  method: http\n",
		"api listen":     "source:\n  path: a.db\napi:\n  enabled: true\n  listen: \"\"\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Backup.MaxPerDay = 0
	cfg.Backup.CompressionLevel = 42

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.path")
	assert.Contains(t, err.Error(), "maxPerDay")
	assert.Contains(t, err.Error(), "compressionLevel")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  path: ./app.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./app.db", cfg.Source.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandEnvVarsMissing(t *testing.T) {
	assert.Equal(t, "/data//x.db", expandEnvVars("/data/$(DBKEEPER_SURELY_UNSET)/x.db"))
}
