package config

import (
	"time"

	"github.com/raoulx24/dbkeeper/internal/history"
	"github.com/raoulx24/dbkeeper/internal/retention"
	"github.com/raoulx24/dbkeeper/internal/snapshot"
)

// Default returns the configuration used for every key the file leaves out.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Watch: WatchConfig{
				Mode:            "off",
				PollInterval:    30 * time.Second,
				DebounceWindow:  2 * time.Second,
				StabilityWindow: time.Second,
			},
		},
		Backup: BackupConfig{
			MaxPerDay:        retention.DefaultMaxPerDay,
			CleanAfterBackup: true,
			OnShutdown:       true,
			CompressionLevel: snapshot.DefaultCompressionLevel,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			Listen: "127.0.0.1:8337",
		},
		ConfigReload: ReloadConfig{
			Enabled: true,
			Method:  "signal",
		},
	}
}

// SourcePath is the resolved database file path.
func (c *Config) SourcePath() string {
	return snapshot.ResolveSource(c.Source.Path)
}

// HistoryPath is where the run history is stored.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return history.DefaultPath(c.SourcePath())
}
