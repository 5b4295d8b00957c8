package config

import "time"

type Config struct {
	Source       SourceConfig  `yaml:"source"`
	Backup       BackupConfig  `yaml:"backup"`
	History      HistoryConfig `yaml:"history"`
	Logging      LoggingConfig `yaml:"logging"`
	API          APIConfig     `yaml:"api"`
	ConfigReload ReloadConfig  `yaml:"configReload"`
}

type SourceConfig struct {
	// Path is the database file, or a connection string carrying "Data Source=".
	Path  string      `yaml:"path"`
	Watch WatchConfig `yaml:"watch"`
}

type WatchConfig struct {
	Mode            string        `yaml:"mode"`           // "off", "auto", "poll", "fsnotify"
	PollInterval    time.Duration `yaml:"pollInterval"`   // e.g. 30s
	DebounceWindow  time.Duration `yaml:"debounceWindow"` // e.g. 2s
	StabilityWindow time.Duration `yaml:"stabilityWindow"`
}

type BackupConfig struct {
	MaxPerDay        int    `yaml:"maxPerDay"`
	Schedule         string `yaml:"schedule"` // cron expression, empty disables
	CleanAfterBackup bool   `yaml:"cleanAfterBackup"`
	OnShutdown       bool   `yaml:"onShutdown"`
	CompressionLevel int    `yaml:"compressionLevel"` // -2..9, flate levels
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty = backup_history.db next to the source
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "json", "text"
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type ReloadConfig struct {
	Enabled bool   `yaml:"enabled"`
	Method  string `yaml:"method"` // "signal", "fsnotify"
}
