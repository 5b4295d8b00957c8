package config

import (
	"errors"
	"fmt"

	"github.com/raoulx24/dbkeeper/internal/scheduler"
)

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.SourcePath() == "" {
		errs = append(errs, errors.New("source.path is required"))
	}

	switch c.Source.Watch.Mode {
	case "off", "poll", "fsnotify", "auto":
	default:
		errs = append(errs, fmt.Errorf("source.watch.mode: unknown mode %q", c.Source.Watch.Mode))
	}
	if c.Source.Watch.Mode != "off" && c.Source.Watch.PollInterval <= 0 {
		errs = append(errs, errors.New("source.watch.pollInterval must be positive"))
	}
	if c.Source.Watch.DebounceWindow < 0 || c.Source.Watch.StabilityWindow < 0 {
		errs = append(errs, errors.New("source.watch windows must not be negative"))
	}

	if c.Backup.MaxPerDay < 2 {
		errs = append(errs, fmt.Errorf("backup.maxPerDay must be at least 2, got %d", c.Backup.MaxPerDay))
	}
	if c.Backup.CompressionLevel < -2 || c.Backup.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("backup.compressionLevel must be between -2 and 9, got %d", c.Backup.CompressionLevel))
	}
	if err := scheduler.Validate(c.Backup.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("backup.schedule: %w", err))
	}

	if c.API.Enabled && c.API.Listen == "" {
		errs = append(errs, errors.New("api.listen is required when the api is enabled"))
	}

	switch c.ConfigReload.Method {
	case "", "signal", "fsnotify":
	default:
		errs = append(errs, fmt.Errorf("configReload.method: unknown method %q", c.ConfigReload.Method))
	}

	return errors.Join(errs...)
}
