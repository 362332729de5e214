package scheduler

import (
	"time"

	"github.com/galette-community/plugin-stripe/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled bool
	// RunInterval is the pause between two passes over every job.
	RunInterval time.Duration
	// StaleThreshold is how long an entry may stay unset before it is
	// reported as stuck.
	StaleThreshold time.Duration
	BatchSize      int
	JobTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		RunInterval:    time.Minute,
		StaleThreshold: 15 * time.Minute,
		BatchSize:      50,
		JobTimeout:     30 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:        cfg.Scheduler.Enabled,
		RunInterval:    cfg.Scheduler.RunInterval,
		StaleThreshold: cfg.Scheduler.StaleThreshold,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = defaults.StaleThreshold
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
