package scheduler

import (
	"time"

	"github.com/smallbiznis/fieldops/internal/config"
)

// Config controls how often the in-process caller triggers an incremental sync.
type Config struct {
	RunInterval time.Duration
	RunTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		RunTimeout:  10 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{RunInterval: cfg.SchedulerInterval}.withDefaults()
}

// withDefaults also caps the timeout at the interval so runs never overlap.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.RunTimeout > c.RunInterval {
		c.RunTimeout = c.RunInterval
	}
	return c
}
