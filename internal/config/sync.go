package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const syncDateLayout = "2006-01-02"

// SyncConfig tunes the job sync pipeline. It is read from sync.yml and may be
// edited while the process runs.
type SyncConfig struct {
	Epoch                   string            `mapstructure:"epoch"`
	WindowDays              int               `mapstructure:"windowDays"`
	TimesheetPadDays        int               `mapstructure:"timesheetPadDays"`
	EnrichmentWorkers       int               `mapstructure:"enrichmentWorkers"`
	IncrementalLookbackDays int               `mapstructure:"incrementalLookbackDays"`
	WindowTimeout           time.Duration     `mapstructure:"windowTimeout"`
	TradeOverrides          map[string]string `mapstructure:"tradeOverrides"`
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Epoch:                   "2024-01-01",
		WindowDays:              14,
		TimesheetPadDays:        7,
		EnrichmentWorkers:       5,
		IncrementalLookbackDays: 3,
		WindowTimeout:           4 * time.Minute,
		TradeOverrides:          map[string]string{},
	}
}

// EpochDate returns the program start date at midnight UTC.
func (c SyncConfig) EpochDate() time.Time {
	t, err := time.Parse(syncDateLayout, strings.TrimSpace(c.Epoch))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

type SyncConfigHolder struct {
	current atomic.Value // holds SyncConfig
}

// NewStaticSyncConfigHolder returns a holder that never reloads.
func NewStaticSyncConfigHolder(cfg SyncConfig) *SyncConfigHolder {
	holder := &SyncConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewSyncConfigHolder(log *zap.Logger) (*SyncConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("sync.config")

	v := viper.New()
	v.SetConfigName("sync")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fieldops/config")
	v.AddConfigPath("/etc/fieldops")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FIELDOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSyncConfig()
	v.SetDefault("sync.epoch", defaults.Epoch)
	v.SetDefault("sync.windowDays", defaults.WindowDays)
	v.SetDefault("sync.timesheetPadDays", defaults.TimesheetPadDays)
	v.SetDefault("sync.enrichmentWorkers", defaults.EnrichmentWorkers)
	v.SetDefault("sync.incrementalLookbackDays", defaults.IncrementalLookbackDays)
	v.SetDefault("sync.windowTimeout", defaults.WindowTimeout)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	cfg, err := decodeSyncConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &SyncConfigHolder{}
	holder.current.Store(cfg)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeSyncConfig(v)
			if err != nil {
				log.Warn("invalid sync config ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("sync config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *SyncConfigHolder) Get() SyncConfig {
	if h == nil {
		return DefaultSyncConfig()
	}
	cfg, ok := h.current.Load().(SyncConfig)
	if !ok {
		return DefaultSyncConfig()
	}
	return cfg
}

func decodeSyncConfig(v *viper.Viper) (SyncConfig, error) {
	var cfg SyncConfig
	if err := v.UnmarshalKey("sync", &cfg); err != nil {
		return SyncConfig{}, err
	}
	if cfg.TradeOverrides == nil {
		cfg.TradeOverrides = map[string]string{}
	}
	if err := validateSyncConfig(cfg); err != nil {
		return SyncConfig{}, err
	}
	return cfg, nil
}

func validateSyncConfig(cfg SyncConfig) error {
	if _, err := time.Parse(syncDateLayout, strings.TrimSpace(cfg.Epoch)); err != nil {
		return fmt.Errorf("sync.epoch must be YYYY-MM-DD: %w", err)
	}
	if cfg.WindowDays <= 0 {
		return errors.New("sync.windowDays must be positive")
	}
	if cfg.TimesheetPadDays < 0 {
		return errors.New("sync.timesheetPadDays cannot be negative")
	}
	if cfg.EnrichmentWorkers <= 0 {
		return errors.New("sync.enrichmentWorkers must be positive")
	}
	if cfg.IncrementalLookbackDays <= 0 {
		return errors.New("sync.incrementalLookbackDays must be positive")
	}
	for name, trade := range cfg.TradeOverrides {
		switch strings.ToLower(strings.TrimSpace(trade)) {
		case "hvac", "plumbing":
		default:
			return fmt.Errorf("sync.tradeOverrides[%s]: unknown trade %q", name, trade)
		}
	}
	return nil
}
