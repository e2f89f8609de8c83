// Package config loads and validates studyflow settings from viper.
package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/tracker"
)

// Configuration keys.
const (
	KeyDatabasePath    = "database.path"
	KeyRulesPath       = "rules.path"
	KeyRulesWatch      = "rules.watch"
	KeyMinimumDuration = "tracker.minimum_duration"
	KeyDedup           = "tracker.dedup"
	KeyShiftRollover   = "shift.rollover"
	KeyLogLevel        = "logging.level"
	KeyLogFormat       = "logging.format"
)

// Defaults.
const (
	DefaultDatabasePath = "~/.local/share/studyflow/studyflow.db"
	DefaultRulesPath    = "~/.config/studyflow/rules.yaml"
	DefaultRollover     = "0 7,19 * * *"
)

// IngestConfig holds the settings for a live or replayed feed.
type IngestConfig struct {
	DatabasePath string
	RulesPath    string
	Rollover     string
	Tracker      tracker.Config
	WatchRules   bool
	Dedup        bool
}

// SetDefaults registers default values for every studyflow key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyRulesPath, DefaultRulesPath)
	v.SetDefault(KeyRulesWatch, true)
	v.SetDefault(KeyMinimumDuration, tracker.DefaultConfig().MinimumDuration)
	v.SetDefault(KeyDedup, true)
	v.SetDefault(KeyShiftRollover, DefaultRollover)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// LoadTrackerConfig reads the tracker settings from the global viper instance.
func LoadTrackerConfig() (tracker.Config, error) {
	return loadTrackerConfig(viper.GetViper())
}

// LoadIngestConfig reads and validates the ingest settings from the global viper instance.
func LoadIngestConfig() (*IngestConfig, error) {
	return loadIngestConfig(viper.GetViper())
}

func loadTrackerConfig(v *viper.Viper) (tracker.Config, error) {
	cfg := tracker.DefaultConfig()
	if v.IsSet(KeyMinimumDuration) {
		cfg.MinimumDuration = v.GetDuration(KeyMinimumDuration)
	}
	if cfg.MinimumDuration < 0 {
		return tracker.Config{}, fmt.Errorf("%w: %s must not be negative, got %s",
			common.ErrInvalidConfig, KeyMinimumDuration, cfg.MinimumDuration)
	}
	return cfg, nil
}

func loadIngestConfig(v *viper.Viper) (*IngestConfig, error) {
	trackerCfg, err := loadTrackerConfig(v)
	if err != nil {
		return nil, err
	}

	dbPath, err := ExpandPath(v.GetString(KeyDatabasePath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyDatabasePath, err)
	}
	rulesPath, err := ExpandPath(v.GetString(KeyRulesPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyRulesPath, err)
	}

	cfg := &IngestConfig{
		DatabasePath: dbPath,
		RulesPath:    rulesPath,
		Rollover:     strings.TrimSpace(v.GetString(KeyShiftRollover)),
		Tracker:      trackerCfg,
		WatchRules:   v.GetBool(KeyRulesWatch),
		Dedup:        v.GetBool(KeyDedup),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *IngestConfig) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if c.RulesPath == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyRulesPath)
	}
	if c.Rollover != "" {
		if _, err := cron.ParseStandard(c.Rollover); err != nil {
			return fmt.Errorf("%w: %s %q: %w", common.ErrInvalidConfig, KeyShiftRollover, c.Rollover, err)
		}
	}
	return nil
}
