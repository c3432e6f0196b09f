// Package config loads engine configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"labsynth/internal/registry"
)

// LookbackMonths is the fixed generation window: the start date is always
// this many months before the end date.
const LookbackMonths = 15

// Config is the engine configuration resolved from LABSYNTH_* variables.
type Config struct {
	Mode       string `mapstructure:"LABSYNTH_MODE"`
	Seed       int64  `mapstructure:"LABSYNTH_SEED"`
	OutputRoot string `mapstructure:"LABSYNTH_OUTPUT_ROOT"`
	EndDate    string `mapstructure:"LABSYNTH_END_DATE"`
	Validation string `mapstructure:"LABSYNTH_VALIDATION"`
	BlobDriver string `mapstructure:"LABSYNTH_BLOB_DRIVER"`

	// MetricsDriver selects the generation metrics backend: prometheus,
	// expvar, or none.
	MetricsDriver string `mapstructure:"LABSYNTH_METRICS_DRIVER"`

	RunLogDriver string `mapstructure:"LABSYNTH_RUNLOG_DRIVER"`
	RunLogPath   string `mapstructure:"LABSYNTH_RUNLOG_PATH"`
	RunLogDSN    string `mapstructure:"LABSYNTH_RUNLOG_DSN"`

	// Sources maps family name to its model-based source location, read
	// from LABSYNTH_SOURCE_<FAMILY> (family name upper-cased).
	Sources map[string]string `mapstructure:"-"`
}

// Load resolves configuration from the environment with defaults applied.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LABSYNTH_MODE", "parametric")
	v.SetDefault("LABSYNTH_SEED", 42)
	v.SetDefault("LABSYNTH_OUTPUT_ROOT", "./labsynth-out")
	v.SetDefault("LABSYNTH_END_DATE", time.Now().UTC().Format("2006-01-02"))
	v.SetDefault("LABSYNTH_VALIDATION", "strict")
	v.SetDefault("LABSYNTH_BLOB_DRIVER", "fs")
	v.SetDefault("LABSYNTH_METRICS_DRIVER", "prometheus")
	v.SetDefault("LABSYNTH_RUNLOG_DRIVER", "sqlite")
	v.SetDefault("LABSYNTH_RUNLOG_PATH", "labsynth-runs.db")

	for _, key := range []string{
		"LABSYNTH_MODE", "LABSYNTH_SEED", "LABSYNTH_OUTPUT_ROOT", "LABSYNTH_END_DATE",
		"LABSYNTH_VALIDATION", "LABSYNTH_BLOB_DRIVER", "LABSYNTH_METRICS_DRIVER",
		"LABSYNTH_RUNLOG_DRIVER", "LABSYNTH_RUNLOG_PATH", "LABSYNTH_RUNLOG_DSN",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Sources = make(map[string]string)
	for _, family := range registry.FamilyNames() {
		key := sourceKey(family)
		_ = v.BindEnv(key)
		if loc := v.GetString(key); loc != "" {
			cfg.Sources[family] = loc
		}
	}

	// development/production are accepted as aliases for the two modes.
	switch cfg.Mode {
	case "parametric", "model-based":
	case "development":
		cfg.Mode = "parametric"
	case "production":
		cfg.Mode = "model-based"
	default:
		return nil, fmt.Errorf("LABSYNTH_MODE must be parametric (development) or model-based (production), got %q", cfg.Mode)
	}
	switch cfg.Validation {
	case "strict", "warn":
	default:
		return nil, fmt.Errorf("LABSYNTH_VALIDATION must be strict or warn, got %q", cfg.Validation)
	}
	switch cfg.MetricsDriver {
	case "prometheus", "expvar", "none":
	default:
		return nil, fmt.Errorf("LABSYNTH_METRICS_DRIVER must be prometheus, expvar, or none, got %q", cfg.MetricsDriver)
	}
	return cfg, nil
}

// Window resolves the generation date range: the configured end date and a
// start date LookbackMonths earlier.
func (c *Config) Window() (start, end time.Time, err error) {
	end, err = time.Parse("2006-01-02", c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse LABSYNTH_END_DATE: %w", err)
	}
	return end.AddDate(0, -LookbackMonths, 0), end, nil
}

func sourceKey(family string) string {
	return "LABSYNTH_SOURCE_" + strings.ToUpper(family)
}
