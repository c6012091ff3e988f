// Package nconf loads engine-wide configuration — safety thresholds,
// autosave cadence, notification sinks — via viper, with a package-level
// singleton mirroring the rest of the engine's one piece of global state
// (see internal/nlog for the other half).
package nconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Settings is the engine's tunable configuration. Every field has a
// viper-backed default; values are overridden by config.yaml, then by
// environment variables prefixed NUEVA_ (e.g. NUEVA_UNDO_MAX_LEVELS).
type Settings struct {
	Safety struct {
		ClippingCeilingDB     float64 `mapstructure:"clipping_ceiling_db"`
		NearClippingMarginDB  float64 `mapstructure:"near_clipping_margin_db"`
		PhaseUnsafeBelow      float64 `mapstructure:"phase_unsafe_below"`
		PhaseWarnBelow        float64 `mapstructure:"phase_warn_below"`
		LoudnessWarnLUFS      float64 `mapstructure:"loudness_warn_lufs"`
		DurationToleranceSecs float64 `mapstructure:"duration_tolerance_secs"`
		AutoMitigate          bool    `mapstructure:"auto_mitigate"`
	}

	Autosave struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
		MaxAutosaves    int `mapstructure:"max_autosaves"`
	}

	Undo struct {
		MaxLevels int `mapstructure:"max_levels"`
	}

	Notify struct {
		MQTTBroker    string   `mapstructure:"mqtt_broker"`
		ShoutrrrURLs  []string `mapstructure:"shoutrrr_urls"`
	}
}

var (
	instance      *Settings
	instanceMutex sync.RWMutex
)

func setDefaults() {
	viper.SetDefault("safety.clipping_ceiling_db", 0.0)
	viper.SetDefault("safety.near_clipping_margin_db", 1.0)
	viper.SetDefault("safety.phase_unsafe_below", 0.2)
	viper.SetDefault("safety.phase_warn_below", 0.3)
	viper.SetDefault("safety.loudness_warn_lufs", -5.0)
	viper.SetDefault("safety.duration_tolerance_secs", 0.1)
	viper.SetDefault("safety.auto_mitigate", true)

	viper.SetDefault("autosave.interval_seconds", 60)
	viper.SetDefault("autosave.max_autosaves", 10)

	viper.SetDefault("undo.max_levels", 50)

	viper.SetDefault("notify.mqtt_broker", "")
	viper.SetDefault("notify.shoutrrr_urls", []string{})
}

// Load reads config.yaml (if present, searched in the current directory
// and $HOME/.config/nueva) and NUEVA_-prefixed environment overrides into
// a fresh Settings, caching it as the process-wide instance.
func Load() (*Settings, error) {
	instanceMutex.Lock()
	defer instanceMutex.Unlock()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "nueva"))
	}
	viper.SetEnvPrefix("NUEVA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	instance = settings
	return settings, nil
}

// Get returns the process-wide Settings, loading defaults if Load was
// never called.
func Get() *Settings {
	instanceMutex.RLock()
	if instance != nil {
		defer instanceMutex.RUnlock()
		return instance
	}
	instanceMutex.RUnlock()

	settings, err := Load()
	if err != nil {
		instanceMutex.Lock()
		defer instanceMutex.Unlock()
		instance = &Settings{}
		setDefaults()
		_ = viper.Unmarshal(instance)
		return instance
	}
	return settings
}
