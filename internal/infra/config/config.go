// Package config provides settings loading from a YAML file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config represents the application settings. A missing settings file is
// not an error; every field has a usable default.
type Config struct {
	Volume           int     `yaml:"volume" default:"100" validate:"gte=0,lte=100"`
	DurationMin      float64 `yaml:"duration_min" default:"25" validate:"gte=0"`
	FadeSec          float64 `yaml:"fade_sec" default:"2" validate:"gte=0,lte=30"`
	WeatherFreq      string  `yaml:"weather_freq" default:"medium" validate:"oneof=off low medium high"`
	PlayGong         bool    `yaml:"play_gong" default:"true"`
	CountGraceCancel bool    `yaml:"count_grace_cancel" default:"true"`
	AssetsDir        string  `yaml:"assets_dir"`

	Log LogConfig `yaml:"log"`

	// WeatherLevels holds per-level scheduler overrides as free-form
	// settings maps, decoded on demand.
	WeatherLevels map[string]map[string]any `yaml:"weather_levels"`
}

// LogConfig represents logging settings.
type LogConfig struct {
	Output string `yaml:"output" default:"stderr"`
	Level  string `yaml:"level" default:"info"`
}

// WeatherOverride overrides the built-in scheduler parameters for one
// frequency level.
type WeatherOverride struct {
	Probability float64 `mapstructure:"probability"`
	CooldownSec float64 `mapstructure:"cooldown_sec"`
}

// DefaultPath returns the settings file location under the OS config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve user config dir")
	}
	return filepath.Join(dir, "focusnoise", "config.yaml"), nil
}

// Load loads settings from a YAML file. Defaults are applied before
// unmarshalling so an explicit false in the file survives for boolean
// fields whose default is true.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	for level := range c.WeatherLevels {
		if _, err := c.WeatherOverrideFor(level); err != nil {
			return err
		}
	}
	return nil
}

// WeatherOverrideFor decodes the override map for one frequency level.
// Returns nil if the level has no override.
func (c *Config) WeatherOverrideFor(level string) (*WeatherOverride, error) {
	settings, ok := c.WeatherLevels[level]
	if !ok {
		return nil, nil
	}
	var o WeatherOverride
	if err := mapstructure.Decode(settings, &o); err != nil {
		return nil, errors.Wrapf(err, "invalid weather_levels entry %q", level)
	}
	if o.Probability < 0 || o.Probability > 1 {
		return nil, errors.Newf("weather_levels.%s.probability must be in [0,1], got %v", level, o.Probability)
	}
	if o.CooldownSec < 0 {
		return nil, errors.Newf("weather_levels.%s.cooldown_sec must not be negative", level)
	}
	return &o, nil
}

// Duration returns the default session duration.
func (c *Config) Duration() time.Duration {
	return time.Duration(c.DurationMin * float64(time.Minute))
}

// Fade returns the fade duration for track starts and stops.
func (c *Config) Fade() time.Duration {
	return time.Duration(c.FadeSec * float64(time.Second))
}

// InitialVolume returns the configured volume as a linear gain in [0,1].
func (c *Config) InitialVolume() float64 {
	return float64(c.Volume) / 100.0
}
