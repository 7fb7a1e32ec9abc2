package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Volume)
	assert.Equal(t, 25*time.Minute, cfg.Duration())
	assert.Equal(t, 2*time.Second, cfg.Fade())
	assert.Equal(t, "medium", cfg.WeatherFreq)
	assert.True(t, cfg.PlayGong)
	assert.True(t, cfg.CountGraceCancel)
	assert.InDelta(t, 1.0, cfg.InitialVolume(), 1e-9)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
volume: 60
duration_min: 45
fade_sec: 1.5
weather_freq: high
play_gong: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Volume)
	assert.Equal(t, 45*time.Minute, cfg.Duration())
	assert.Equal(t, 1500*time.Millisecond, cfg.Fade())
	assert.Equal(t, "high", cfg.WeatherFreq)
	assert.False(t, cfg.PlayGong, "explicit false must survive the default")
	assert.True(t, cfg.CountGraceCancel, "untouched bool keeps its default")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Volume above 100", "volume: 110"},
		{"Negative duration", "duration_min: -5"},
		{"Unknown weather level", "weather_freq: monsoon"},
		{"Probability out of range", "weather_levels:\n  medium:\n    probability: 1.5"},
		{"Negative cooldown", "weather_levels:\n  low:\n    cooldown_sec: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "volume: [not a number"))
	assert.Error(t, err)
}

func TestWeatherOverrideFor(t *testing.T) {
	path := writeConfig(t, `
weather_levels:
  medium:
    probability: 0.05
    cooldown_sec: 20
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	o, err := cfg.WeatherOverrideFor("medium")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.InDelta(t, 0.05, o.Probability, 1e-9)
	assert.InDelta(t, 20, o.CooldownSec, 1e-9)

	none, err := cfg.WeatherOverrideFor("low")
	require.NoError(t, err)
	assert.Nil(t, none)
}
