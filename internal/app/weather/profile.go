// Package weather provides the probabilistic one-shot overlay scheduler
// that keeps the ambience organic.
package weather

import (
	"strings"
	"time"

	"focusnoise/internal/infra/audio"
)

// FrequencyLevel selects how often weather events fire.
type FrequencyLevel string

const (
	LevelOff    FrequencyLevel = "off"
	LevelLow    FrequencyLevel = "low"
	LevelMedium FrequencyLevel = "medium"
	LevelHigh   FrequencyLevel = "high"
)

// ParseLevel parses a frequency level string, defaulting to medium.
func ParseLevel(s string) FrequencyLevel {
	switch FrequencyLevel(strings.ToLower(s)) {
	case LevelOff:
		return LevelOff
	case LevelLow:
		return LevelLow
	case LevelHigh:
		return LevelHigh
	default:
		return LevelMedium
	}
}

// Profile is the immutable scheduler configuration for one session.
type Profile struct {
	Name        string
	Probability float64       // trigger probability per scheduler tick
	Cooldown    time.Duration // minimum spacing between events
	Sounds      []string      // candidate one-shot asset ids
}

// levelParams holds the built-in per-level parameters. With a 1s scheduler
// tick the mean spacing between events is cooldown + 1/probability seconds,
// roughly matching low≈2min, medium≈1min, high≈30s.
var levelParams = map[FrequencyLevel]struct {
	probability float64
	cooldown    time.Duration
}{
	LevelLow:    {1.0 / 60, 60 * time.Second},
	LevelMedium: {1.0 / 30, 30 * time.Second},
	LevelHigh:   {1.0 / 15, 15 * time.Second},
}

// textureMap associates base ambience names with the overlay sounds that
// fit them. Keys are cleaned names, matched loosely against base tracks.
var textureMap = map[string][]string{
	"brown noise":   {"keyboard.mp3", "page-turn.mp3", "vinyl-crackle.mp3"},
	"city":          {"distant-ambulance-siren.mp3", "distant-train.mp3", "bike-bell.mp3", "door-open-close-with-bell.mp3"},
	"coffee shop":   {"espresso-steam.mp3", "pouring-coffee.mp3", "spoon-and-cup.mp3", "cup-and-saucer.mp3", "cash-register.mp3"},
	"fire":          {"page-turn.mp3", "vinyl-crackle.mp3", "crickets.mp3", "owl.mp3", "winter-wind.mp3"},
	"flowing water": {"frog.mp3", "wind-chimes.mp3", "distant-thunder.mp3"},
	"gentle rain":   {"distant-thunder.mp3", "winter-wind.mp3", "wind-chimes.mp3"},
	"lofi":          {"vinyl-crackle.mp3", "keyboard.mp3", "page-turn.mp3", "big-bell.mp3"},
	"omm":           {"big-bell.mp3", "wind-chimes.mp3"},
	"rain sounds":   {"distant-thunder.mp3", "winter-wind.mp3"},
	"sea wave":      {"seagull.mp3", "distant-foghorn.mp3", "winter-wind.mp3"},
}

// ProfileFor builds the profile for a session from its frequency level and
// selected base tracks. Candidates come from the texture catalog, filtered
// by availability; the bool is false when the level is off or no candidate
// sound is available.
func ProfileFor(level FrequencyLevel, baseTracks []string, available func(string) bool) (Profile, bool) {
	params, ok := levelParams[level]
	if !ok {
		return Profile{}, false
	}

	seen := make(map[string]bool)
	var sounds []string
	for _, track := range baseTracks {
		clean := audio.CleanName(track)
		for key, candidates := range textureMap {
			if !strings.Contains(clean, key) && !strings.Contains(key, clean) {
				continue
			}
			for _, s := range candidates {
				if seen[s] || (available != nil && !available(s)) {
					continue
				}
				seen[s] = true
				sounds = append(sounds, s)
			}
		}
	}
	if len(sounds) == 0 {
		return Profile{}, false
	}

	return Profile{
		Name:        string(level),
		Probability: params.probability,
		Cooldown:    params.cooldown,
		Sounds:      sounds,
	}, true
}
