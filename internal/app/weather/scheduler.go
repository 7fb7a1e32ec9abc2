package weather

import (
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Rand is the subset of math/rand the scheduler draws from. Injected so
// tests can supply deterministic sequences.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// OneShotPlayer plays overlay sounds. Satisfied by the mixer.
type OneShotPlayer interface {
	PlayOneShot(soundID string, volume float64) error
}

// Event records one fired weather event.
type Event struct {
	At    time.Time
	Sound string
}

// Scheduler decides on each tick whether to fire a one-shot overlay.
// Probability-per-tick plus a cooldown keeps the ambience organic while
// preventing bursts of overlapping effects.
type Scheduler struct {
	profile Profile
	player  OneShotPlayer
	rng     Rand

	started   bool
	lastFired time.Time
	count     int
}

// NewScheduler creates a scheduler for one session.
func NewScheduler(profile Profile, player OneShotPlayer, rng Rand) *Scheduler {
	return &Scheduler{profile: profile, player: player, rng: rng}
}

// Start marks the session start. The first cooldown-length window after it
// is a grace period in which no event fires.
func (s *Scheduler) Start(now time.Time) {
	s.started = true
	s.lastFired = now
}

// Tick runs one scheduling decision. The orchestrator calls it once per
// session tick and skips it entirely while paused, so paused ticks never
// accumulate a backlog.
//
// A play failure is reported but still counts as a fired event, so a flaky
// device cannot defeat the cooldown.
func (s *Scheduler) Tick(now time.Time) (Event, bool) {
	if !s.started || len(s.profile.Sounds) == 0 {
		return Event{}, false
	}
	if now.Sub(s.lastFired) < s.profile.Cooldown {
		return Event{}, false
	}
	if s.rng.Float64() >= s.profile.Probability {
		return Event{}, false
	}

	sound := s.profile.Sounds[s.rng.Intn(len(s.profile.Sounds))]
	volume := 0.3 + 0.3*s.rng.Float64()
	s.lastFired = now
	s.count++

	if err := s.player.PlayOneShot(sound, volume); err != nil {
		zlog.Warn().Err(err).Str("sound", sound).Msg("weather: one-shot failed to play")
	} else {
		zlog.Debug().Str("sound", sound).Float64("volume", volume).Msg("weather: event fired")
	}
	return Event{At: now, Sound: sound}, true
}

// Count returns the number of events fired so far.
func (s *Scheduler) Count() int {
	return s.count
}
