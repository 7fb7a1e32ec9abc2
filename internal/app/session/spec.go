package session

import (
	"errors"
	"time"

	cerrors "github.com/cockroachdb/errors"

	"focusnoise/internal/app/weather"
)

// Errors
var (
	ErrInvalidSessionSpec = errors.New("invalid session spec")
	ErrNotActive          = errors.New("session is not active")
	ErrNotPaused          = errors.New("session is not paused")
)

// MaxTasks bounds the task intents carried by one session.
const MaxTasks = 3

// Spec describes one requested session. It is immutable for the session's
// lifetime; the engine validates it during the Starting phase.
type Spec struct {
	Duration     time.Duration // 0 = open-ended
	Tracks       []string      // base track asset ids, at least one
	Volume       float64       // initial per-track volume in [0,1]
	WeatherLevel weather.FrequencyLevel
	Tasks        []string // optional task intents, at most MaxTasks
}

// Validate checks the spec before a session starts.
func (s Spec) Validate() error {
	if len(s.Tracks) == 0 {
		return cerrors.Wrap(ErrInvalidSessionSpec, "no base tracks selected")
	}
	if s.Duration < 0 {
		return cerrors.Wrap(ErrInvalidSessionSpec, "negative duration")
	}
	if s.Volume < 0 || s.Volume > 1 {
		return cerrors.Wrapf(ErrInvalidSessionSpec, "volume %v outside [0,1]", s.Volume)
	}
	if len(s.Tasks) > MaxTasks {
		return cerrors.Wrapf(ErrInvalidSessionSpec, "more than %d tasks", MaxTasks)
	}
	return nil
}

// OpenEnded reports whether the session has no fixed duration.
func (s Spec) OpenEnded() bool {
	return s.Duration == 0
}
