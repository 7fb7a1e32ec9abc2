package session

import (
	"time"

	"focusnoise/internal/app/mixer"
	"focusnoise/internal/app/timer"
	"focusnoise/internal/app/weather"
	"focusnoise/internal/domain/rank"
)

// Snapshot is the read-only view of engine state handed to the dashboard
// each refresh tick.
type Snapshot struct {
	Phase      Phase
	TimerState timer.State
	Elapsed    time.Duration
	Remaining  time.Duration // meaningful only when Bounded
	Bounded    bool

	Tracks []mixer.TrackLevel
	Master float64

	// Live progression display, pre-finalize: prior stats plus the time
	// focused so far.
	Tier       rank.Tier
	Streak     int
	TotalFocus time.Duration

	Tasks        []string
	WeatherCount int
	LastWeather  *weather.Event
}

// snapshot builds a Snapshot. Must be called with the engine lock held.
func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:  e.phase,
		Master: 1.0,
		Tier:   e.prior.Tier,
		Streak: e.prior.Streak,
		Tasks:  e.spec.Tasks,
	}

	if e.tmr != nil {
		snap.TimerState = e.tmr.State()
		snap.Elapsed = e.tmr.Elapsed()
		snap.Remaining, snap.Bounded = e.tmr.Remaining()
	}
	if e.mix != nil {
		snap.Tracks = e.mix.Levels()
		snap.Master = e.mix.Master()
	}

	snap.TotalFocus = e.prior.TotalFocus + snap.Elapsed
	if live := rank.TierFor(snap.TotalFocus); live > snap.Tier {
		snap.Tier = live
	}

	snap.WeatherCount = len(e.events)
	if n := len(e.events); n > 0 {
		last := e.events[n-1]
		snap.LastWeather = &last
	}
	return snap
}
