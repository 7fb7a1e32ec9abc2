package timer

import (
	"errors"
	"sync"
	"time"
)

// Errors
var (
	ErrNotIdle    = errors.New("timer already started")
	ErrNotRunning = errors.New("timer is not running")
	ErrNotPaused  = errors.New("timer is not paused")
	ErrFinished   = errors.New("timer already finished")
)

// Timer tracks elapsed and remaining time for one session. A zero duration
// means an open-ended session, which never completes on its own and only
// ever reaches Cancelled.
type Timer struct {
	mu sync.Mutex

	state         State
	duration      time.Duration // 0 = open-ended
	startTime     time.Time
	pausedAt      time.Time
	pausedElapsed time.Duration
	finalElapsed  time.Duration // frozen at completion or cancel

	now func() time.Time
}

// New creates a timer for the given duration. Pass 0 for open-ended.
func New(duration time.Duration) *Timer {
	if duration < 0 {
		duration = 0
	}
	return &Timer{duration: duration, now: time.Now}
}

// SetClock replaces the time source, for tests.
func (t *Timer) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Bounded reports whether the timer has a fixed duration.
func (t *Timer) Bounded() bool {
	return t.duration > 0
}

// Duration returns the configured duration (0 for open-ended).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Start transitions Idle → Running.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return ErrNotIdle
	}
	t.startTime = t.now()
	t.state = StateRunning
	return nil
}

// Pause freezes elapsed-time accounting. Valid only from Running.
func (t *Timer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkCompletionLocked()
	switch t.state {
	case StateCompleted, StateCancelled:
		return ErrFinished
	case StateRunning:
	default:
		return ErrNotRunning
	}

	t.pausedAt = t.now()
	t.state = StatePaused
	return nil
}

// Resume continues accounting from the frozen point. Valid only from
// Paused; no time is lost or double-counted.
func (t *Timer) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePaused {
		return ErrNotPaused
	}
	t.pausedElapsed += t.now().Sub(t.pausedAt)
	t.pausedAt = time.Time{}
	t.state = StateRunning
	return nil
}

// Cancel stops the timer early, retaining elapsed-so-far. Valid from
// Running or Paused; this is the normal path for an interrupt-driven stop.
func (t *Timer) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkCompletionLocked()
	switch t.state {
	case StateRunning, StatePaused:
	default:
		return ErrFinished
	}

	t.finalElapsed = t.elapsedLocked()
	t.state = StateCancelled
	return nil
}

// State returns the current state, applying natural completion first.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkCompletionLocked()
	return t.state
}

// Elapsed returns the time spent in Running, excluding paused spans. For a
// bounded timer it never exceeds the duration.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkCompletionLocked()
	return t.elapsedLocked()
}

// Remaining returns the remaining time and true for a bounded timer, or
// (0, false) for an open-ended one.
func (t *Timer) Remaining() (time.Duration, bool) {
	if !t.Bounded() {
		return 0, false
	}
	remaining := t.duration - t.Elapsed()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

func (t *Timer) elapsedLocked() time.Duration {
	switch t.state {
	case StateIdle:
		return 0
	case StateCompleted, StateCancelled:
		return t.finalElapsed
	}

	elapsed := t.now().Sub(t.startTime) - t.pausedElapsed
	if t.state == StatePaused {
		elapsed -= t.now().Sub(t.pausedAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if t.Bounded() && elapsed > t.duration {
		elapsed = t.duration
	}
	return elapsed
}

// checkCompletionLocked applies the automatic Running → Completed
// transition for bounded timers whose remaining time has reached zero.
func (t *Timer) checkCompletionLocked() {
	if t.state != StateRunning || !t.Bounded() {
		return
	}
	if t.elapsedLocked() >= t.duration {
		t.finalElapsed = t.duration
		t.state = StateCompleted
	}
}
