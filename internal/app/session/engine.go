package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"focusnoise/internal/app/mixer"
	"focusnoise/internal/app/timer"
	"focusnoise/internal/app/weather"
	"focusnoise/internal/domain/rank"
	"focusnoise/internal/domain/receipt"
	"focusnoise/internal/infra/audio"
)

// StatsStore is the read-once/write-once persistence boundary for the
// FocusStats record.
type StatsStore interface {
	Load() (rank.FocusStats, error)
	Save(rank.FocusStats) error
}

// Config holds engine timing and finalization parameters.
type Config struct {
	Fade             time.Duration // fade-in at start and fade-out at stop
	TickInterval     time.Duration // session tick driving timer and scheduler
	SnapshotInterval time.Duration // dashboard refresh cadence
	GongSound        string        // one-shot played on natural completion, "" disables
	GongRing         time.Duration // how long to let the gong ring out
	Policy           rank.Policy
}

// Deps are the engine's injected collaborators.
type Deps struct {
	OpenDevice func() (audio.Device, error)
	Store      StatsStore
	Rand       weather.Rand
	Now        func() time.Time
	Profile    *weather.Profile // nil disables weather events
}

// Engine runs exactly one focus session from start to finalize.
type Engine struct {
	id   string
	spec Spec
	cfg  Config
	deps Deps

	mu     sync.Mutex
	phase  Phase
	prior  rank.FocusStats
	events []weather.Event

	dev   audio.Device
	mix   *mixer.Mixer
	tmr   *timer.Timer
	sched *weather.Scheduler

	snapshots  chan Snapshot
	cancelCh   chan struct{}
	cancelOnce sync.Once
}

// New creates an engine for one session. The engine is single-use; create
// a fresh one for the next session.
func New(spec Spec, cfg Config, deps Deps) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = 250 * time.Millisecond
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{
		id:        uuid.NewString(),
		spec:      spec,
		cfg:       cfg,
		deps:      deps,
		phase:     PhaseIdle,
		snapshots: make(chan Snapshot, 8),
		cancelCh:  make(chan struct{}),
	}
}

// ID returns the session id.
func (e *Engine) ID() string {
	return e.id
}

// Snapshots returns the dashboard snapshot channel. It is closed when the
// session reaches Done.
func (e *Engine) Snapshots() <-chan Snapshot {
	return e.snapshots
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Run drives the session to its end and returns the receipt. On a start
// failure no receipt is produced and no stats are touched. A stats persist
// failure does not lose the receipt: it is returned together with the
// error.
func (e *Engine) Run(ctx context.Context) (*receipt.Receipt, error) {
	defer close(e.snapshots)

	if err := e.start(); err != nil {
		return nil, err
	}
	e.loop(ctx)
	return e.finalize()
}

// Pause freezes the session timer. Weather ticks are skipped while paused;
// the base ambience keeps playing.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseActive {
		return ErrNotActive
	}
	if err := e.tmr.Pause(); err != nil {
		return err
	}
	e.phase = PhasePaused
	zlog.Info().Str("session", e.id).Msg("session paused")
	return nil
}

// Resume continues a paused session.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhasePaused {
		return ErrNotPaused
	}
	if err := e.tmr.Resume(); err != nil {
		return err
	}
	e.phase = PhaseActive
	zlog.Info().Str("session", e.id).Msg("session resumed")
	return nil
}

// TogglePause pauses an active session or resumes a paused one.
func (e *Engine) TogglePause() error {
	if err := e.Pause(); err == nil || !errors.Is(err, ErrNotActive) {
		return err
	}
	return e.Resume()
}

// Cancel requests an early stop. The run loop observes it within one tick
// and drives the session through Finalizing.
func (e *Engine) Cancel() {
	e.cancelOnce.Do(func() {
		close(e.cancelCh)
	})
}

// StepMaster adjusts the master volume by delta, returning the new value.
func (e *Engine) StepMaster(delta float64) float64 {
	e.mu.Lock()
	m := e.mix
	e.mu.Unlock()
	if m == nil {
		return 0
	}
	return m.StepMaster(delta)
}

// start validates the spec, opens the device and brings up all components.
// Any failure leaves no partial state behind.
func (e *Engine) start() error {
	e.mu.Lock()
	e.phase = PhaseStarting
	e.mu.Unlock()

	if err := e.spec.Validate(); err != nil {
		return err
	}

	prior, err := e.deps.Store.Load()
	if err != nil {
		zlog.Warn().Err(err).Msg("stats load failed, starting from fresh defaults")
		prior = rank.FocusStats{}
	}

	dev, err := e.deps.OpenDevice()
	if err != nil {
		return err
	}

	mix := mixer.New(dev)
	for _, track := range e.spec.Tracks {
		if err := mix.Start(track, 0); err != nil {
			mix.StopAll(0)
			mix.Close()
			dev.Close()
			return err
		}
		// Fade each base track in from silence.
		_ = mix.FadeTo(track, e.spec.Volume, e.cfg.Fade)
	}

	tmr := timer.New(e.spec.Duration)
	tmr.SetClock(e.deps.Now)
	if err := tmr.Start(); err != nil {
		mix.StopAll(0)
		mix.Close()
		dev.Close()
		return err
	}

	e.mu.Lock()
	e.prior = prior
	e.dev = dev
	e.mix = mix
	e.tmr = tmr
	if e.deps.Profile != nil {
		e.sched = weather.NewScheduler(*e.deps.Profile, mix, e.deps.Rand)
		e.sched.Start(e.deps.Now())
	}
	e.phase = PhaseActive
	e.mu.Unlock()

	zlog.Info().
		Str("session", e.id).
		Strs("tracks", e.spec.Tracks).
		Dur("duration", e.spec.Duration).
		Bool("open_ended", e.spec.OpenEnded()).
		Msg("session started")
	return nil
}

// loop is the cooperative run loop: one tick cadence for the timer and
// scheduler, a faster one for dashboard snapshots. It returns when the
// timer completes or a cancellation is observed.
func (e *Engine) loop(ctx context.Context) {
	tick := time.NewTicker(e.cfg.TickInterval)
	defer tick.Stop()
	snap := time.NewTicker(e.cfg.SnapshotInterval)
	defer snap.Stop()

	e.pushSnapshot()

	for {
		select {
		case <-ctx.Done():
			e.cancelTimer()
			return
		case <-e.cancelCh:
			e.cancelTimer()
			return
		case <-tick.C:
			if e.tmr.State() == timer.StateCompleted {
				return
			}
			e.mu.Lock()
			active := e.phase == PhaseActive
			sched := e.sched
			e.mu.Unlock()
			if active && sched != nil {
				if ev, fired := sched.Tick(e.deps.Now()); fired {
					e.mu.Lock()
					e.events = append(e.events, ev)
					e.mu.Unlock()
				}
			}
		case <-snap.C:
			e.pushSnapshot()
		}
	}
}

func (e *Engine) cancelTimer() {
	if err := e.tmr.Cancel(); err != nil {
		// Already completed; natural completion wins.
		zlog.Debug().Str("session", e.id).Err(err).Msg("cancel after completion")
	}
}

// finalize stops all audio, applies the session to the stats and builds
// the receipt. A persistence failure is reported alongside the receipt,
// never instead of it.
func (e *Engine) finalize() (*receipt.Receipt, error) {
	e.mu.Lock()
	e.phase = PhaseFinalizing
	e.mu.Unlock()
	e.pushSnapshot()

	focused := e.tmr.Elapsed()
	completed := e.tmr.State() == timer.StateCompleted

	e.mix.StopAll(e.cfg.Fade)
	if completed && e.cfg.GongSound != "" {
		if err := e.dev.PlayOneShot(e.cfg.GongSound, e.mix.Master()); err != nil {
			zlog.Warn().Err(err).Msg("completion gong failed to play")
		} else if e.cfg.GongRing > 0 {
			time.Sleep(e.cfg.GongRing)
		}
	}
	e.mix.Close()
	e.dev.Close()

	newStats, rankChanged, streakChanged := rank.Finalize(e.prior, focused, e.deps.Now(), e.cfg.Policy)

	e.mu.Lock()
	weatherCount := len(e.events)
	e.mu.Unlock()

	rec := receipt.Build(focused, completed, e.spec.Tasks, weatherCount, e.prior, newStats, rankChanged, streakChanged)

	persistErr := e.deps.Store.Save(newStats)
	if persistErr != nil {
		zlog.Error().Err(persistErr).Msg("failed to persist stats, receipt preserved")
	}

	e.mu.Lock()
	e.phase = PhaseDone
	e.mu.Unlock()
	e.pushSnapshot()

	zlog.Info().
		Str("session", e.id).
		Dur("focused", focused).
		Bool("completed", completed).
		Int("weather_events", weatherCount).
		Str("rank", newStats.Tier.Title()).
		Int("streak", newStats.Streak).
		Msg("session finalized")

	return &rec, errors.Wrap(persistErr, "failed to persist stats")
}

// pushSnapshot sends a snapshot without blocking; a slow dashboard drops
// frames rather than stalling the session.
func (e *Engine) pushSnapshot() {
	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	select {
	case e.snapshots <- snap:
	default:
	}
}
