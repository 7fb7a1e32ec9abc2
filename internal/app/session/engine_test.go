package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusnoise/internal/app/weather"
	"focusnoise/internal/domain/rank"
	"focusnoise/internal/domain/receipt"
	"focusnoise/internal/infra/audio"
)

// fakeClock is a manually advanced, goroutine-safe time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeDevice tracks loops, one-shots and close state.
type fakeDevice struct {
	mu       sync.Mutex
	known    map[string]bool
	next     audio.Handle
	active   map[audio.Handle]bool
	gains    map[audio.Handle]float64
	oneShots []string
	closed   bool
	openErr  error
}

func newFakeDevice(assets ...string) *fakeDevice {
	known := make(map[string]bool)
	for _, a := range assets {
		known[a] = true
	}
	return &fakeDevice{
		known:  known,
		active: make(map[audio.Handle]bool),
		gains:  make(map[audio.Handle]float64),
	}
}

func (d *fakeDevice) PlayLoop(assetID string, gain float64) (audio.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.known[assetID] {
		return 0, audio.ErrUnknownAsset
	}
	d.next++
	d.active[d.next] = true
	d.gains[d.next] = gain
	return d.next, nil
}

func (d *fakeDevice) PlayOneShot(assetID string, gain float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.known[assetID] {
		return audio.ErrUnknownAsset
	}
	d.oneShots = append(d.oneShots, assetID)
	return nil
}

func (d *fakeDevice) SetGain(h audio.Handle, gain float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gains[h] = gain
}

func (d *fakeDevice) Stop(h audio.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, h)
}

func (d *fakeDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *fakeDevice) activeLoops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

func (d *fakeDevice) oneShotCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.oneShots)
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// memStore is an in-memory StatsStore.
type memStore struct {
	mu      sync.Mutex
	stats   rank.FocusStats
	saveErr error
	saves   int
}

func (s *memStore) Load() (rank.FocusStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, nil
}

func (s *memStore) Save(stats rank.FocusStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.stats = stats
	s.saves++
	return nil
}

func (s *memStore) saved() (rank.FocusStats, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, s.saves
}

// neverRand never clears the probability threshold.
type neverRand struct{}

func (neverRand) Float64() float64 { return 1 }
func (neverRand) Intn(n int) int   { return 0 }

// alwaysRand always clears it.
type alwaysRand struct{}

func (alwaysRand) Float64() float64 { return 0 }
func (alwaysRand) Intn(n int) int   { return 0 }

func fastConfig() Config {
	return Config{
		Fade:             0,
		TickInterval:     2 * time.Millisecond,
		SnapshotInterval: 5 * time.Millisecond,
		Policy:           rank.DefaultPolicy(),
	}
}

type engineResult struct {
	rec *receipt.Receipt
	err error
}

func runEngine(t *testing.T, e *Engine) <-chan engineResult {
	t.Helper()
	done := make(chan engineResult, 1)
	go func() {
		rec, err := e.Run(context.Background())
		done <- engineResult{rec, err}
	}()
	// Drain snapshots so the channel never fills even on slow runners.
	go func() {
		for range e.Snapshots() {
		}
	}()
	return done
}

func waitResult(t *testing.T, done <-chan engineResult) engineResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not finish in time")
		return engineResult{}
	}
}

func TestEngine_NaturalCompletion(t *testing.T) {
	clock := newFakeClock()
	dev := newFakeDevice("rain.wav")
	store := &memStore{}

	e := New(
		Spec{Duration: 45 * time.Minute, Tracks: []string{"rain.wav"}, Volume: 0.5},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { return dev, nil },
			Store:      store,
			Rand:       neverRand{},
			Now:        clock.now,
		},
	)
	done := runEngine(t, e)

	// Let the engine reach Active, then jump past the session end.
	require.Eventually(t, func() bool { return e.Phase() == PhaseActive }, time.Second, time.Millisecond)
	clock.advance(46 * time.Minute)

	res := waitResult(t, done)
	require.NoError(t, res.err)
	require.NotNil(t, res.rec)

	assert.True(t, res.rec.Completed)
	assert.Equal(t, 45*time.Minute, res.rec.Focused, "focused capped at the requested duration")
	assert.Equal(t, []string{receipt.NoTaskPlaceholder}, res.rec.Tasks)

	saved, saves := store.saved()
	assert.Equal(t, 1, saves, "stats written exactly once")
	assert.InDelta(t, 0.75, saved.TotalHours(), 1e-9)
	assert.Equal(t, 1, saved.Streak)

	assert.Equal(t, PhaseDone, e.Phase())
	assert.Equal(t, 0, dev.activeLoops(), "all audio released")
	assert.True(t, dev.isClosed())
}

func TestEngine_CancelledSession(t *testing.T) {
	clock := newFakeClock()
	dev := newFakeDevice("rain.wav")
	store := &memStore{}

	e := New(
		Spec{Duration: 45 * time.Minute, Tracks: []string{"rain.wav"}, Volume: 0.5, Tasks: []string{"write tests"}},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { return dev, nil },
			Store:      store,
			Rand:       neverRand{},
			Now:        clock.now,
		},
	)
	done := runEngine(t, e)

	require.Eventually(t, func() bool { return e.Phase() == PhaseActive }, time.Second, time.Millisecond)
	clock.advance(10 * time.Minute)
	e.Cancel()

	res := waitResult(t, done)
	require.NoError(t, res.err)
	require.NotNil(t, res.rec)

	assert.False(t, res.rec.Completed)
	assert.Equal(t, 10*time.Minute, res.rec.Focused)
	assert.Equal(t, []string{"write tests"}, res.rec.Tasks)

	assert.Equal(t, 0, dev.activeLoops(), "audio fully silent before Done")
	assert.True(t, dev.isClosed())
	assert.Equal(t, PhaseDone, e.Phase())

	saved, _ := store.saved()
	assert.Equal(t, 10*time.Minute, saved.TotalFocus)
}

func TestEngine_TwoSessionsSameDayIncrementStreakOnce(t *testing.T) {
	clock := newFakeClock()
	store := &memStore{}

	for i := 0; i < 2; i++ {
		dev := newFakeDevice("rain.wav")
		e := New(
			Spec{Duration: time.Minute, Tracks: []string{"rain.wav"}, Volume: 0.5},
			fastConfig(),
			Deps{
				OpenDevice: func() (audio.Device, error) { return dev, nil },
				Store:      store,
				Rand:       neverRand{},
				Now:        clock.now,
			},
		)
		done := runEngine(t, e)
		require.Eventually(t, func() bool { return e.Phase() == PhaseActive }, time.Second, time.Millisecond)
		clock.advance(2 * time.Minute)
		res := waitResult(t, done)
		require.NoError(t, res.err)
		require.True(t, res.rec.Completed)
	}

	saved, saves := store.saved()
	assert.Equal(t, 2, saves)
	assert.Equal(t, 1, saved.Streak, "same-day sessions advance the streak once in total")
	assert.Equal(t, 2*time.Minute, saved.TotalFocus)
}

func TestEngine_DeviceUnavailable(t *testing.T) {
	store := &memStore{}
	e := New(
		Spec{Duration: 45 * time.Minute, Tracks: []string{"rain.wav"}, Volume: 0.5},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { return nil, audio.ErrDeviceUnavailable },
			Store:      store,
			Rand:       neverRand{},
			Now:        newFakeClock().now,
		},
	)
	done := runEngine(t, e)

	res := waitResult(t, done)
	assert.ErrorIs(t, res.err, audio.ErrDeviceUnavailable)
	assert.Nil(t, res.rec, "no receipt on a failed start")
	assert.Equal(t, PhaseStarting, e.Phase())

	_, saves := store.saved()
	assert.Equal(t, 0, saves, "no stats mutation on a failed start")
}

func TestEngine_UnknownTrackAbortsStartCleanly(t *testing.T) {
	dev := newFakeDevice("rain.wav")
	e := New(
		Spec{Duration: time.Minute, Tracks: []string{"rain.wav", "ufo.wav"}, Volume: 0.5},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { return dev, nil },
			Store:      &memStore{},
			Rand:       neverRand{},
			Now:        newFakeClock().now,
		},
	)
	done := runEngine(t, e)

	res := waitResult(t, done)
	assert.ErrorIs(t, res.err, audio.ErrUnknownAsset)
	assert.Nil(t, res.rec)
	assert.Equal(t, 0, dev.activeLoops(), "no orphaned audio after a failed start")
	assert.True(t, dev.isClosed())
}

func TestEngine_InvalidSpec(t *testing.T) {
	opened := false
	e := New(
		Spec{Duration: time.Minute, Volume: 0.5},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { opened = true; return nil, nil },
			Store:      &memStore{},
			Rand:       neverRand{},
			Now:        newFakeClock().now,
		},
	)
	done := runEngine(t, e)

	res := waitResult(t, done)
	assert.ErrorIs(t, res.err, ErrInvalidSessionSpec)
	assert.False(t, opened, "device never opened for an invalid spec")
}

func TestEngine_PauseResumeExcludesPausedTime(t *testing.T) {
	clock := newFakeClock()
	dev := newFakeDevice("rain.wav")
	store := &memStore{}

	e := New(
		Spec{Duration: time.Hour, Tracks: []string{"rain.wav"}, Volume: 0.5},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { return dev, nil },
			Store:      store,
			Rand:       neverRand{},
			Now:        clock.now,
		},
	)
	done := runEngine(t, e)
	require.Eventually(t, func() bool { return e.Phase() == PhaseActive }, time.Second, time.Millisecond)

	clock.advance(10 * time.Minute)
	require.NoError(t, e.Pause())
	assert.Equal(t, PhasePaused, e.Phase())

	clock.advance(30 * time.Minute)
	require.NoError(t, e.Resume())
	assert.Equal(t, PhaseActive, e.Phase())

	clock.advance(5 * time.Minute)
	e.Cancel()

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, 15*time.Minute, res.rec.Focused, "paused time excluded")
}

func TestEngine_TogglePause(t *testing.T) {
	clock := newFakeClock()
	e := New(
		Spec{Duration: time.Hour, Tracks: []string{"rain.wav"}, Volume: 0.5},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { return newFakeDevice("rain.wav"), nil },
			Store:      &memStore{},
			Rand:       neverRand{},
			Now:        clock.now,
		},
	)
	done := runEngine(t, e)
	require.Eventually(t, func() bool { return e.Phase() == PhaseActive }, time.Second, time.Millisecond)

	require.NoError(t, e.TogglePause())
	assert.Equal(t, PhasePaused, e.Phase())
	require.NoError(t, e.TogglePause())
	assert.Equal(t, PhaseActive, e.Phase())

	e.Cancel()
	waitResult(t, done)
}

func TestEngine_WeatherEventsFireAndRespectCooldown(t *testing.T) {
	clock := newFakeClock()
	dev := newFakeDevice("rain.wav", "distant-thunder.mp3")
	profile := weather.Profile{
		Name:        "test",
		Probability: 1,
		Cooldown:    30 * time.Second,
		Sounds:      []string{"distant-thunder.mp3"},
	}

	e := New(
		Spec{Duration: 10 * time.Minute, Tracks: []string{"rain.wav"}, Volume: 0.5},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { return dev, nil },
			Store:      &memStore{},
			Rand:       alwaysRand{},
			Now:        clock.now,
			Profile:    &profile,
		},
	)
	done := runEngine(t, e)
	require.Eventually(t, func() bool { return e.Phase() == PhaseActive }, time.Second, time.Millisecond)

	// Walk the fake clock forward in scheduler-visible steps.
	for i := 0; i < 20; i++ {
		clock.advance(31 * time.Second)
		time.Sleep(5 * time.Millisecond)
	}
	clock.advance(10 * time.Minute)

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.True(t, res.rec.Completed)
	assert.Greater(t, res.rec.WeatherEvents, 0, "weather fired during the session")
	assert.Equal(t, res.rec.WeatherEvents, dev.oneShotCount())
}

func TestEngine_PersistFailureStillReturnsReceipt(t *testing.T) {
	clock := newFakeClock()
	store := &memStore{saveErr: assert.AnError}

	e := New(
		Spec{Duration: time.Minute, Tracks: []string{"rain.wav"}, Volume: 0.5},
		fastConfig(),
		Deps{
			OpenDevice: func() (audio.Device, error) { return newFakeDevice("rain.wav"), nil },
			Store:      store,
			Rand:       neverRand{},
			Now:        clock.now,
		},
	)
	done := runEngine(t, e)
	require.Eventually(t, func() bool { return e.Phase() == PhaseActive }, time.Second, time.Millisecond)
	clock.advance(2 * time.Minute)

	res := waitResult(t, done)
	assert.Error(t, res.err, "persistence failure reported")
	require.NotNil(t, res.rec, "receipt survives the persistence failure")
	assert.Equal(t, time.Minute, res.rec.Focused)
	assert.Equal(t, PhaseDone, e.Phase())
}

func TestEngine_GongOnNaturalCompletionOnly(t *testing.T) {
	tests := []struct {
		name     string
		cancel   bool
		wantGong bool
	}{
		{"Completion plays gong", false, true},
		{"Cancel skips gong", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			dev := newFakeDevice("rain.wav", "gong.wav")
			cfg := fastConfig()
			cfg.GongSound = "gong.wav"

			e := New(
				Spec{Duration: time.Minute, Tracks: []string{"rain.wav"}, Volume: 0.5},
				cfg,
				Deps{
					OpenDevice: func() (audio.Device, error) { return dev, nil },
					Store:      &memStore{},
					Rand:       neverRand{},
					Now:        clock.now,
				},
			)
			done := runEngine(t, e)
			require.Eventually(t, func() bool { return e.Phase() == PhaseActive }, time.Second, time.Millisecond)

			if tt.cancel {
				e.Cancel()
			} else {
				clock.advance(2 * time.Minute)
			}

			res := waitResult(t, done)
			require.NoError(t, res.err)
			if tt.wantGong {
				assert.Equal(t, 1, dev.oneShotCount())
			} else {
				assert.Equal(t, 0, dev.oneShotCount())
			}
		})
	}
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"Valid bounded", Spec{Duration: time.Minute, Tracks: []string{"a"}, Volume: 0.5}, false},
		{"Valid open-ended", Spec{Tracks: []string{"a"}, Volume: 1}, false},
		{"No tracks", Spec{Duration: time.Minute, Volume: 0.5}, true},
		{"Negative duration", Spec{Duration: -time.Minute, Tracks: []string{"a"}, Volume: 0.5}, true},
		{"Volume above one", Spec{Tracks: []string{"a"}, Volume: 1.2}, true},
		{"Negative volume", Spec{Tracks: []string{"a"}, Volume: -0.1}, true},
		{"Too many tasks", Spec{Tracks: []string{"a"}, Volume: 0.5, Tasks: []string{"1", "2", "3", "4"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSessionSpec)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
