// Package mixer provides multi-track ambient audio mixing with fades.
package mixer

import (
	"errors"
	"sort"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"focusnoise/internal/infra/audio"
)

// Errors
var (
	ErrInactiveTrack = errors.New("track is not active")
)

// fadeTick is the cadence of the fade interpolation loop. It runs
// independently of the session tick so fades stay smooth regardless of how
// often the orchestrator polls.
const fadeTick = 50 * time.Millisecond

type trackState struct {
	handle  audio.Handle
	current float64
	target  float64
	rate    float64 // volume units per second while a fade is in flight
}

// TrackLevel is a read-only view of one track's volume for snapshots.
type TrackLevel struct {
	Name    string
	Current float64
	Target  float64
}

// Mixer owns a set of named looping tracks, each with independent volume
// and fade state, plus fire-and-forget one-shot overlays.
type Mixer struct {
	mu     sync.RWMutex
	dev    audio.Device
	tracks map[string]*trackState
	master float64

	stopLoop chan struct{}
	loopDone chan struct{}
}

// New creates a mixer over an open device and starts the fade loop.
func New(dev audio.Device) *Mixer {
	m := &Mixer{
		dev:      dev,
		tracks:   make(map[string]*trackState),
		master:   1.0,
		stopLoop: make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go m.fadeLoop()
	return m
}

// Start begins looping playback of the named asset at the given volume.
// Starting an already playing track updates its target volume instead of
// restarting playback.
func (m *Mixer) Start(trackID string, initialVolume float64) error {
	v := clamp(initialVolume)

	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.tracks[trackID]; ok {
		t.current = v
		t.target = v
		t.rate = 0
		m.dev.SetGain(t.handle, v*m.master)
		return nil
	}

	h, err := m.dev.PlayLoop(trackID, v*m.master)
	if err != nil {
		return err
	}
	m.tracks[trackID] = &trackState{handle: h, current: v, target: v}
	zlog.Debug().Str("track", trackID).Float64("volume", v).Msg("mixer: track started")
	return nil
}

// SetVolume sets a track's volume immediately, cancelling any in-flight
// fade. The volume is clamped to [0,1].
func (m *Mixer) SetVolume(trackID string, volume float64) error {
	v := clamp(volume)

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tracks[trackID]
	if !ok {
		return ErrInactiveTrack
	}
	t.current = v
	t.target = v
	t.rate = 0
	m.dev.SetGain(t.handle, v*m.master)
	return nil
}

// FadeTo schedules a linear fade from the current volume to target over
// duration. A later call supersedes any in-flight fade for the track.
func (m *Mixer) FadeTo(trackID string, targetVolume float64, duration time.Duration) error {
	v := clamp(targetVolume)

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tracks[trackID]
	if !ok {
		return ErrInactiveTrack
	}
	if duration <= 0 {
		t.current = v
		t.target = v
		t.rate = 0
		m.dev.SetGain(t.handle, v*m.master)
		return nil
	}

	delta := t.current - v
	if delta < 0 {
		delta = -delta
	}
	t.target = v
	t.rate = delta / duration.Seconds()
	return nil
}

// PlayOneShot plays a non-looping overlay sound. Overlapping one-shots are
// independent and looping tracks are unaffected.
func (m *Mixer) PlayOneShot(soundID string, volume float64) error {
	m.mu.RLock()
	master := m.master
	m.mu.RUnlock()
	return m.dev.PlayOneShot(soundID, clamp(volume)*master)
}

// StopAll fades every active track to silence over fadeOut, then stops
// playback and releases the tracks. It blocks until all tracks are silent,
// bounded by fadeOut plus a small margin.
func (m *Mixer) StopAll(fadeOut time.Duration) {
	m.mu.Lock()
	for _, t := range m.tracks {
		if fadeOut <= 0 {
			t.current = 0
			t.target = 0
			t.rate = 0
			m.dev.SetGain(t.handle, 0)
			continue
		}
		t.target = 0
		if t.current > 0 {
			t.rate = t.current / fadeOut.Seconds()
		}
	}
	m.mu.Unlock()

	deadline := time.Now().Add(fadeOut + 250*time.Millisecond)
	for fadeOut > 0 && time.Now().Before(deadline) {
		if m.silent() {
			break
		}
		time.Sleep(fadeTick)
	}

	m.mu.Lock()
	for id, t := range m.tracks {
		m.dev.Stop(t.handle)
		delete(m.tracks, id)
	}
	m.mu.Unlock()
	zlog.Debug().Msg("mixer: all tracks stopped")
}

// SetMaster sets the master volume and reapplies every track gain.
func (m *Mixer) SetMaster(volume float64) {
	v := clamp(volume)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.master = v
	for _, t := range m.tracks {
		m.dev.SetGain(t.handle, t.current*v)
	}
}

// StepMaster adjusts the master volume by delta and returns the new value.
func (m *Mixer) StepMaster(delta float64) float64 {
	m.mu.Lock()
	m.master = clamp(m.master + delta)
	v := m.master
	for _, t := range m.tracks {
		m.dev.SetGain(t.handle, t.current*v)
	}
	m.mu.Unlock()
	return v
}

// Master returns the master volume.
func (m *Mixer) Master() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.master
}

// Levels returns a sorted snapshot of every active track's volume.
func (m *Mixer) Levels() []TrackLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	levels := make([]TrackLevel, 0, len(m.tracks))
	for id, t := range m.tracks {
		levels = append(levels, TrackLevel{Name: id, Current: t.current, Target: t.target})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Name < levels[j].Name })
	return levels
}

// Close stops the fade loop. It does not close the underlying device; the
// orchestrator owns that.
func (m *Mixer) Close() {
	close(m.stopLoop)
	<-m.loopDone
}

func (m *Mixer) silent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tracks {
		if t.current > 0 {
			return false
		}
	}
	return true
}

// fadeLoop advances in-flight fades at a fixed cadence. It is the single
// writer of track volumes between explicit mixer calls.
func (m *Mixer) fadeLoop() {
	defer close(m.loopDone)

	ticker := time.NewTicker(fadeTick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-m.stopLoop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			m.step(dt)
		}
	}
}

// step moves every fading track toward its target by rate*dt.
func (m *Mixer) step(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tracks {
		if t.current == t.target || t.rate == 0 {
			continue
		}
		delta := t.rate * dt
		if t.current < t.target {
			t.current += delta
			if t.current >= t.target {
				t.current = t.target
				t.rate = 0
			}
		} else {
			t.current -= delta
			if t.current <= t.target {
				t.current = t.target
				t.rate = 0
			}
		}
		m.dev.SetGain(t.handle, t.current*m.master)
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
