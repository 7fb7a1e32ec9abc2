package audio

import (
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// Handle identifies a looping playback started on a Device.
type Handle int

// Device is the host audio output. The mixer drives it; tests substitute a
// fake so the engine never needs real hardware.
type Device interface {
	// PlayLoop starts indefinite looping playback of a base track at the
	// given linear gain in [0,1]. Fails with ErrUnknownAsset.
	PlayLoop(assetID string, gain float64) (Handle, error)
	// PlayOneShot plays an overlay sound once. Overlapping one-shots are
	// independent.
	PlayOneShot(assetID string, gain float64) error
	// SetGain updates the gain of a looping playback. Unknown handles are
	// ignored.
	SetGain(h Handle, gain float64)
	// Stop ends a looping playback immediately.
	Stop(h Handle)
	// Close stops everything and releases the output device.
	Close()
}

// DeviceConfig holds speaker parameters.
type DeviceConfig struct {
	SampleRate  beep.SampleRate // defaults to 44100
	BufferSize  time.Duration   // speaker buffer length, defaults to 100ms
	OpenTimeout time.Duration   // bound on device open, defaults to 3s
}

type loopPlayback struct {
	ctrl *beep.Ctrl
	vol  *effects.Volume
}

type speakerDevice struct {
	lib *Library
	sr  beep.SampleRate

	mu    sync.Mutex
	next  Handle
	loops map[Handle]*loopPlayback
}

// Open initializes the host speaker within a bounded timeout and returns a
// Device over the given library. A device that cannot be opened in time
// surfaces ErrDeviceUnavailable.
func Open(lib *Library, cfg DeviceConfig) (Device, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 44100
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 100 * time.Millisecond
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 3 * time.Second
	}

	done := make(chan error, 1)
	go func() {
		done <- speaker.Init(cfg.SampleRate, cfg.SampleRate.N(cfg.BufferSize))
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, errors.Wrapf(ErrDeviceUnavailable, "speaker init failed: %v", err)
		}
	case <-time.After(cfg.OpenTimeout):
		return nil, errors.Wrapf(ErrDeviceUnavailable, "speaker init timed out after %v", cfg.OpenTimeout)
	}

	return &speakerDevice{
		lib:   lib,
		sr:    cfg.SampleRate,
		loops: make(map[Handle]*loopPlayback),
	}, nil
}

func (d *speakerDevice) PlayLoop(assetID string, gain float64) (Handle, error) {
	asset, ok := d.lib.Base(assetID)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownAsset, "base track %q", assetID)
	}

	// Loop before resampling: looping needs a seeker, resampling discards it.
	var streamer beep.Streamer = beep.Loop(-1, asset.Streamer())
	if asset.Format().SampleRate != d.sr {
		streamer = beep.Resample(4, asset.Format().SampleRate, d.sr, streamer)
	}

	ctrl := &beep.Ctrl{Streamer: streamer}
	vol := &effects.Volume{Streamer: ctrl, Base: 2}
	applyGain(vol, gain)

	d.mu.Lock()
	d.next++
	h := d.next
	d.loops[h] = &loopPlayback{ctrl: ctrl, vol: vol}
	d.mu.Unlock()

	speaker.Play(vol)
	return h, nil
}

func (d *speakerDevice) PlayOneShot(assetID string, gain float64) error {
	asset, ok := d.lib.OneShot(assetID)
	if !ok {
		return errors.Wrapf(ErrUnknownAsset, "one-shot %q", assetID)
	}

	var streamer beep.Streamer = asset.Streamer()
	if asset.Format().SampleRate != d.sr {
		streamer = beep.Resample(4, asset.Format().SampleRate, d.sr, streamer)
	}
	vol := &effects.Volume{Streamer: streamer, Base: 2}
	applyGain(vol, gain)
	speaker.Play(vol)
	return nil
}

func (d *speakerDevice) SetGain(h Handle, gain float64) {
	d.mu.Lock()
	lp, ok := d.loops[h]
	d.mu.Unlock()
	if !ok {
		zlog.Debug().Int("handle", int(h)).Msg("set gain on unknown handle")
		return
	}

	speaker.Lock()
	applyGain(lp.vol, gain)
	speaker.Unlock()
}

func (d *speakerDevice) Stop(h Handle) {
	d.mu.Lock()
	lp, ok := d.loops[h]
	delete(d.loops, h)
	d.mu.Unlock()
	if !ok {
		return
	}

	// A nil inner streamer drains immediately, ending the playback.
	speaker.Lock()
	lp.ctrl.Streamer = nil
	speaker.Unlock()
}

func (d *speakerDevice) Close() {
	d.mu.Lock()
	d.loops = make(map[Handle]*loopPlayback)
	d.mu.Unlock()

	speaker.Clear()
	speaker.Close()
}

// applyGain maps a linear gain in [0,1] onto the exponential Volume effect.
// With Base 2, log2(gain) yields an exact linear multiplier.
func applyGain(vol *effects.Volume, gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}
	if gain < 1e-3 {
		vol.Silent = true
		vol.Volume = 0
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(gain)
}
