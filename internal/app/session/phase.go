// Package session provides the focus session engine that composes the
// mixer, weather scheduler, timer and rank engine into one run loop.
package session

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseIdle       Phase = iota // Engine created, not started
	PhaseStarting                // Validating spec, opening the audio device
	PhaseActive                  // Mixer running, timer running, scheduler ticking
	PhasePaused                  // Timer frozen, scheduler skipped, audio still looping
	PhaseFinalizing              // Fading out, computing stats, building the receipt
	PhaseDone                    // Terminal; the engine is not reused
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseActive:
		return "active"
	case PhasePaused:
		return "paused"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}
