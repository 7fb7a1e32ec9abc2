// Package timer provides the wall-clock session timer with pause support.
package timer

// State represents the timer state.
type State int

const (
	StateIdle      State = iota // Not started yet
	StateRunning                // Counting elapsed time
	StatePaused                 // Frozen, remaining time preserved
	StateCompleted              // Bounded session ran to its end
	StateCancelled              // Stopped early, elapsed retained
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
