package rank

import "time"

// FocusStats represents the persisted cumulative focus record.
// Mutated exactly once per session, at finalization.
type FocusStats struct {
	TotalFocus  time.Duration // Cumulative focused time across all sessions
	Streak      int           // Consecutive calendar days with a completed session
	LastSession time.Time     // Calendar day of the last session (UTC midnight, zero if none)
	Tier        Tier          // Current rank tier
	HighestTier Tier          // Highest tier ever reached
}

// TotalHours returns the cumulative focus time in fractional hours.
func (s FocusStats) TotalHours() float64 {
	return s.TotalFocus.Hours()
}

// DateOf truncates a timestamp to its calendar day, normalized to UTC
// midnight so day arithmetic is exact.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the number of calendar days from a to b, where both
// are already normalized by DateOf.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
