package rank

import "time"

// Policy controls edge-case behavior of session finalization.
type Policy struct {
	// CountGraceCancel decides whether a session with zero focused time
	// (cancelled inside the startup grace window) still counts toward the
	// daily streak. When false such a session leaves the stats untouched.
	CountGraceCancel bool
}

// DefaultPolicy counts grace-cancelled sessions toward the streak.
func DefaultPolicy() Policy {
	return Policy{CountGraceCancel: true}
}

// Finalize applies one completed session to the prior stats and returns the
// updated record. It is a pure function: prior is not mutated.
//
// Total hours accumulate fractionally. The tier is recomputed as the highest
// threshold at or below the new total; since the total never decreases the
// tier never regresses. The streak is unchanged for a second session on the
// same calendar day, incremented when sessionDate is exactly the next day,
// and reset to 1 otherwise (first session ever, or a gap of two or more
// days).
func Finalize(prior FocusStats, focused time.Duration, sessionDate time.Time, policy Policy) (newStats FocusStats, rankChanged, streakChanged bool) {
	if focused < 0 {
		focused = 0
	}
	if focused == 0 && !policy.CountGraceCancel {
		return prior, false, false
	}

	day := DateOf(sessionDate)

	newStats = prior
	newStats.TotalFocus = prior.TotalFocus + focused
	newStats.LastSession = day

	switch {
	case prior.LastSession.IsZero():
		newStats.Streak = 1
	case daysBetween(prior.LastSession, day) == 0:
		newStats.Streak = prior.Streak
	case daysBetween(prior.LastSession, day) == 1:
		newStats.Streak = prior.Streak + 1
	default:
		newStats.Streak = 1
	}

	newStats.Tier = TierFor(newStats.TotalFocus)
	if newStats.Tier > newStats.HighestTier {
		newStats.HighestTier = newStats.Tier
	}

	rankChanged = newStats.Tier != prior.Tier
	streakChanged = newStats.Streak != prior.Streak
	return newStats, rankChanged, streakChanged
}
