// Package receipt builds the post-session summary artifact.
package receipt

import (
	"time"

	"focusnoise/internal/domain/rank"
)

// NoTaskPlaceholder is rendered when a session carried no task intent.
const NoTaskPlaceholder = "(no task set)"

// Receipt is the display-ready summary of a finished session. It is derived
// purely from the terminal session result and the stats before/after
// finalization, and is never mutated after construction.
type Receipt struct {
	Focused       time.Duration // Time actually spent focused
	Completed     bool          // True for natural completion, false for cancel
	Tasks         []string      // Task intents, placeholder when none were set
	WeatherEvents int           // One-shot overlay sounds fired
	RankBefore    rank.Tier
	RankAfter     rank.Tier
	RankChanged   bool
	StreakBefore  int
	StreakAfter   int
	StreakChanged bool
	TotalFocus    time.Duration // Cumulative focus after this session
}

// Build assembles a receipt. Missing optional fields are filled with
// explicit placeholders rather than dropped.
func Build(focused time.Duration, completed bool, tasks []string, weatherEvents int, before, after rank.FocusStats, rankChanged, streakChanged bool) Receipt {
	if focused < 0 {
		focused = 0
	}
	labels := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t != "" {
			labels = append(labels, t)
		}
	}
	if len(labels) == 0 {
		labels = []string{NoTaskPlaceholder}
	}
	return Receipt{
		Focused:       focused,
		Completed:     completed,
		Tasks:         labels,
		WeatherEvents: weatherEvents,
		RankBefore:    before.Tier,
		RankAfter:     after.Tier,
		RankChanged:   rankChanged,
		StreakBefore:  before.Streak,
		StreakAfter:   after.Streak,
		StreakChanged: streakChanged,
		TotalFocus:    after.TotalFocus,
	}
}
