// Package rank provides the rank and streak progression engine.
package rank

import "time"

// Tier represents a gamification rank tier.
type Tier int

const (
	TierNoob               Tier = iota // 0 hours
	TierNovice                         // 1 hour
	TierTerminalTourist                // 5 hours
	TierFlowApprentice                 // 10 hours
	TierDeepWorkSpecialist             // 25 hours
	TierCyberMonk                      // 50 hours
	TierNeuralArchitect                // 75 hours
	TierTimeLord                       // 100 hours
)

// tierData holds the ordered tier catalog. Thresholds are cumulative focus
// hours and must be strictly increasing.
var tierData = []struct {
	title string
	hours float64
}{
	{"Noob", 0},
	{"Novice", 1},
	{"Terminal Tourist", 5},
	{"Flow Apprentice", 10},
	{"Deep Work Specialist", 25},
	{"Cyber Monk", 50},
	{"Neural Architect", 75},
	{"Time Lord", 100},
}

// Title returns the display title of the tier.
func (t Tier) Title() string {
	if t < 0 || int(t) >= len(tierData) {
		return "unknown"
	}
	return tierData[t].title
}

// Threshold returns the cumulative focus hours required for the tier.
func (t Tier) Threshold() float64 {
	if t < 0 || int(t) >= len(tierData) {
		return 0
	}
	return tierData[t].hours
}

// TierFor returns the highest tier whose threshold is at or below the
// given cumulative focus duration.
func TierFor(total time.Duration) Tier {
	hours := total.Hours()
	tier := TierNoob
	for i := range tierData {
		if hours >= tierData[i].hours {
			tier = Tier(i)
		} else {
			break
		}
	}
	return tier
}
