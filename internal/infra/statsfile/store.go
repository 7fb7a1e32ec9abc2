// Package statsfile persists the FocusStats record as a single JSON file.
package statsfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"focusnoise/internal/domain/rank"
)

const dateLayout = "2006-01-02"

// record is the on-disk shape of the stats file. Field names match the
// historical format so existing files keep loading.
type record struct {
	TotalSeconds    float64 `json:"total_seconds"`
	LastSessionDate string  `json:"last_session_date,omitempty"`
	CurrentStreak   int     `json:"current_streak"`
	RankTier        int     `json:"rank_tier"`
	HighestRankTier int     `json:"highest_rank_tier"`
}

// Store reads and writes the single-user stats file. The engine reads it
// once at session start and writes it once at finalization.
type Store struct {
	path string
}

// New creates a store for the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the stats file location under the OS config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve user config dir")
	}
	return filepath.Join(dir, "focusnoise", "stats.json"), nil
}

// Load reads the stats record. A missing or corrupt file is treated as
// "no prior history" and yields fresh defaults, never an error; the
// corruption is logged so it is not silently discarded.
func (s *Store) Load() (rank.FocusStats, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zlog.Warn().Err(err).Str("path", s.path).Msg("stats file unreadable, starting fresh")
		}
		return rank.FocusStats{}, nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		zlog.Warn().Err(err).Str("path", s.path).Msg("stats file corrupt, starting fresh")
		return rank.FocusStats{}, nil
	}
	return fromRecord(rec), nil
}

// Save atomically replaces the stats file via a temp file and rename.
func (s *Store) Save(stats rank.FocusStats) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, "failed to create stats dir")
	}

	data, err := json.MarshalIndent(toRecord(stats), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode stats")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".stats-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temp stats file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write stats")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close temp stats file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to replace stats file")
	}
	return nil
}

func fromRecord(rec record) rank.FocusStats {
	stats := rank.FocusStats{
		TotalFocus:  time.Duration(rec.TotalSeconds * float64(time.Second)),
		Streak:      rec.CurrentStreak,
		Tier:        rank.Tier(rec.RankTier),
		HighestTier: rank.Tier(rec.HighestRankTier),
	}
	if rec.LastSessionDate != "" {
		day, err := time.ParseInLocation(dateLayout, rec.LastSessionDate, time.UTC)
		if err != nil {
			zlog.Warn().Str("date", rec.LastSessionDate).Msg("stats file has invalid last session date, ignoring")
		} else {
			stats.LastSession = day
		}
	}

	// Older files carry no tier fields; recompute from hours.
	if recomputed := rank.TierFor(stats.TotalFocus); recomputed > stats.Tier {
		stats.Tier = recomputed
	}
	if stats.Tier > stats.HighestTier {
		stats.HighestTier = stats.Tier
	}
	return stats
}

func toRecord(stats rank.FocusStats) record {
	rec := record{
		TotalSeconds:    stats.TotalFocus.Seconds(),
		CurrentStreak:   stats.Streak,
		RankTier:        int(stats.Tier),
		HighestRankTier: int(stats.HighestTier),
	}
	if !stats.LastSession.IsZero() {
		rec.LastSessionDate = stats.LastSession.Format(dateLayout)
	}
	return rec
}
