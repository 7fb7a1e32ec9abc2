package statsfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusnoise/internal/domain/rank"
)

func TestStore_LoadMissingFileYieldsDefaults(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "stats.json"))

	stats, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, rank.FocusStats{}, stats)
}

func TestStore_LoadCorruptFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	stats, err := New(path).Load()
	require.NoError(t, err)
	assert.Equal(t, rank.FocusStats{}, stats)
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats.json")
	s := New(path)

	want := rank.FocusStats{
		TotalFocus:  5*time.Hour + 45*time.Minute,
		Streak:      7,
		LastSession: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
		Tier:        rank.TierTerminalTourist,
		HighestTier: rank.TierTerminalTourist,
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_LoadLegacyFileWithoutTierFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	legacy := `{"total_seconds": 21600.0, "last_session_date": "2026-01-10", "current_streak": 2}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	got, err := New(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, got.TotalFocus)
	assert.Equal(t, 2, got.Streak)
	assert.Equal(t, rank.TierTerminalTourist, got.Tier, "tier recomputed from hours")
	assert.Equal(t, rank.TierTerminalTourist, got.HighestTier)
}

func TestStore_SaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.json")
	s := New(path)

	require.NoError(t, s.Save(rank.FocusStats{Streak: 1}))
	require.NoError(t, s.Save(rank.FocusStats{Streak: 2}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, got.Streak)
}
