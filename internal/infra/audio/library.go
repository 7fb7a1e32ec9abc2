package audio

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
)

// Subdirectories holding one-shot assets. Top-level files are loopable
// base tracks.
const (
	sfxDir     = "sfx"
	textureDir = "textures"
)

// Asset is a fully decoded, in-memory audio asset.
type Asset struct {
	buffer *beep.Buffer
}

// Streamer returns a fresh streamer over the whole asset. Each call is
// independent, so overlapping playback of the same asset is allowed.
func (a *Asset) Streamer() beep.StreamSeeker {
	return a.buffer.Streamer(0, a.buffer.Len())
}

// Format returns the asset's sample format.
func (a *Asset) Format() beep.Format {
	return a.buffer.Format()
}

// Library holds all decoded assets, keyed by filename.
type Library struct {
	dir      string
	base     map[string]*Asset // loopable base tracks
	oneShots map[string]*Asset // sfx + weather textures
}

// ResolveAssetsDir picks the assets directory. An explicit dir wins;
// otherwise the first existing candidate is used.
func ResolveAssetsDir(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidates := []string{
		"assets",
		"/usr/share/focusnoise/assets",
		"/usr/local/share/focusnoise/assets",
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "assets"
}

// OpenLibrary scans dir and decodes every supported audio file. Individual
// files that fail to decode are logged and skipped; an empty or missing
// directory is an error because a session needs at least one base track.
func OpenLibrary(dir string) (*Library, error) {
	lib := &Library{
		dir:      dir,
		base:     make(map[string]*Asset),
		oneShots: make(map[string]*Asset),
	}

	if err := lib.scan(dir, lib.base); err != nil {
		return nil, err
	}
	// One-shot folders are optional.
	_ = lib.scan(filepath.Join(dir, sfxDir), lib.oneShots)
	_ = lib.scan(filepath.Join(dir, textureDir), lib.oneShots)

	if len(lib.base) == 0 {
		return nil, errors.Newf("no audio assets found in %s", dir)
	}
	zlog.Info().Int("base", len(lib.base)).Int("one_shots", len(lib.oneShots)).Str("dir", dir).Msg("audio library loaded")
	return lib, nil
}

func (l *Library) scan(dir string, into map[string]*Asset) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to read assets dir %s", dir)
	}
	for _, entry := range entries {
		if entry.IsDir() || !supportedExt(entry.Name()) {
			continue
		}
		asset, err := decodeFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			zlog.Warn().Err(err).Str("file", entry.Name()).Msg("skipping undecodable asset")
			continue
		}
		into[entry.Name()] = asset
	}
	return nil
}

func supportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".mp3", ".ogg":
		return true
	}
	return false
}

func decodeFile(path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open asset")
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to decode %s", filepath.Base(path))
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	return &Asset{buffer: buf}, nil
}

// Base returns a loopable base track asset by filename.
func (l *Library) Base(id string) (*Asset, bool) {
	a, ok := l.base[id]
	return a, ok
}

// OneShot returns a one-shot asset by filename, falling back to the base
// set so a base track can also be fired as an overlay (e.g. the gong when
// shipped at the top level).
func (l *Library) OneShot(id string) (*Asset, bool) {
	if a, ok := l.oneShots[id]; ok {
		return a, true
	}
	a, ok := l.base[id]
	return a, ok
}

// HasOneShot reports whether the one-shot asset exists.
func (l *Library) HasOneShot(id string) bool {
	_, ok := l.OneShot(id)
	return ok
}

// BaseNames returns the sorted filenames of all base tracks.
func (l *Library) BaseNames() []string {
	names := make([]string, 0, len(l.base))
	for name := range l.base {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveBase matches a user-supplied name against the base tracks. Exact
// filenames win; otherwise the cleaned name ("Gentle Rain" for
// gentle-rain.mp3) is compared case-insensitively.
func (l *Library) ResolveBase(name string) (string, bool) {
	if _, ok := l.base[name]; ok {
		return name, true
	}
	want := CleanName(name)
	for id := range l.base {
		if CleanName(id) == want {
			return id, true
		}
	}
	return "", false
}

// CleanName strips the extension and normalizes separators, lowercased.
func CleanName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.ToLower(strings.TrimSpace(base))
}

// DisplayName returns a title-cased human name for an asset filename.
func DisplayName(filename string) string {
	words := strings.Fields(CleanName(filename))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
