package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a minimal 16-bit mono PCM file with n silent samples.
func writeWAV(t *testing.T, path string, n int) {
	t.Helper()

	dataLen := n * 2
	buf := make([]byte, 0, 44+dataLen)

	u32 := func(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }
	u16 := func(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }

	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, u32(uint32(36+dataLen))...)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...)            // PCM
	buf = append(buf, u16(1)...)            // mono
	buf = append(buf, u32(8000)...)         // sample rate
	buf = append(buf, u32(8000*2)...)       // byte rate
	buf = append(buf, u16(2)...)            // block align
	buf = append(buf, u16(16)...)           // bits per sample
	buf = append(buf, []byte("data")...)
	buf = append(buf, u32(uint32(dataLen))...)
	buf = append(buf, make([]byte, dataLen)...)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, buf, 0644))
}

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "gentle-rain.wav"), 800)
	writeWAV(t, filepath.Join(dir, "coffee_shop.wav"), 800)
	writeWAV(t, filepath.Join(dir, sfxDir, "gong.wav"), 400)
	writeWAV(t, filepath.Join(dir, textureDir, "distant-thunder.wav"), 400)

	lib, err := OpenLibrary(dir)
	require.NoError(t, err)
	return lib
}

func TestOpenLibrary_ScansBaseAndOneShots(t *testing.T) {
	lib := newTestLibrary(t)

	assert.Equal(t, []string{"coffee_shop.wav", "gentle-rain.wav"}, lib.BaseNames())

	_, ok := lib.Base("gentle-rain.wav")
	assert.True(t, ok)
	assert.True(t, lib.HasOneShot("gong.wav"))
	assert.True(t, lib.HasOneShot("distant-thunder.wav"))
	assert.False(t, lib.HasOneShot("nope.wav"))
}

func TestOpenLibrary_OneShotFallsBackToBase(t *testing.T) {
	lib := newTestLibrary(t)
	assert.True(t, lib.HasOneShot("gentle-rain.wav"))
}

func TestOpenLibrary_MissingDirFails(t *testing.T) {
	_, err := OpenLibrary(filepath.Join(t.TempDir(), "nowhere"))
	assert.Error(t, err)
}

func TestOpenLibrary_EmptyDirFails(t *testing.T) {
	_, err := OpenLibrary(t.TempDir())
	assert.Error(t, err)
}

func TestOpenLibrary_SkipsUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "rain.wav"), 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("not audio"), 0644))

	lib, err := OpenLibrary(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"rain.wav"}, lib.BaseNames())
}

func TestResolveBase(t *testing.T) {
	lib := newTestLibrary(t)

	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"Exact filename", "gentle-rain.wav", "gentle-rain.wav", true},
		{"Cleaned name", "Gentle Rain", "gentle-rain.wav", true},
		{"Cleaned lowercase", "coffee shop", "coffee_shop.wav", true},
		{"Unknown", "white noise", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := lib.ResolveBase(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Gentle Rain", DisplayName("gentle-rain.mp3"))
	assert.Equal(t, "Coffee Shop", DisplayName("coffee_shop.wav"))
}
