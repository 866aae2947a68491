package playlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		baseDir  string
		expected []string
	}{
		{
			name:     "empty playlist",
			input:    "",
			expected: []string{},
		},
		{
			name:     "plain paths",
			input:    "/music/a.mp3\n/music/b.flac\n",
			expected: []string{"/music/a.mp3", "/music/b.flac"},
		},
		{
			name: "extended m3u with comments",
			input: "#EXTM3U\n" +
				"#EXTINF:123,Artist - Title\n" +
				"/music/a.mp3\n" +
				"\n" +
				"# a comment\n" +
				"/music/b.mp3\n",
			expected: []string{"/music/a.mp3", "/music/b.mp3"},
		},
		{
			name:     "relative entries resolved against base dir",
			input:    "a.mp3\nsub/../b.mp3\n",
			baseDir:  "/lists",
			expected: []string{"/lists/a.mp3", "/lists/b.mp3"},
		},
		{
			name:     "urls are skipped",
			input:    "http://radio.example/stream\n/music/a.mp3\n",
			expected: []string{"/music/a.mp3"},
		},
		{
			name:     "byte order mark",
			input:    "\ufeff/music/a.mp3\r\n",
			expected: []string{"/music/a.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Parse(strings.NewReader(tt.input), tt.baseDir)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, entries)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evening.m3u")
	require.NoError(t, os.WriteFile(path, []byte("#EXTM3U\none.mp3\ntwo.flac\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "evening", p.Name)
	assert.Equal(t, path, p.Path)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []string{filepath.Join(dir, "one.mp3"), filepath.Join(dir, "two.flac")}, p.Entries)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.m3u"))
	assert.Error(t, err)
}
