// Package playlist provides the Playlist domain entity and M3U parsing.
package playlist

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/bragi/internal/domain/track"
)

// Playlist is an ordered list of file paths loaded from an M3U file.
type Playlist struct {
	Name    string   // File name stem
	Path    string   // Location of the playlist file
	Entries []string // Track paths in file order
}

// Load reads an M3U or M3U8 playlist from disk.
// Relative entries are resolved against the playlist's directory.
func Load(path string) (*Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open playlist")
	}
	defer f.Close()

	entries, err := Parse(f, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse playlist %s", path)
	}

	return &Playlist{
		Name:    track.TitleFromPath(path),
		Path:    path,
		Entries: entries,
	}, nil
}

// Parse reads M3U lines from r. Comments, #EXT directives, blank lines and
// URL entries are skipped.
func Parse(r io.Reader, baseDir string) ([]string, error) {
	entries := make([]string, 0)

	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Network streams are out of scope.
		if strings.Contains(line, "://") {
			continue
		}

		if !filepath.IsAbs(line) && baseDir != "" {
			line = filepath.Join(baseDir, line)
		}
		entries = append(entries, filepath.Clean(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	return len(p.Entries)
}
