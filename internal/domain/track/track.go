// Package track provides the Track domain entity.
package track

import (
	"path/filepath"
	"strings"
	"time"
)

// Track describes one playable audio file.
// Values are built once by the metadata reader and never mutated afterwards,
// so two tracks read from the same file compare equal with ==.
type Track struct {
	Title  string        `json:"title"`            // Tag title, or the file name stem
	Artist string        `json:"artist,omitempty"` // Empty when the file has no artist tag
	Album  string        `json:"album,omitempty"`  // Empty when the file has no album tag
	Path   string        `json:"path"`             // Path passed to open
	Length time.Duration `json:"length,omitempty"` // Zero when the length is unknown
}

// Cover is an embedded album picture.
type Cover struct {
	MIMEType string
	Ext      string
	Data     []byte
}

// FromPath returns the degraded track used when no tags can be read:
// only the title is set, derived from the file name.
func FromPath(path string) Track {
	return Track{
		Title: TitleFromPath(path),
		Path:  path,
	}
}

// TitleFromPath returns the file name without directory and extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HasArtist reports whether the artist tag was present.
func (t Track) HasArtist() bool {
	return t.Artist != ""
}

// HasAlbum reports whether the album tag was present.
func (t Track) HasAlbum() bool {
	return t.Album != ""
}

// HasLength reports whether the track length is known.
func (t Track) HasLength() bool {
	return t.Length > 0
}

// Seconds returns the length in seconds, or 0 when unknown.
func (t Track) Seconds() float64 {
	return t.Length.Seconds()
}

// Ext returns the lower-cased file extension without the dot.
func (t Track) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(t.Path)), ".")
}
