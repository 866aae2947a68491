// Package audio implements the playback sink and decoders on top of beep.
package audio

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/osa030/bragi/internal/app/playback"
)

// ErrUnsupportedFormat is returned for file extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// SupportedExtensions lists the extensions the decoder accepts, without dot.
var SupportedExtensions = []string{"mp3", "flac", "wav", "ogg"}

type decodeFunc func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decodeFunc{
	"mp3": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(f)
	},
	"flac": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(f)
	},
	"wav": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(f)
	},
	"ogg": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(f)
	},
}

// Stream is a decoded audio file.
type Stream struct {
	path     string
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
}

// Duration returns the total length of the stream.
func (s *Stream) Duration() time.Duration {
	return s.format.SampleRate.D(s.streamer.Len())
}

// Format returns the stream's native format.
func (s *Stream) Format() beep.Format {
	return s.format
}

// Close releases the decoder and the file.
func (s *Stream) Close() error {
	err := s.streamer.Close()
	if ferr := s.file.Close(); ferr != nil && !errors.Is(ferr, os.ErrClosed) {
		err = errors.CombineErrors(err, ferr)
	}
	return err
}

// Decoder opens audio files by extension.
type Decoder struct{}

var _ playback.Decoder = (*Decoder)(nil)

// NewDecoder creates a new decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open decodes the file at path.
func (d *Decoder) Open(path string) (playback.Stream, error) {
	return d.open(path)
}

func (d *Decoder) open(path string) (*Stream, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	decode, ok := decoders[ext]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "cannot decode %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	streamer, format, err := decode(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	return &Stream{path: path, file: f, streamer: streamer, format: format}, nil
}

// Length returns the playing time of the file at path from its headers.
func (d *Decoder) Length(path string) (time.Duration, error) {
	s, err := d.open(path)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return s.Duration(), nil
}

// IsSupported reports whether path has a decodable extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	_, ok := decoders[ext]
	return ok
}
