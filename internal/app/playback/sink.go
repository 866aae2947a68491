package playback

import (
	"context"
	"time"

	"github.com/osa030/bragi/internal/domain/track"
)

// Stream is one decoded audio item, produced by a Decoder and consumed by a Sink.
type Stream interface {
	// Duration returns the decoded length, or 0 if unknown.
	Duration() time.Duration
	Close() error
}

// Decoder opens audio files for playback.
type Decoder interface {
	Open(path string) (Stream, error)
}

// Sink is the audio output device. The Controller is its only user.
type Sink interface {
	// Append submits a stream; it becomes the current item.
	Append(s Stream) error
	Play()
	Pause()
	// Stop drops the current item and wakes any Wait call.
	Stop()
	SetVolume(level float64)
	Volume() float64
	IsPaused() bool
	IsEmpty() bool
	// Seek moves the current item to pos.
	Seek(pos time.Duration) error
	// Wait blocks until the current item drains or is stopped.
	Wait(ctx context.Context) error
}

// MetadataReader turns file paths into tracks.
type MetadataReader interface {
	// Read fails only when the file cannot be opened; unreadable tags
	// degrade to a file-name title.
	Read(path string) (track.Track, error)
	Cover(path string) (track.Cover, error)
}
