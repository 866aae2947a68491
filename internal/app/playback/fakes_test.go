package playback

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/bragi/internal/domain/track"
)

type fakeStream struct {
	path   string
	closed bool
}

func (s *fakeStream) Duration() time.Duration { return time.Minute }

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeDecoder struct {
	mu     sync.Mutex
	broken map[string]bool
	opened []string
}

func (d *fakeDecoder) Open(path string) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.broken[path] {
		return nil, errors.Newf("cannot decode %s", path)
	}
	d.opened = append(d.opened, path)
	return &fakeStream{path: path}, nil
}

// fakeSink records calls. Finish simulates the current item draining.
type fakeSink struct {
	mu       sync.Mutex
	current  *fakeStream
	done     chan struct{}
	paused   bool
	volume   float64
	seekErr  error
	seeks    []time.Duration
	appended []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{volume: 1}
}

func (s *fakeSink) Append(st Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs := st.(*fakeStream)
	s.current = fs
	s.done = make(chan struct{})
	s.appended = append(s.appended, fs.path)
	return nil
}

func (s *fakeSink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *fakeSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *fakeSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.current = nil
}

// Finish drains the current item.
func (s *fakeSink) Finish() {
	s.Stop()
}

func (s *fakeSink) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = level
}

func (s *fakeSink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *fakeSink) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *fakeSink) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == nil
}

func (s *fakeSink) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seekErr != nil {
		return s.seekErr
	}
	s.seeks = append(s.seeks, pos)
	return nil
}

func (s *fakeSink) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeSink) Appended() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]string, len(s.appended))
	copy(result, s.appended)
	return result
}

type fakeReader struct {
	tracks   map[string]track.Track
	covers   map[string]track.Cover
	coverErr error
}

func newFakeReader(paths ...string) *fakeReader {
	r := &fakeReader{
		tracks: make(map[string]track.Track),
		covers: make(map[string]track.Cover),
	}
	for _, p := range paths {
		r.tracks[p] = track.FromPath(p)
	}
	return r
}

func (r *fakeReader) Read(path string) (track.Track, error) {
	t, ok := r.tracks[path]
	if !ok {
		return track.Track{}, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return t, nil
}

func (r *fakeReader) Cover(path string) (track.Cover, error) {
	if r.coverErr != nil {
		return track.Cover{}, r.coverErr
	}
	c, ok := r.covers[path]
	if !ok {
		return track.Cover{}, errors.New("no picture")
	}
	return c, nil
}
