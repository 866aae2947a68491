package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/bragi/internal/app/notification"
	"github.com/osa030/bragi/internal/app/playback"
	"github.com/osa030/bragi/internal/domain/track"
	"github.com/osa030/bragi/internal/infra/config"
)

const waitTimeout = time.Second

type stubStream struct{}

func (stubStream) Duration() time.Duration { return time.Minute }
func (stubStream) Close() error            { return nil }

type stubDecoder struct{}

func (stubDecoder) Open(string) (playback.Stream, error) { return stubStream{}, nil }

// stubSink holds every track until Stop.
type stubSink struct {
	mu     sync.Mutex
	done   chan struct{}
	paused bool
	volume float64
}

func (s *stubSink) Append(playback.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = make(chan struct{})
	return nil
}

func (s *stubSink) Play()  { s.mu.Lock(); s.paused = false; s.mu.Unlock() }
func (s *stubSink) Pause() { s.mu.Lock(); s.paused = true; s.mu.Unlock() }

func (s *stubSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *stubSink) SetVolume(v float64)         { s.mu.Lock(); s.volume = v; s.mu.Unlock() }
func (s *stubSink) Volume() float64             { s.mu.Lock(); defer s.mu.Unlock(); return s.volume }
func (s *stubSink) IsPaused() bool              { s.mu.Lock(); defer s.mu.Unlock(); return s.paused }
func (s *stubSink) IsEmpty() bool               { s.mu.Lock(); defer s.mu.Unlock(); return s.done == nil }
func (s *stubSink) Seek(pos time.Duration) error { return nil }

func (s *stubSink) Wait(ctx context.Context) error {
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

type stubReader struct {
	known map[string]track.Track
}

func (r *stubReader) Read(path string) (track.Track, error) {
	t, ok := r.known[path]
	if !ok {
		return track.Track{}, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return t, nil
}

func (r *stubReader) Cover(string) (track.Cover, error) {
	return track.Cover{}, errors.New("no picture")
}

func newTestManager(t *testing.T, cfg *config.Config, paths ...string) (*Manager, *playback.Controller) {
	t.Helper()

	reader := &stubReader{known: make(map[string]track.Track)}
	for _, p := range paths {
		reader.known[p] = track.FromPath(p)
	}
	controller := playback.NewController(&stubSink{volume: 1}, stubDecoder{}, reader, playback.Config{})
	m := NewManager(cfg, controller)
	t.Cleanup(m.Close)
	return m, controller
}

func nextNotification(t *testing.T, sub *notification.Subscription) *notification.Notification {
	t.Helper()
	select {
	case n, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return n
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for notification")
		return nil
	}
}

// waitFor skips notifications until one of typ arrives.
func waitFor(t *testing.T, sub *notification.Subscription, typ notification.Type) *notification.Notification {
	t.Helper()
	for {
		if n := nextNotification(t, sub); n.Type == typ {
			return n
		}
	}
}

func TestManager_Subscribe_SendsState(t *testing.T) {
	m, _ := newTestManager(t, nil)

	sub := m.Subscribe()

	n := nextNotification(t, sub)
	assert.Equal(t, notification.TypeState, n.Type)
	assert.Equal(t, "idle", n.State)
	assert.Equal(t, 0, n.QueueLength)
	assert.Nil(t, n.Track)
}

func TestManager_Open_StartsQueue(t *testing.T) {
	m, _ := newTestManager(t, nil, "/music/a.mp3")
	sub := m.Subscribe()
	nextNotification(t, sub)

	got, err := m.Open(context.Background(), "/music/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)

	queued := nextNotification(t, sub)
	assert.Equal(t, notification.TypeQueueUpdated, queued.Type)
	assert.Equal(t, 1, queued.QueueLength)

	changed := nextNotification(t, sub)
	assert.Equal(t, notification.TypeTrackChanged, changed.Type)
	assert.Equal(t, 0, changed.Index)
	require.NotNil(t, changed.Track)
	assert.Equal(t, "/music/a.mp3", changed.Track.Path)
	assert.Greater(t, changed.SequenceNo, queued.SequenceNo)

	assert.True(t, m.IsPlaying())
	status := m.GetStatus()
	require.NotNil(t, status.CurrentTrack)
	assert.Equal(t, "/music/a.mp3", status.CurrentTrack.Path)
	assert.Equal(t, 1, status.SubscriberCount)
}

func TestManager_Open_WhilePlayingOnlyQueues(t *testing.T) {
	m, _ := newTestManager(t, nil, "/a.mp3", "/b.mp3")
	sub := m.Subscribe()

	_, err := m.Open(context.Background(), "/a.mp3")
	require.NoError(t, err)
	waitFor(t, sub, notification.TypeTrackChanged)

	_, err = m.Open(context.Background(), "/b.mp3")
	require.NoError(t, err)

	assert.Equal(t, notification.TypeQueueUpdated, nextNotification(t, sub).Type)
	assert.Equal(t, 2, len(m.Playlist()))
	assert.Equal(t, 0, m.GetStatus().CurrentIndex)

	m.Next()
	assert.Equal(t, 1, waitFor(t, sub, notification.TypeTrackChanged).Index)
}

func TestManager_Open_MissingFile(t *testing.T) {
	m, _ := newTestManager(t, nil)

	_, err := m.Open(context.Background(), "missing.mp3")

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, m.Playlist())
	assert.False(t, m.IsPlaying())
}

func TestManager_Open_Rejected(t *testing.T) {
	cfg := &config.Config{Filters: map[string]config.FilterConfig{
		"extension_filter": {Enabled: true, Settings: map[string]any{"extensions": []any{"flac"}}},
	}}
	m, _ := newTestManager(t, cfg, "/a.mp3")

	_, err := m.Open(context.Background(), "/a.mp3")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "unsupported_extension")
	assert.Empty(t, m.Playlist())
}

func TestManager_Open_InvalidFilterSettingsAreSkipped(t *testing.T) {
	cfg := &config.Config{Filters: map[string]config.FilterConfig{
		"duration_limit_filter": {Enabled: true, Settings: map[string]any{"max_minutes": -1}},
	}}
	m, _ := newTestManager(t, cfg, "/a.mp3")

	_, err := m.Open(context.Background(), "/a.mp3")
	assert.NoError(t, err)
}

func TestManager_OpenMany(t *testing.T) {
	m, _ := newTestManager(t, nil, "/a.mp3", "/c.mp3")

	added, err := m.OpenMany(context.Background(), []string{"/a.mp3", "/b.mp3", "/c.mp3"})

	assert.Equal(t, 2, added)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/b.mp3")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	tracks := m.Playlist()
	require.Len(t, tracks, 2)
	assert.Equal(t, "/a.mp3", tracks[0].Path)
	assert.Equal(t, "/c.mp3", tracks[1].Path)
}

func TestManager_OpenPlaylist(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "sub", "b.flac")
	listPath := filepath.Join(dir, "list.m3u")
	require.NoError(t, os.WriteFile(listPath, []byte("#EXTM3U\na.mp3\n\nsub/b.flac\n"), 0o644))

	m, _ := newTestManager(t, nil, a, b)

	added, err := m.OpenPlaylist(context.Background(), listPath)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, []track.Track{track.FromPath(a), track.FromPath(b)}, m.Playlist())

	_, err = m.OpenPlaylist(context.Background(), filepath.Join(dir, "absent.m3u"))
	assert.Error(t, err)
}

func TestManager_OpenStartup(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "b.mp3")
	listPath := filepath.Join(dir, "list.m3u")
	require.NoError(t, os.WriteFile(listPath, []byte(b+"\n"), 0o644))

	m, _ := newTestManager(t, nil, a, b)

	added, err := m.OpenStartup(context.Background(), []string{a}, []string{listPath})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
}

func TestManager_PlayWhenIdleStartsQueue(t *testing.T) {
	m, controller := newTestManager(t, nil, "/a.mp3")
	sub := m.Subscribe()
	controller.Enqueue(track.FromPath("/a.mp3"))

	m.Play()

	assert.Equal(t, 0, waitFor(t, sub, notification.TypeTrackChanged).Index)
	assert.True(t, m.IsPlaying())
}

func TestManager_PlayWithEmptyQueue(t *testing.T) {
	m, _ := newTestManager(t, nil)

	m.Play()

	assert.False(t, m.IsPlaying())
}

func TestManager_PauseAndResume(t *testing.T) {
	m, controller := newTestManager(t, nil, "/a.mp3")
	sub := m.Subscribe()
	_, err := m.Open(context.Background(), "/a.mp3")
	require.NoError(t, err)
	waitFor(t, sub, notification.TypeTrackChanged)
	require.Eventually(t, func() bool {
		return controller.State() == playback.StatePlaying
	}, waitTimeout, 5*time.Millisecond)

	m.Pause()
	paused := waitFor(t, sub, notification.TypePaused)
	assert.Equal(t, "paused", paused.State)

	m.Play()
	resumed := waitFor(t, sub, notification.TypeResumed)
	assert.Equal(t, "playing", resumed.State)
}

func TestManager_StopBroadcasts(t *testing.T) {
	m, _ := newTestManager(t, nil, "/a.mp3")
	sub := m.Subscribe()
	_, err := m.Open(context.Background(), "/a.mp3")
	require.NoError(t, err)
	waitFor(t, sub, notification.TypeTrackChanged)

	m.Stop()

	waitFor(t, sub, notification.TypePlaybackStopped)
	assert.False(t, m.IsPlaying())
	assert.Nil(t, m.GetStatus().CurrentTrack)
}

func TestManager_Volume(t *testing.T) {
	m, _ := newTestManager(t, nil)
	sub := m.Subscribe()

	m.SetVolume(0.25)
	n := waitFor(t, sub, notification.TypeVolumeUpdated)
	assert.Equal(t, 0.25, n.Volume)

	assert.Equal(t, 0.5, m.AdjustVolume(0.25))
	assert.Equal(t, 0.5, m.Volume())
}

func TestManager_ChangeTrack_Invalid(t *testing.T) {
	m, _ := newTestManager(t, nil)
	err := m.ChangeTrack(3)
	assert.True(t, errors.Is(err, playback.ErrInvalidIndex))
}

func TestManager_AlbumCover_NoCurrentTrack(t *testing.T) {
	m, _ := newTestManager(t, nil)
	_, err := m.AlbumCover()
	assert.True(t, errors.Is(err, playback.ErrNoCurrentTrack))
}

func TestManager_Close(t *testing.T) {
	m, _ := newTestManager(t, nil, "/a.mp3")
	sub := m.Subscribe()
	_, err := m.Open(context.Background(), "/a.mp3")
	require.NoError(t, err)

	m.Close()
	m.Close()

	select {
	case <-m.Done():
	case <-time.After(waitTimeout):
		t.Fatal("manager not done")
	}
	for range sub.C {
	}
	assert.False(t, m.IsPlaying())

	_, err = m.Open(context.Background(), "/a.mp3")
	assert.True(t, errors.Is(err, ErrClosed))
}
