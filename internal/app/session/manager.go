// Package session provides the session manager that fronts the playback
// engine for the command surface.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/bragi/internal/app/filter"
	"github.com/osa030/bragi/internal/app/notification"
	"github.com/osa030/bragi/internal/app/playback"
	"github.com/osa030/bragi/internal/domain/playlist"
	"github.com/osa030/bragi/internal/domain/track"
	"github.com/osa030/bragi/internal/infra/config"
)

var (
	ErrClosed   = errors.New("session is closed")
	ErrRejected = errors.New("track rejected")
)

// Status represents the current session status.
type Status struct {
	playback.Status
	CurrentTrack    *track.Track
	SubscriberCount int
}

// Manager manages the playback session.
type Manager struct {
	mu     sync.Mutex
	closed bool

	// Components
	playback     *playback.Controller
	filterChain  *filter.Chain
	notification *notification.Manager

	// queueWG tracks the PlayQueue goroutine.
	queueWG sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a new session manager around controller.
func NewManager(cfg *config.Config, controller *playback.Controller) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		playback:     controller,
		filterChain:  filter.NewChain(),
		notification: notification.NewManager(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	m.setupFilters(cfg)

	go m.playbackLoop()

	return m
}

// setupFilters builds the filter chain from the enabled filters.
func (m *Manager) setupFilters(cfg *config.Config) {
	if cfg == nil {
		return
	}
	deps := filter.Deps{Queue: m.playback}
	for _, name := range cfg.EnabledFilters() {
		f, err := filter.New(name, deps, cfg.FilterSettings(name))
		if err != nil {
			zlog.Error().Msgf("failed to set up filter: %v", err)
			continue
		}
		m.filterChain.Add(f)
	}
	zlog.Info().Msgf("filter chain ready: filters=%v", m.filterChain.Names())
}

// Done is closed when the session manager is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Notifications returns the notification manager.
func (m *Manager) Notifications() *notification.Manager {
	return m.notification
}

// Open reads path and appends it to the queue. If nothing is playing the
// queue starts.
func (m *Manager) Open(ctx context.Context, path string) (track.Track, error) {
	t, err := m.open(ctx, path, filter.OriginUser)
	if err != nil {
		return track.Track{}, err
	}
	m.autoStart()
	return t, nil
}

// OpenMany opens every path in order. Failures do not stop the remaining
// paths; they are combined into the returned error.
func (m *Manager) OpenMany(ctx context.Context, paths []string) (int, error) {
	return m.openMany(ctx, paths, filter.OriginUser)
}

// OpenPlaylist opens every entry of an M3U playlist file.
func (m *Manager) OpenPlaylist(ctx context.Context, path string) (int, error) {
	pl, err := playlist.Load(path)
	if err != nil {
		return 0, err
	}
	zlog.Info().Msgf("loaded playlist: name=%s entries=%d", pl.Name, pl.Len())
	return m.openMany(ctx, pl.Entries, filter.OriginPlaylist)
}

// OpenStartup queues the files and playlists given on the command line.
func (m *Manager) OpenStartup(ctx context.Context, files, playlists []string) (int, error) {
	added, err := m.openMany(ctx, files, filter.OriginStartup)
	for _, p := range playlists {
		n, perr := m.OpenPlaylist(ctx, p)
		added += n
		err = errors.CombineErrors(err, perr)
	}
	return added, err
}

func (m *Manager) openMany(ctx context.Context, paths []string, origin filter.Origin) (int, error) {
	var (
		added int
		errs  error
	)
	for _, path := range paths {
		if ctx.Err() != nil {
			errs = errors.CombineErrors(errs, ctx.Err())
			break
		}
		if _, err := m.open(ctx, path, origin); err != nil {
			zlog.Warn().Err(err).Msgf("failed to open: path=%s", path)
			errs = errors.CombineErrors(errs, err)
			continue
		}
		added++
	}
	if added > 0 {
		m.autoStart()
	}
	return added, errs
}

func (m *Manager) open(ctx context.Context, path string, origin filter.Origin) (track.Track, error) {
	if m.isClosed() {
		return track.Track{}, ErrClosed
	}

	t, err := m.playback.Load(path)
	if err != nil {
		return track.Track{}, err
	}

	result := m.filterChain.Execute(ctx, t, origin)
	zlog.Info().Msgf("open: path=%s origin=%s result=%t code=%s", path, origin, result.Accepted, result.Code)
	if !result.Accepted {
		return track.Track{}, errors.Mark(
			errors.Newf("%s rejected by %s: %s", path, result.Filter, result.Code), ErrRejected)
	}

	m.playback.Enqueue(t)
	m.notification.Broadcast(&notification.Notification{
		Type:        notification.TypeQueueUpdated,
		Time:        time.Now(),
		Track:       &t,
		QueueLength: m.playback.QueueLength(),
	})
	return t, nil
}

// autoStart starts the queue when no traversal is active.
func (m *Manager) autoStart() {
	if m.playback.IsPlaying() {
		return
	}
	m.startQueue()
}

// startQueue runs PlayQueue in the background.
func (m *Manager) startQueue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.queueWG.Add(1)
	go func() {
		defer m.queueWG.Done()
		err := m.playback.PlayQueue(m.ctx)
		switch {
		case err == nil:
		case errors.Is(err, playback.ErrQueueRunning):
			zlog.Debug().Msg("queue already running")
		case errors.Is(err, context.Canceled):
			zlog.Debug().Msg("queue cancelled")
		default:
			zlog.Error().Err(err).Msg("queue failed")
		}
	}()
}

// Play resumes a paused track, or starts the queue when idle.
func (m *Manager) Play() {
	st := m.playback.State()
	if st == playback.StatePaused || m.playback.IsPlaying() {
		m.playback.Play()
		if st == playback.StatePaused {
			m.broadcastState(notification.TypeResumed)
		}
		return
	}
	if m.playback.QueueLength() == 0 {
		zlog.Debug().Msg("play ignored: queue is empty")
		return
	}
	m.startQueue()
}

// Pause pauses playback.
func (m *Manager) Pause() {
	before := m.playback.State()
	m.playback.Pause()
	if before == playback.StatePlaying {
		m.broadcastState(notification.TypePaused)
	}
}

// Stop ends the queue traversal.
func (m *Manager) Stop() {
	m.playback.Stop()
}

// Next skips to the next track.
func (m *Manager) Next() {
	m.playback.Next()
}

// Previous goes back one track.
func (m *Manager) Previous() {
	m.playback.Previous()
}

// ChangeTrack jumps to the track at index.
func (m *Manager) ChangeTrack(index int) error {
	return m.playback.ChangeTrack(index)
}

// Seek moves the current track to pos.
func (m *Manager) Seek(pos time.Duration) error {
	return m.playback.Seek(pos)
}

// SetVolume sets the gain.
func (m *Manager) SetVolume(level float64) {
	m.playback.SetVolume(level)
}

// AdjustVolume changes the gain by delta and returns the new level.
func (m *Manager) AdjustVolume(delta float64) float64 {
	return m.playback.AdjustVolume(delta)
}

// Volume returns the gain.
func (m *Manager) Volume() float64 {
	return m.playback.Volume()
}

// Playlist returns the queued tracks.
func (m *Manager) Playlist() []track.Track {
	return m.playback.Playlist()
}

// AlbumCover returns the cover of the current track.
func (m *Manager) AlbumCover() (track.Cover, error) {
	return m.playback.AlbumCover()
}

// IsPlaying reports whether a queue traversal is active.
func (m *Manager) IsPlaying() bool {
	return m.playback.IsPlaying()
}

// Playtime returns the elapsed time of the current track.
func (m *Manager) Playtime() time.Duration {
	return m.playback.Playtime()
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	st := &Status{
		Status:          m.playback.Status(),
		SubscriberCount: m.notification.SubscriberCount(),
	}
	if m.playback.IsPlaying() {
		if t, ok := m.currentTrack(); ok {
			st.CurrentTrack = &t
		}
	}
	return st
}

func (m *Manager) currentTrack() (track.Track, bool) {
	tracks := m.playback.Playlist()
	idx := m.playback.CurrentIndex()
	if idx < 0 || idx >= len(tracks) {
		return track.Track{}, false
	}
	return tracks[idx], true
}

// Subscribe registers a notification subscriber and queues a state
// snapshot as its first message.
func (m *Manager) Subscribe() *notification.Subscription {
	sub := m.notification.Subscribe()
	st := m.GetStatus()
	m.notification.Send(sub.ID, &notification.Notification{
		Type:        notification.TypeState,
		Time:        time.Now(),
		State:       st.State.String(),
		Index:       st.CurrentIndex,
		Track:       st.CurrentTrack,
		Volume:      st.Volume,
		Playtime:    st.Playtime,
		QueueLength: st.QueueLength,
	})
	return sub
}

// Unsubscribe removes a notification subscriber.
func (m *Manager) Unsubscribe(id string) {
	m.notification.Unsubscribe(id)
}

// playbackLoop forwards playback events to subscribers.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			zlog.Info().Msg("restarting playback loop")
			go m.playbackLoop()
		}
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-m.playback.Events():
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	zlog.Debug().Msgf("playback event: type=%s", event.Type)

	n := &notification.Notification{
		Time:        time.Now(),
		QueueLength: m.playback.QueueLength(),
	}

	switch event.Type {
	case playback.EventTrackChanged:
		n.Type = notification.TypeTrackChanged
		n.Index = event.Index
		if tracks := m.playback.Playlist(); event.Index >= 0 && event.Index < len(tracks) {
			t := tracks[event.Index]
			n.Track = &t
			zlog.Info().Msgf("now playing: index=%d title=%s", event.Index, t.Title)
		}
	case playback.EventPlaybackStopped:
		n.Type = notification.TypePlaybackStopped
	case playback.EventVolumeUpdated:
		n.Type = notification.TypeVolumeUpdated
		n.Volume = event.Volume
	default:
		return
	}
	m.notification.Broadcast(n)
}

func (m *Manager) broadcastState(typ notification.Type) {
	m.notification.Broadcast(&notification.Notification{
		Type:     typ,
		Time:     time.Now(),
		State:    m.playback.State().String(),
		Playtime: m.playback.Playtime(),
	})
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close stops playback, waits for the queue goroutine and closes every
// subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.playback.Stop()
	m.queueWG.Wait()
	m.playback.Close()
	m.notification.Close()
	close(m.done)
}
