package playback

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/bragi/internal/domain/track"
)

// Errors
var (
	ErrInvalidIndex   = errors.New("invalid index")
	ErrNoCurrentTrack = errors.New("no current track")
	ErrSeek           = errors.New("seek failed")
	ErrQueueRunning   = errors.New("queue is already playing")
)

// DefaultMaxVolume is the gain ceiling used when Config.MaxVolume is unset.
const DefaultMaxVolume = 2.0

// Config holds controller configuration.
type Config struct {
	MaxVolume float64 // Upper bound for SetVolume / AdjustVolume
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	State        State
	IsPlaying    bool
	Playtime     time.Duration
	CurrentIndex int
	QueueLength  int
	Volume       float64
}

// Controller is the playback engine. It drives the sink from the queue,
// keeps the playtime tracker in step and emits events.
type Controller struct {
	// mu serializes state transitions and the sink calls that go with them.
	mu    sync.Mutex
	state State

	sink    Sink
	decoder Decoder
	reader  MetadataReader
	config  Config

	queue    *Queue
	playtime *Playtime

	// playing is the single source of truth for "a queue traversal is active".
	playing atomic.Bool
	// draining is held by the one running PlayQueue loop.
	draining sync.Mutex

	events *mailbox
}

// NewController creates a new playback controller.
func NewController(sink Sink, decoder Decoder, reader MetadataReader, config Config) *Controller {
	if config.MaxVolume <= 0 {
		config.MaxVolume = DefaultMaxVolume
	}
	return &Controller{
		state:    StateIdle,
		sink:     sink,
		decoder:  decoder,
		reader:   reader,
		config:   config,
		queue:    NewQueue(),
		playtime: NewPlaytime(),
		events:   newMailbox(),
	}
}

// Events returns the event channel. It is unbounded on the producer side
// and closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.events.out
}

// Load reads a track from path without queueing it.
func (c *Controller) Load(path string) (track.Track, error) {
	t, err := c.reader.Read(path)
	if err != nil {
		return track.Track{}, errors.Wrapf(err, "failed to open %s", path)
	}
	return t, nil
}

// Enqueue appends an already loaded track.
func (c *Controller) Enqueue(t track.Track) {
	c.queue.Add(t)
}

// Open reads path and appends it to the queue. It never starts playback.
func (c *Controller) Open(path string) error {
	t, err := c.Load(path)
	if err != nil {
		return err
	}
	c.Enqueue(t)
	return nil
}

// PlayQueue drains the queue, playing one track after another until the
// queue is exhausted, Stop is called or ctx is done. It blocks for the
// whole traversal and must run on its own goroutine.
func (c *Controller) PlayQueue(ctx context.Context) error {
	if !c.draining.TryLock() {
		return ErrQueueRunning
	}
	defer c.draining.Unlock()

	zlog.Info().Msg("starting a queue")
	c.playing.Store(true)

	for c.playing.Load() {
		t, ok := c.queue.Next()
		if !ok {
			break
		}

		stream, err := c.decoder.Open(t.Path)
		if err != nil {
			zlog.Warn().Err(err).Msgf("skipping undecodable track: path=%s", t.Path)
			continue
		}
		if err := c.sink.Append(stream); err != nil {
			_ = stream.Close()
			zlog.Warn().Err(err).Msgf("sink rejected track: path=%s", t.Path)
			continue
		}
		// Stop may have landed while the file was being decoded.
		if !c.playing.Load() {
			c.sink.Stop()
			break
		}

		c.events.push(Event{Type: EventTrackChanged, Index: c.queue.CurrentIndex()})
		c.resume()
		zlog.Info().Msgf("playing %s", t.Path)

		if err := c.sink.Wait(ctx); err != nil {
			c.Stop()
			zlog.Info().Msg("queue cancelled")
			return err
		}

		c.playtime.Reset()
		c.sink.Stop()
	}

	// A Stop from outside has already done the bookkeeping.
	if c.playing.Load() {
		c.Stop()
	}
	zlog.Info().Msg("queue stopped")

	return nil
}

// Play resumes a paused track. With a queue traversal active it also
// restarts a stopped sink; it never advances the queue.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePlaying:
		return
	case StatePaused:
	default:
		if !c.playing.Load() {
			zlog.Debug().Msgf("play ignored: state=%s", c.state)
			return
		}
	}
	c.resumeLocked()
}

func (c *Controller) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing.Load() {
		return
	}
	c.resumeLocked()
}

func (c *Controller) resumeLocked() {
	c.playtime.Play()
	c.sink.Play()
	c.state = StatePlaying
	zlog.Info().Msg("sink resumed")
}

// Pause pauses the sink and the playtime tracker. Only valid while playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		zlog.Debug().Msgf("pause ignored: state=%s", c.state)
		return
	}

	c.playtime.Pause()
	c.sink.Pause()
	c.state = StatePaused
	zlog.Info().Msg("sink paused")
}

// Stop ends the current queue traversal. A later PlayQueue starts over
// from the first track.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.playtime.Reset()
	c.sink.Stop()
	c.playing.Store(false)
	c.queue.Reset()
	c.state = StateStopped
	c.mu.Unlock()

	c.events.push(Event{Type: EventPlaybackStopped})
	zlog.Info().Msg("sink stopped")
}

// Next halts the current track; the PlayQueue loop moves on by itself.
func (c *Controller) Next() {
	c.playtime.Reset()
	c.sink.Stop()
	zlog.Info().Msg("switching to next track")
}

// Previous rewinds the queue so the PlayQueue loop replays the track
// before the current one.
func (c *Controller) Previous() {
	c.playtime.Reset()
	c.queue.ChangeToPrevious()
	c.sink.Stop()
	zlog.Info().Msg("switching to previous track")
}

// ChangeTrack jumps to the track at index.
func (c *Controller) ChangeTrack(index int) error {
	if err := c.queue.ChangeCurrent(index); err != nil {
		return errors.Mark(err, ErrInvalidIndex)
	}
	zlog.Info().Msgf("changing track: index=%d", index)
	c.Next()
	return nil
}

// Seek moves the current track to pos. The playtime tracker follows only
// when the sink accepted the position.
func (c *Controller) Seek(pos time.Duration) error {
	if pos < 0 {
		return errors.Wrapf(ErrSeek, "negative position %v", pos)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sink.Seek(pos); err != nil {
		return errors.Wrapf(errors.Mark(err, ErrSeek), "failed to seek to %v", pos)
	}
	c.playtime.Change(pos)
	zlog.Debug().Msgf("seeked to %v", pos)
	return nil
}

// SetVolume sets the sink gain, clamped to [0, MaxVolume].
func (c *Controller) SetVolume(level float64) {
	c.mu.Lock()
	level = c.setVolumeLocked(level)
	c.mu.Unlock()

	c.events.push(Event{Type: EventVolumeUpdated, Volume: level})
}

// AdjustVolume adds delta to the current gain and returns the new level.
func (c *Controller) AdjustVolume(delta float64) float64 {
	c.mu.Lock()
	level := c.setVolumeLocked(c.sink.Volume() + delta)
	c.mu.Unlock()

	c.events.push(Event{Type: EventVolumeUpdated, Volume: level})
	return level
}

func (c *Controller) setVolumeLocked(level float64) float64 {
	level = clampVolume(level, c.config.MaxVolume)
	c.sink.SetVolume(level)
	zlog.Info().Msgf("volume changed to: %.2f", level)
	return level
}

func clampVolume(level, ceiling float64) float64 {
	if math.IsNaN(level) || level < 0 {
		return 0
	}
	if level > ceiling {
		return ceiling
	}
	return level
}

// Volume returns the sink gain.
func (c *Controller) Volume() float64 {
	return c.sink.Volume()
}

// AlbumCover returns the embedded picture of the current track.
func (c *Controller) AlbumCover() (track.Cover, error) {
	if c.queue.NextIndex() == 0 {
		return track.Cover{}, ErrNoCurrentTrack
	}
	t, ok := c.queue.CurrentTrack()
	if !ok {
		return track.Cover{}, ErrNoCurrentTrack
	}

	cover, err := c.reader.Cover(t.Path)
	if err != nil {
		return track.Cover{}, errors.Wrapf(err, "failed to read album cover of %s", t.Path)
	}
	return cover, nil
}

// IsPlaying reports whether a queue traversal is active.
func (c *Controller) IsPlaying() bool {
	return c.playing.Load()
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Playtime returns the elapsed play time of the current track.
func (c *Controller) Playtime() time.Duration {
	return c.playtime.Elapsed()
}

// Playlist returns a copy of the queued tracks.
func (c *Controller) Playlist() []track.Track {
	return c.queue.Playlist()
}

// CurrentIndex returns the index of the current track.
func (c *Controller) CurrentIndex() int {
	return c.queue.CurrentIndex()
}

// QueueLength returns the number of queued tracks.
func (c *Controller) QueueLength() int {
	return c.queue.Len()
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	return Status{
		State:        c.State(),
		IsPlaying:    c.IsPlaying(),
		Playtime:     c.Playtime(),
		CurrentIndex: c.CurrentIndex(),
		QueueLength:  c.QueueLength(),
		Volume:       c.Volume(),
	}
}

// Close halts the sink and closes the event channel.
func (c *Controller) Close() {
	c.playing.Store(false)
	c.sink.Stop()
	c.events.close()
}
