package playback

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/bragi/internal/domain/track"
)

// ErrIndexOutOfRange is returned when a cursor move targets a missing track.
var ErrIndexOutOfRange = errors.New("index out of range")

// Queue is the ordered track list with a play cursor.
//
// The cursor points at the next track to serve, one past the current one,
// so a single Next call both advances and fetches.
type Queue struct {
	mu     sync.Mutex
	tracks []track.Track
	next   atomic.Int64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		tracks: make([]track.Track, 0),
	}
}

// Add appends a track to the tail.
func (q *Queue) Add(t track.Track) {
	zlog.Info().Msgf("adding track to queue: path=%s", t.Path)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
}

// Next returns the track at the cursor and advances the cursor by one.
// At the end of the list it returns false and leaves the cursor in place.
func (q *Queue) Next() (track.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.next.Load()
	if idx >= int64(len(q.tracks)) {
		return track.Track{}, false
	}
	q.next.Store(idx + 1)
	return q.tracks[idx], true
}

// CurrentIndex returns the index last returned by Next, or 0 if Next
// has not returned anything yet.
func (q *Queue) CurrentIndex() int {
	idx := q.next.Load()
	if idx == 0 {
		return 0
	}
	return int(idx - 1)
}

// NextIndex returns the raw cursor.
func (q *Queue) NextIndex() int {
	return int(q.next.Load())
}

// CurrentTrack returns the track at CurrentIndex.
func (q *Queue) CurrentTrack() (track.Track, bool) {
	idx := q.CurrentIndex()

	q.mu.Lock()
	defer q.mu.Unlock()

	if idx >= len(q.tracks) {
		return track.Track{}, false
	}
	return q.tracks[idx], true
}

// ChangeCurrent moves the cursor to index so that the next call to Next
// returns that track. The cursor is untouched on failure.
func (q *Queue) ChangeCurrent(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, queue length %d", index, len(q.tracks))
	}

	q.next.Store(int64(index))
	return nil
}

// ChangeToPrevious rewinds the cursor by two, saturating at zero, so that
// the following Next replays the track before the one just played.
func (q *Queue) ChangeToPrevious() {
	for {
		cur := q.next.Load()
		prev := cur - 2
		if prev < 0 {
			prev = 0
		}
		if q.next.CompareAndSwap(cur, prev) {
			return
		}
	}
}

// Playlist returns a copy of all tracks in play order.
func (q *Queue) Playlist() []track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]track.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Len returns the number of tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// Reset moves the cursor back to the start. The tracks are kept.
func (q *Queue) Reset() {
	q.next.Store(0)
}
