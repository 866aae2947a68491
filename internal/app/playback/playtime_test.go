package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPlaytime() (*Playtime, *fakeClock) {
	clock := newFakeClock()
	p := NewPlaytime()
	p.now = clock.Now
	return p, clock
}

func TestPlaytime_NotStarted(t *testing.T) {
	p, clock := newTestPlaytime()
	assert.Zero(t, p.Elapsed())

	clock.Advance(time.Minute)
	assert.Zero(t, p.Elapsed())
}

func TestPlaytime_Play(t *testing.T) {
	p, clock := newTestPlaytime()
	p.Play()
	clock.Advance(3 * time.Second)

	assert.Equal(t, 3*time.Second, p.Elapsed())

	// A second Play does not restart the stopwatch.
	p.Play()
	clock.Advance(time.Second)
	assert.Equal(t, 4*time.Second, p.Elapsed())
}

func TestPlaytime_Pause(t *testing.T) {
	p, clock := newTestPlaytime()
	p.Play()
	clock.Advance(2 * time.Second)
	p.Pause()

	first := p.Elapsed()
	clock.Advance(time.Second)
	second := p.Elapsed()

	assert.Equal(t, 2*time.Second, first)
	assert.Equal(t, first, second)
	assert.True(t, p.IsPaused())
}

func TestPlaytime_PauseTwiceKeepsFirstInstant(t *testing.T) {
	p, clock := newTestPlaytime()
	p.Play()
	clock.Advance(2 * time.Second)
	p.Pause()
	clock.Advance(5 * time.Second)
	p.Pause()
	clock.Advance(5 * time.Second)
	p.Play()
	clock.Advance(time.Second)

	assert.Equal(t, 3*time.Second, p.Elapsed())
}

func TestPlaytime_PauseBeforePlay(t *testing.T) {
	p, clock := newTestPlaytime()
	p.Pause()
	clock.Advance(5 * time.Second)
	p.Play()
	clock.Advance(time.Second)

	assert.False(t, p.IsPaused())
	assert.Equal(t, time.Second, p.Elapsed())
}

func TestPlaytime_Resume(t *testing.T) {
	p, clock := newTestPlaytime()
	p.Play()
	clock.Advance(2 * time.Second)
	p.Pause()
	clock.Advance(10 * time.Second)
	p.Play()
	clock.Advance(3 * time.Second)

	assert.Equal(t, 5*time.Second, p.Elapsed())
	assert.False(t, p.IsPaused())
}

func TestPlaytime_Change(t *testing.T) {
	tests := []struct {
		name   string
		pause  bool
		after  time.Duration
		target time.Duration
		want   time.Duration
	}{
		{
			name:   "while playing keeps running",
			target: 10 * time.Second,
			after:  2 * time.Second,
			want:   12 * time.Second,
		},
		{
			name:   "while paused stays frozen",
			pause:  true,
			target: 10 * time.Second,
			after:  2 * time.Second,
			want:   10 * time.Second,
		},
		{
			name:   "rewind",
			target: 0,
			after:  time.Second,
			want:   time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, clock := newTestPlaytime()
			p.Play()
			clock.Advance(30 * time.Second)
			if tt.pause {
				p.Pause()
				clock.Advance(4 * time.Second)
			}

			p.Change(tt.target)
			assert.Equal(t, tt.target, p.Elapsed())

			clock.Advance(tt.after)
			assert.Equal(t, tt.want, p.Elapsed())
		})
	}
}

func TestPlaytime_ChangeThenResume(t *testing.T) {
	p, clock := newTestPlaytime()
	p.Play()
	p.Pause()
	p.Change(10 * time.Second)
	clock.Advance(3 * time.Second)
	p.Play()
	clock.Advance(time.Second)

	assert.Equal(t, 11*time.Second, p.Elapsed())
}

func TestPlaytime_Reset(t *testing.T) {
	p, clock := newTestPlaytime()
	p.Play()
	clock.Advance(time.Second)
	p.Pause()

	p.Reset()

	assert.Zero(t, p.Elapsed())
	assert.False(t, p.IsPaused())
}

func TestPlaytime_RealClock(t *testing.T) {
	p := NewPlaytime()
	p.Play()
	time.Sleep(5 * time.Millisecond)
	assert.NotZero(t, p.Elapsed())

	p.Pause()
	first := p.Elapsed()
	time.Sleep(50 * time.Millisecond)
	second := p.Elapsed()

	assert.Less(t, second-first, 10*time.Millisecond)
}
