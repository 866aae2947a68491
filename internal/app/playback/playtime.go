package playback

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Playtime is a pause-aware stopwatch for the current track.
// All fields move together, so one mutex guards the whole struct.
type Playtime struct {
	mu sync.Mutex

	startTime     *time.Time
	pausedAt      *time.Time
	pausedElapsed time.Duration

	now func() time.Time
}

// NewPlaytime creates a tracker that has not started.
func NewPlaytime() *Playtime {
	return &Playtime{now: time.Now}
}

// Play starts the stopwatch, or resumes it after a pause.
func (p *Playtime) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.startTime == nil {
		p.startTime = &now
		zlog.Debug().Msgf("playtime: started at %v", now)
	}

	if p.pausedAt != nil {
		p.pausedElapsed += now.Sub(*p.pausedAt)
		p.pausedAt = nil
	}
}

// Pause freezes the stopwatch. Pausing twice keeps the first pause instant,
// and pausing before Play does nothing.
func (p *Playtime) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startTime == nil || p.pausedAt != nil {
		return
	}
	now := p.now()
	p.pausedAt = &now
	zlog.Debug().Msgf("playtime: paused at %v", now)
}

// Elapsed returns the time spent playing, excluding pauses.
func (p *Playtime) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsedLocked(p.now())
}

func (p *Playtime) elapsedLocked(now time.Time) time.Duration {
	if p.startTime == nil {
		return 0
	}

	elapsed := now.Sub(*p.startTime) - p.pausedElapsed
	if p.pausedAt != nil {
		elapsed -= now.Sub(*p.pausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Change rebases the stopwatch so that Elapsed reports d from now on.
// A paused stopwatch stays paused at d.
func (p *Playtime) Change(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	start := now.Add(-d)
	p.startTime = &start
	p.pausedElapsed = 0
	if p.pausedAt != nil {
		p.pausedAt = &now
	}
}

// Reset returns the stopwatch to its never-started state.
func (p *Playtime) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = nil
	p.pausedAt = nil
	p.pausedElapsed = 0
}

// IsPaused reports whether the stopwatch is frozen.
func (p *Playtime) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pausedAt != nil
}
