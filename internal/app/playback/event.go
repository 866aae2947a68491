package playback

import "sync"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackChanged    EventType = iota // A new track started; Index is set
	EventPlaybackStopped                  // Queue traversal ended
	EventVolumeUpdated                    // Gain changed; Volume is set
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventPlaybackStopped:
		return "playback_stopped"
	case EventVolumeUpdated:
		return "volume_updated"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type   EventType
	Index  int     // Queue index for EventTrackChanged
	Volume float64 // New level for EventVolumeUpdated
}

// mailbox is an unbounded FIFO in front of an unbuffered channel.
// Producers never block; a single goroutine feeds the consumer in order.
type mailbox struct {
	mu      sync.Mutex
	pending []Event
	closed  bool

	signal chan struct{}
	done   chan struct{}
	out    chan Event
}

func newMailbox() *mailbox {
	m := &mailbox{
		pending: make([]Event, 0),
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		out:     make(chan Event),
	}
	go m.run()
	return m
}

func (m *mailbox) push(e Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.pending = append(m.pending, e)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) run() {
	defer close(m.out)

	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			select {
			case <-m.signal:
				continue
			case <-m.done:
				return
			}
		}
		e := m.pending[0]
		m.pending[0] = Event{}
		m.pending = m.pending[1:]
		m.mu.Unlock()

		select {
		case m.out <- e:
		case <-m.done:
			return
		}
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}
