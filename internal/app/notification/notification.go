package notification

import (
	"time"

	"github.com/osa030/bragi/internal/domain/track"
)

// Type identifies a notification.
type Type string

const (
	TypeState           Type = "state"            // Full snapshot, sent once on subscribe
	TypeTrackChanged    Type = "track_changed"    // Index and Track are set
	TypePlaybackStopped Type = "playback_stopped" // Queue traversal ended
	TypeVolumeUpdated   Type = "volume_updated"   // Volume is set
	TypeQueueUpdated    Type = "queue_updated"    // QueueLength is set
	TypePaused          Type = "paused"
	TypeResumed         Type = "resumed"
)

// Notification is one message delivered to subscribers.
type Notification struct {
	SequenceNo  uint64
	Type        Type
	Time        time.Time
	State       string
	Index       int
	Track       *track.Track
	Volume      float64
	Playtime    time.Duration
	QueueLength int
}
