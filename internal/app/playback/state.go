// Package playback provides the playback engine with its queue and playtime tracker.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // Nothing loaded yet
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
	StateStopped              // Queue exhausted or explicitly stopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
