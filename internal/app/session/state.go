package session

// State represents the playback state.
type State int

const (
	StateStopped State = iota // Nothing playing, no current track
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
	StateError                // Last adapter call failed; recover via stop/next/play
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateError:
		return "Error"
	default:
		return "unknown"
	}
}
