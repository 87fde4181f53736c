// Package player provides the queue orchestrator: the single authoritative
// owner of playback and queue state.
package player

// Status represents the playback status.
type Status int

const (
	StatusIdle      Status = iota // Nothing playing (queues may still hold tracks)
	StatusPlaying                 // A track is playing
	StatusPaused                  // Playback is paused
	StatusBuffering               // Surface is acquiring the source
	StatusError                   // Surface reported an unrecoverable condition
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusBuffering:
		return "buffering"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseStatus maps a snapshot status string back to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "playing":
		return StatusPlaying
	case "paused":
		return StatusPaused
	case "buffering":
		return StatusBuffering
	case "error":
		return StatusError
	default:
		return StatusIdle
	}
}

// Origin records which queue the now-playing track was dequeued from.
// A priority-sourced track may warrant a skip confirmation upstream; the
// orchestrator only tracks the flag.
type Origin int

const (
	OriginNone     Origin = iota // No current track
	OriginActive                 // Dequeued from the active queue
	OriginPriority               // Dequeued from the priority queue
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginActive:
		return "activeQueue"
	case OriginPriority:
		return "priorityQueue"
	default:
		return ""
	}
}
