package channel

import (
	"time"

	"github.com/venuekit/venuebox/internal/domain/track"
)

// Playback status values carried by a snapshot.
const (
	StatusIdle      = "idle"
	StatusPlaying   = "playing"
	StatusPaused    = "paused"
	StatusBuffering = "buffering"
	StatusError     = "error"
)

// Origin values for the now-playing track.
const (
	OriginActive   = "activeQueue"
	OriginPriority = "priorityQueue"
)

// Snapshot is the full authoritative PlayerState published by the
// orchestrator after every accepted mutation. Revision increases
// monotonically per session so observers can apply latest-wins.
type Snapshot struct {
	SessionID     string        `json:"session_id"`
	Revision      uint64        `json:"revision"`
	Status        string        `json:"status"`
	CurrentTrack  *track.Track  `json:"current_track,omitempty"`
	TrackOrigin   string        `json:"track_origin,omitempty"`
	ActiveQueue   []track.Track `json:"active_queue"`
	PriorityQueue []track.Track `json:"priority_queue"`
	QueueIndex    int           `json:"queue_index"`
	Position      float64       `json:"position_seconds"`
	Duration      float64       `json:"duration_seconds"`
	Volume        float64       `json:"volume"`
	At            time.Time     `json:"at"`
}

// SnapshotSink receives published snapshots. Implementations must not
// block the publisher; slow consumers drop intermediate snapshots.
type SnapshotSink interface {
	PublishSnapshot(Snapshot)
}
