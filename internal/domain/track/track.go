// Package track provides the Track domain entity.
package track

import "time"

// Track represents a playable item in the venue library.
// Tracks are immutable once created; two tracks are the "same track"
// when their IDs match. Position inside a queue is the identity of a
// queue entry, so duplicate IDs inside one queue are allowed.
type Track struct {
	ID            string        `json:"id"`                 // Stable content key
	Title         string        `json:"title"`              // Display title
	Artist        string        `json:"artist,omitempty"`   // Empty when unknown
	Duration      time.Duration `json:"duration,omitempty"` // Zero when unknown
	SourceLocator string        `json:"source_locator"`     // Opaque path or URI for the playback surface
	PlaylistID    string        `json:"playlist_id,omitempty"`
	PlaylistName  string        `json:"playlist_name,omitempty"`
}

// DurationSeconds returns the duration in seconds, 0 when unknown.
func (t Track) DurationSeconds() float64 {
	return t.Duration.Seconds()
}

// Same reports whether other is the same track (by ID).
func (t Track) Same(other Track) bool {
	return t.ID == other.ID
}

// QueueType identifies one of the two orchestrator queues.
type QueueType string

const (
	QueueActive   QueueType = "active"   // The regular rotation, advanced circularly
	QueuePriority QueueType = "priority" // FIFO requests, consumed before the active queue advances
)

// Valid reports whether q names a known queue.
func (q QueueType) Valid() bool {
	return q == QueueActive || q == QueuePriority
}
