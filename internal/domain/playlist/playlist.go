// Package playlist provides the Playlist domain entity.
package playlist

import "github.com/venuekit/venuebox/internal/domain/track"

// Playlist represents a named, ordered collection of tracks resolved
// from an external source (e.g. a streaming service playlist URL).
type Playlist struct {
	ID     string        // Source-specific playlist ID
	Name   string        // Display name
	URL    string        // Source URL, if any
	Tracks []track.Track // Tracks in playlist order
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the summed duration of all tracks in seconds.
func (p *Playlist) TotalDuration() int64 {
	var total int64
	for _, t := range p.Tracks {
		total += int64(t.Duration.Seconds())
	}
	return total
}
