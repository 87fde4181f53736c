package player

import "github.com/venuekit/venuebox/internal/domain/track"

// Surface is the boundary to the external rendering surface. The
// orchestrator fires intents at it and never waits for a reply; progress
// comes back asynchronously through the Report* methods on Player.
type Surface interface {
	// Play starts playback of the given track from its source locator.
	Play(t track.Track)
	// Pause suspends playback.
	Pause()
	// Resume continues paused playback.
	Resume()
	// SeekTo jumps to an absolute position in seconds.
	SeekTo(seconds float64)
	// SetVolume applies a volume in the range 0..1.
	SetVolume(v float64)
	// Preload hints the surface to warm the pipeline for an upcoming track.
	Preload(t track.Track)
}

// NopSurface discards all intents. Useful when the orchestrator runs
// without an attached renderer.
type NopSurface struct{}

func (NopSurface) Play(track.Track)    {}
func (NopSurface) Pause()              {}
func (NopSurface) Resume()             {}
func (NopSurface) SeekTo(float64)      {}
func (NopSurface) SetVolume(float64)   {}
func (NopSurface) Preload(track.Track) {}
