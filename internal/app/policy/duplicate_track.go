package policy

import (
	"context"

	"github.com/venuekit/venuebox/internal/domain/track"
)

// QueueView is the read surface the policies need from the player.
type QueueView interface {
	AllTracks() []track.Track
	QueueSize(q track.QueueType) int
}

// DuplicateTrack rejects tracks already present in either queue or
// currently playing.
type DuplicateTrack struct {
	view QueueView
}

func NewDuplicateTrack(view QueueView) *DuplicateTrack {
	return &DuplicateTrack{view: view}
}

func (p *DuplicateTrack) Name() string {
	return "duplicate_track"
}

func (p *DuplicateTrack) Check(_ context.Context, req Request) Result {
	for _, t := range p.view.AllTracks() {
		if t.ID == req.Track.ID {
			return Reject(CodeDuplicateTrack)
		}
	}
	return Accept()
}
