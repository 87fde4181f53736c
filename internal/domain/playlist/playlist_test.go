package playlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/venuekit/venuebox/internal/domain/track"
)

func TestPlaylist_TrackIDs(t *testing.T) {
	p := &Playlist{Tracks: []track.Track{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}}
	assert.Equal(t, []string{"t1", "t2", "t3"}, p.TrackIDs())
	assert.Empty(t, (&Playlist{}).TrackIDs())
}

func TestPlaylist_TotalDuration(t *testing.T) {
	p := &Playlist{Tracks: []track.Track{
		{Duration: 3 * time.Minute},
		{Duration: 90 * time.Second},
	}}
	assert.Equal(t, int64(270), p.TotalDuration())
}
