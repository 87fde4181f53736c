package watchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/venuekit/venuebox/internal/channel"
	"github.com/venuekit/venuebox/internal/domain/track"
)

type countSkipper struct {
	skips int
}

func (c *countSkipper) ForceNext() error {
	c.skips++
	return nil
}

func playingAt(pos, dur float64) channel.Snapshot {
	return channel.Snapshot{
		Status:       channel.StatusPlaying,
		CurrentTrack: &track.Track{ID: "t1"},
		Position:     pos,
		Duration:     dur,
	}
}

func newTestWatchdog(skipper *countSkipper) *Watchdog {
	return New(Config{
		Interval:     2 * time.Second,
		StallSamples: 3,
		StartGrace:   time.Second,
		EndGrace:     500 * time.Millisecond,
	}, nil, skipper)
}

func TestWatchdog_ThreeFrozenSamplesForceOneSkip(t *testing.T) {
	skipper := &countSkipper{}
	w := newTestWatchdog(skipper)

	w.observe(playingAt(30, 180)) // Baseline
	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	assert.Zero(t, skipper.skips)
	w.observe(playingAt(30, 180))
	assert.Equal(t, 1, skipper.skips)

	// Counter resets after the skip; the next freeze starts over from a
	// fresh baseline.
	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	assert.Equal(t, 1, skipper.skips)
}

func TestWatchdog_ProgressResetsCounter(t *testing.T) {
	skipper := &countSkipper{}
	w := newTestWatchdog(skipper)

	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	w.observe(playingAt(31, 180)) // Moved on
	w.observe(playingAt(31, 180))
	w.observe(playingAt(31, 180))
	assert.Zero(t, skipper.skips)
}

func TestWatchdog_StartGraceSuppressesStall(t *testing.T) {
	skipper := &countSkipper{}
	w := newTestWatchdog(skipper)

	for i := 0; i < 10; i++ {
		w.observe(playingAt(0.5, 180))
	}
	assert.Zero(t, skipper.skips)
}

func TestWatchdog_EndGraceSuppressesStall(t *testing.T) {
	skipper := &countSkipper{}
	w := newTestWatchdog(skipper)

	for i := 0; i < 10; i++ {
		w.observe(playingAt(179.8, 180))
	}
	assert.Zero(t, skipper.skips)
}

func TestWatchdog_NonPlayingStatesIgnored(t *testing.T) {
	skipper := &countSkipper{}
	w := newTestWatchdog(skipper)

	paused := playingAt(30, 180)
	paused.Status = channel.StatusPaused
	for i := 0; i < 10; i++ {
		w.observe(paused)
	}
	w.observe(channel.Snapshot{Status: channel.StatusIdle})
	assert.Zero(t, skipper.skips)
}

func TestWatchdog_TrackChangeRestartsBaseline(t *testing.T) {
	skipper := &countSkipper{}
	w := newTestWatchdog(skipper)

	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))

	next := playingAt(30, 180)
	next.CurrentTrack = &track.Track{ID: "t2"}
	w.observe(next) // New track, new baseline
	w.observe(next)
	w.observe(next)
	assert.Zero(t, skipper.skips)
	w.observe(next)
	w.observe(next)
	assert.Equal(t, 1, skipper.skips)
}

func TestWatchdog_BackwardSeekIsNotAStall(t *testing.T) {
	skipper := &countSkipper{}
	w := newTestWatchdog(skipper)

	w.observe(playingAt(100, 300)) // Baseline
	w.observe(playingAt(20, 300))  // Rewound; at most one frozen sample
	w.observe(playingAt(22, 300))
	w.observe(playingAt(24, 300))
	w.observe(playingAt(26, 300))
	assert.Zero(t, skipper.skips)

	// A track genuinely frozen after a rewind is still caught.
	w.observe(playingAt(26, 300))
	w.observe(playingAt(26, 300))
	w.observe(playingAt(26, 300))
	assert.Equal(t, 1, skipper.skips)
}

func TestWatchdog_PauseBreaksStallRun(t *testing.T) {
	skipper := &countSkipper{}
	w := newTestWatchdog(skipper)

	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))

	paused := playingAt(30, 180)
	paused.Status = channel.StatusPaused
	w.observe(paused)

	// Resuming at the same position starts a fresh run.
	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	w.observe(playingAt(30, 180))
	assert.Zero(t, skipper.skips)
}
