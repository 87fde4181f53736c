// Package watchdog detects silently stalled playback and forces a skip.
// Some playback surfaces wedge without ever reporting an error: the
// state says playing but the position stops moving. The watchdog samples
// the player state on a fixed interval and, after enough consecutive
// frozen samples, advances past the stuck track.
package watchdog

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/venuekit/venuebox/internal/channel"
)

// Source exposes the observed player state.
type Source interface {
	Snapshot() channel.Snapshot
}

// Skipper advances playback past the stuck track, bypassing any advance
// debounce so the recovery cannot be swallowed.
type Skipper interface {
	ForceNext() error
}

// Config tunes the stall detector.
type Config struct {
	Interval     time.Duration // Sampling period
	StallSamples int           // Consecutive frozen samples before a skip
	StartGrace   time.Duration // Position below this never counts as a stall
	EndGrace     time.Duration // Window before the end where a freeze is normal
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.StallSamples <= 0 {
		c.StallSamples = 3
	}
	if c.StartGrace <= 0 {
		c.StartGrace = time.Second
	}
	if c.EndGrace <= 0 {
		c.EndGrace = 500 * time.Millisecond
	}
}

// Watchdog samples a Source and fires a single forced skip per detected
// stall. The stall counter resets after each skip and whenever progress
// or a non-playing state is observed.
type Watchdog struct {
	cfg     Config
	source  Source
	skipper Skipper

	lastTrackID string
	lastPos     float64
	samples     int
	primed      bool
}

func New(cfg Config, source Source, skipper Skipper) *Watchdog {
	cfg.applyDefaults()
	return &Watchdog{cfg: cfg, source: source, skipper: skipper}
}

// Run samples until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	zlog.Info().Msgf("watchdog: started: interval=%v samples=%d", w.cfg.Interval, w.cfg.StallSamples)
	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("watchdog: stopped")
			return
		case <-ticker.C:
			w.observe(w.source.Snapshot())
		}
	}
}

func (w *Watchdog) observe(snap channel.Snapshot) {
	if snap.Status != channel.StatusPlaying || snap.CurrentTrack == nil {
		w.reset()
		return
	}

	// A track change restarts the baseline.
	if !w.primed || snap.CurrentTrack.ID != w.lastTrackID {
		w.prime(snap)
		return
	}

	// Compare against the previous sample, then record this one. The
	// baseline must follow backward seeks too, or every sample after a
	// rewind reads as frozen while playback is advancing.
	prev := w.lastPos
	w.lastPos = snap.Position
	if snap.Position > prev {
		w.samples = 0
		return
	}

	// Frozen. Ignore freezes inside the grace windows: surfaces buffer
	// at the start and settle near the end without being stuck.
	if snap.Position < w.cfg.StartGrace.Seconds() {
		return
	}
	if snap.Duration > 0 && snap.Position >= snap.Duration-w.cfg.EndGrace.Seconds() {
		return
	}

	w.samples++
	if w.samples < w.cfg.StallSamples {
		zlog.Debug().Msgf("watchdog: frozen sample %d/%d: track_id=%s pos=%.1f",
			w.samples, w.cfg.StallSamples, snap.CurrentTrack.ID, snap.Position)
		return
	}

	zlog.Warn().Msgf("watchdog: playback stalled at %.1fs, skipping: track_id=%s",
		snap.Position, snap.CurrentTrack.ID)
	if err := w.skipper.ForceNext(); err != nil {
		zlog.Error().Msgf("watchdog: forced skip failed: %v", err)
	}
	w.reset()
}

func (w *Watchdog) prime(snap channel.Snapshot) {
	w.primed = true
	w.lastTrackID = snap.CurrentTrack.ID
	w.lastPos = snap.Position
	w.samples = 0
}

func (w *Watchdog) reset() {
	w.primed = false
	w.lastTrackID = ""
	w.lastPos = 0
	w.samples = 0
}
