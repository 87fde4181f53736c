// Package simsurface provides a clock-driven playback surface for
// deployments without real audio output and for local development. It
// advances a position at wall-clock rate and reports track ends, which
// is enough to drive the whole queue machinery.
package simsurface

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/venuekit/venuebox/internal/domain/track"
)

// Reporter is the player-side feedback surface.
type Reporter interface {
	ReportPosition(positionSeconds, durationSeconds float64)
	ReportEnded(trackID string)
}

// Surface implements player.Surface against a simulated clock.
type Surface struct {
	mu       sync.Mutex
	reporter Reporter
	current  *track.Track
	position float64
	playing  bool
}

func New() *Surface {
	return &Surface{}
}

// Bind attaches the reporter. Needed because the surface and the player
// reference each other.
func (s *Surface) Bind(r Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reporter = r
}

func (s *Surface) Play(t track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := t
	s.current = &cur
	s.position = 0
	s.playing = true
	zlog.Debug().Msgf("simsurface: playing: track_id=%s title=%s", t.ID, t.Title)
}

func (s *Surface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *Surface) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.playing = true
	}
}

func (s *Surface) SeekTo(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = seconds
}

func (s *Surface) SetVolume(v float64) {}

func (s *Surface) Preload(t track.Track) {
	zlog.Debug().Msgf("simsurface: preload hint: track_id=%s", t.ID)
}

// Run ticks the simulated clock until ctx is cancelled.
func (s *Surface) Run(ctx context.Context) {
	const step = 500 * time.Millisecond
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(step.Seconds())
		}
	}
}

func (s *Surface) tick(delta float64) {
	s.mu.Lock()
	if !s.playing || s.current == nil || s.reporter == nil {
		s.mu.Unlock()
		return
	}
	s.position += delta
	pos := s.position
	dur := s.current.DurationSeconds()
	id := s.current.ID
	reporter := s.reporter
	ended := dur > 0 && pos >= dur
	if ended {
		s.playing = false
	}
	s.mu.Unlock()

	reporter.ReportPosition(pos, dur)
	if ended {
		reporter.ReportEnded(id)
	}
}
