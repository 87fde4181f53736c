package store

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/venuekit/venuebox/internal/channel"
)

// Writer is a debounced snapshot sink: it holds the latest snapshot and
// writes it one debounce window after the first unwritten one arrived,
// collapsing the bursts a shuffle or bulk add produces into one write.
type Writer struct {
	store    *Store
	debounce time.Duration

	mu      sync.Mutex
	pending *channel.Snapshot
	timer   *time.Timer
	closed  bool
}

func NewWriter(store *Store, debounce time.Duration) *Writer {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Writer{store: store, debounce: debounce}
}

// PublishSnapshot implements channel.SnapshotSink. Later snapshots
// replace earlier unwritten ones; only the trailing edge hits disk.
func (w *Writer) PublishSnapshot(s channel.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.pending = &s
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flushPending)
	}
}

func (w *Writer) flushPending() {
	w.mu.Lock()
	s := w.pending
	w.pending = nil
	w.timer = nil
	w.mu.Unlock()

	if s == nil {
		return
	}
	w.write(*s)
}

// Flush writes any pending snapshot immediately.
func (w *Writer) Flush() {
	w.mu.Lock()
	s := w.pending
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if s != nil {
		w.write(*s)
	}
}

// Close flushes and stops accepting snapshots.
func (w *Writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.Flush()
}

func (w *Writer) write(s channel.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := PersistedQueue{
		Active:     s.ActiveQueue,
		Priority:   s.PriorityQueue,
		QueueIndex: s.QueueIndex,
		Current:    s.CurrentTrack,
		WasPlaying: s.Status == channel.StatusPlaying,
		Volume:     s.Volume,
	}
	if err := w.store.Save(ctx, s.SessionID, q); err != nil {
		zlog.Error().Msgf("store: failed to persist snapshot: %v", err)
		return
	}
	zlog.Debug().Msgf("store: persisted snapshot: revision=%d", s.Revision)
}
