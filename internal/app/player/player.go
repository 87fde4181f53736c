package player

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/venuekit/venuebox/internal/channel"
	"github.com/venuekit/venuebox/internal/domain/track"
)

// Errors
var (
	ErrInvalidIndex  = errors.New("index out of range")
	ErrUnknownQueue  = errors.New("unknown queue")
	ErrTrackNotFound = errors.New("track not in queue")
	ErrTrackInUse    = errors.New("cannot remove the currently playing entry")
	ErrQueueEmpty    = errors.New("queue is empty")
	ErrNoTrack       = errors.New("no track playing")
	ErrNotPlaying    = errors.New("not playing")
	ErrNotPaused     = errors.New("not paused")
	ErrInvalidVolume = errors.New("volume must be between 0 and 1")
	ErrDebounced     = errors.New("advance dropped by debounce guard")
)

// Config holds orchestrator configuration.
type Config struct {
	SessionID        string
	NextDebounce     time.Duration // Window during which repeat advances are dropped
	FailureThreshold int           // Consecutive failed starts before a forced skip
	DefaultVolume    float64
}

// Player is the queue orchestrator: the sole writer of the authoritative
// player state. Every accepted mutation produces exactly one snapshot,
// delivered to all registered sinks; rejected or no-op intents produce
// none. Dispatched commands and surface reports are serialized through
// the internal mutex, so mutations never interleave.
type Player struct {
	mu sync.Mutex

	cfg     Config
	surface Surface
	sinks   []channel.SnapshotSink

	// Authoritative state
	status     Status
	current    *track.Track
	origin     Origin
	active     []track.Track
	priority   []track.Track
	queueIndex int
	position   float64 // Mirrored from surface reports
	duration   float64
	volume     float64

	revision uint64

	// Guards
	lastAdvance time.Time // Last accepted advance, for the debounce window
	failTrackID string
	failCount   int
}

// New creates an orchestrator bound to a playback surface. Snapshots are
// published to every sink in registration order.
func New(cfg Config, surface Surface, sinks ...channel.SnapshotSink) *Player {
	if cfg.NextDebounce <= 0 {
		cfg.NextDebounce = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.DefaultVolume <= 0 || cfg.DefaultVolume > 1 {
		cfg.DefaultVolume = 1.0
	}
	if surface == nil {
		surface = NopSurface{}
	}
	return &Player{
		cfg:     cfg,
		surface: surface,
		sinks:   sinks,
		status:  StatusIdle,
		volume:  cfg.DefaultVolume,
	}
}

// AddSink registers an additional snapshot sink.
func (p *Player) AddSink(s channel.SnapshotSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// Rehydrate restores queue state from a persisted snapshot, once at
// session start. When wasPlaying is set, playback resumes from the
// restored current track.
func (p *Player) Rehydrate(active, priority []track.Track, queueIndex int, current *track.Track, wasPlaying bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active = append([]track.Track(nil), active...)
	p.priority = append([]track.Track(nil), priority...)
	p.queueIndex = queueIndex
	p.clampIndexLocked()

	if current != nil {
		cur := *current
		p.current = &cur
		if p.currentFromActiveLocked(cur) {
			p.origin = OriginActive
		} else {
			p.origin = OriginPriority
		}
		p.duration = cur.DurationSeconds()
		if wasPlaying {
			p.status = StatusPlaying
			p.surface.Play(cur)
		} else {
			p.status = StatusPaused
		}
	}

	zlog.Info().Msgf("player: rehydrated state: active=%d priority=%d index=%d playing=%t",
		len(p.active), len(p.priority), p.queueIndex, wasPlaying)
	p.broadcastLocked()
}

// PlayAt starts playback of the active-queue entry at index.
func (p *Player) PlayAt(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playAtLocked(index)
}

func (p *Player) playAtLocked(index int) error {
	if index < 0 || index >= len(p.active) {
		return errors.Wrapf(ErrInvalidIndex, "playAt %d of %d", index, len(p.active))
	}
	p.queueIndex = index
	p.setCurrentLocked(p.active[index], OriginActive)
	p.broadcastLocked()
	return nil
}

// Play starts or resumes playback: paused resumes, idle starts from the
// priority queue head or the active queue at its current index.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.status {
	case StatusPlaying:
		return nil
	case StatusPaused:
		return p.resumeLocked()
	}

	if len(p.priority) > 0 {
		return p.advanceLocked(true)
	}
	if len(p.active) > 0 {
		return p.playAtLocked(p.queueIndex)
	}
	return ErrQueueEmpty
}

// Pause suspends playback.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNoTrack
	}
	if p.status != StatusPlaying {
		return ErrNotPlaying
	}
	p.surface.Pause()
	p.status = StatusPaused
	p.broadcastLocked()
	return nil
}

// Resume continues paused playback.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resumeLocked()
}

func (p *Player) resumeLocked() error {
	if p.current == nil {
		return ErrNoTrack
	}
	if p.status != StatusPaused {
		return ErrNotPaused
	}
	p.surface.Resume()
	p.status = StatusPlaying
	p.broadcastLocked()
	return nil
}

// Next advances playback: the priority queue head is consumed first and
// never moves the active index; otherwise the active queue advances
// circularly; with both queues empty the player goes idle. Calls inside
// the debounce window of the previous accepted advance are dropped, not
// queued.
func (p *Player) Next() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advanceLocked(false)
}

// ForceNext advances with the debounce guard bypassed. Used by recovery
// paths (watchdog, repeated start failures) that must not be swallowed.
func (p *Player) ForceNext() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advanceLocked(true)
}

func (p *Player) advanceLocked(force bool) error {
	if !force && time.Since(p.lastAdvance) < p.cfg.NextDebounce {
		zlog.Debug().Msgf("player: advance dropped inside debounce window (%v)", p.cfg.NextDebounce)
		return ErrDebounced
	}

	switch {
	case len(p.priority) > 0:
		head := p.priority[0]
		p.priority = p.priority[1:]
		p.setCurrentLocked(head, OriginPriority)
	case len(p.active) > 0:
		p.queueIndex = (p.queueIndex + 1) % len(p.active)
		p.setCurrentLocked(p.active[p.queueIndex], OriginActive)
	default:
		if p.status == StatusIdle && p.current == nil {
			// Already idle with nothing queued; not a transition.
			return nil
		}
		p.current = nil
		p.origin = OriginNone
		p.status = StatusIdle
		p.position, p.duration = 0, 0
		p.surface.Pause()
	}

	p.lastAdvance = time.Now()
	p.resetFailuresLocked()
	p.broadcastLocked()
	return nil
}

// setCurrentLocked makes t the now-playing track and issues the play
// intent plus a preload hint for whatever comes after it.
func (p *Player) setCurrentLocked(t track.Track, origin Origin) {
	cur := t
	p.current = &cur
	p.origin = origin
	p.status = StatusPlaying
	p.position = 0
	p.duration = t.DurationSeconds()
	p.surface.Play(t)
	p.preloadNextLocked()
}

func (p *Player) preloadNextLocked() {
	if len(p.priority) > 0 {
		p.surface.Preload(p.priority[0])
		return
	}
	if len(p.active) > 1 {
		p.surface.Preload(p.active[(p.queueIndex+1)%len(p.active)])
	}
}

// Add appends a track to the end of the named queue.
func (p *Player) Add(t track.Track, q track.QueueType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch q {
	case track.QueueActive:
		p.active = append(p.active, t)
	case track.QueuePriority:
		p.priority = append(p.priority, t)
	default:
		return errors.Wrapf(ErrUnknownQueue, "%q", q)
	}
	p.broadcastLocked()
	return nil
}

// AddAll appends multiple tracks to the named queue as one mutation.
func (p *Player) AddAll(ts []track.Track, q track.QueueType) error {
	if len(ts) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch q {
	case track.QueueActive:
		p.active = append(p.active, ts...)
	case track.QueuePriority:
		p.priority = append(p.priority, ts...)
	default:
		return errors.Wrapf(ErrUnknownQueue, "%q", q)
	}
	p.broadcastLocked()
	return nil
}

// RemoveIndex removes the entry at index from the named queue. The
// currently playing active-queue entry is protected and cannot be
// removed in place.
func (p *Player) RemoveIndex(index int, q track.QueueType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeIndexLocked(index, q)
}

// RemoveTrack removes the first entry matching id from the named queue.
func (p *Player) RemoveTrack(id string, q track.QueueType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.queueLocked(q)
	if entries == nil {
		return errors.Wrapf(ErrUnknownQueue, "%q", q)
	}
	for i, t := range *entries {
		if t.ID == id {
			return p.removeIndexLocked(i, q)
		}
	}
	return errors.Wrapf(ErrTrackNotFound, "%s in %s", id, q)
}

func (p *Player) removeIndexLocked(index int, q track.QueueType) error {
	entries := p.queueLocked(q)
	if entries == nil {
		return errors.Wrapf(ErrUnknownQueue, "%q", q)
	}
	if index < 0 || index >= len(*entries) {
		return errors.Wrapf(ErrInvalidIndex, "remove %d of %d", index, len(*entries))
	}
	if q == track.QueueActive && p.origin == OriginActive && p.current != nil && index == p.queueIndex {
		return ErrTrackInUse
	}

	*entries = append((*entries)[:index], (*entries)[index+1:]...)
	if q == track.QueueActive {
		if index < p.queueIndex {
			p.queueIndex--
		}
		p.clampIndexLocked()
	}
	p.broadcastLocked()
	return nil
}

// Move relocates an active-queue entry from one position to another. The
// current track keeps its identity: the index follows it wherever the
// move puts or shifts it.
func (p *Player) Move(from, to int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.active)
	if from < 0 || from >= n || to < 0 || to >= n {
		return errors.Wrapf(ErrInvalidIndex, "move %d->%d of %d", from, to, n)
	}
	if from == to {
		return nil
	}

	t := p.active[from]
	p.active = append(p.active[:from], p.active[from+1:]...)
	rest := append([]track.Track(nil), p.active[to:]...)
	p.active = append(append(p.active[:to:to], t), rest...)

	switch {
	case from == p.queueIndex:
		p.queueIndex = to
	case from < p.queueIndex && to >= p.queueIndex:
		p.queueIndex--
	case from > p.queueIndex && to <= p.queueIndex:
		p.queueIndex++
	}

	p.broadcastLocked()
	return nil
}

// Shuffle randomly permutes the active queue. With keepCurrent set, the
// entry at the current index is pinned to position 0 and the index is
// reset to 0, preserving the current track's identity.
func (p *Player) Shuffle(keepCurrent bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.active) < 2 {
		return nil
	}

	if keepCurrent {
		cur := p.active[p.queueIndex]
		rest := append([]track.Track(nil), p.active[:p.queueIndex]...)
		rest = append(rest, p.active[p.queueIndex+1:]...)
		rand.Shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
		p.active = append([]track.Track{cur}, rest...)
		p.queueIndex = 0
	} else {
		// Permute via an index table so the current entry can be tracked
		// to its new position.
		perm := rand.Perm(len(p.active))
		shuffled := make([]track.Track, len(p.active))
		newIndex := p.queueIndex
		for dst, src := range perm {
			shuffled[dst] = p.active[src]
			if src == p.queueIndex {
				newIndex = dst
			}
		}
		p.active = shuffled
		p.queueIndex = newIndex
	}

	p.broadcastLocked()
	return nil
}

// Clear empties the named queue. Clearing the active queue while its
// current entry is playing stops playback.
func (p *Player) Clear(q track.QueueType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch q {
	case track.QueuePriority:
		if len(p.priority) == 0 {
			return nil
		}
		p.priority = nil
	case track.QueueActive:
		if len(p.active) == 0 {
			return nil
		}
		if p.current != nil && p.origin == OriginActive {
			p.surface.Pause()
			p.current = nil
			p.origin = OriginNone
			p.status = StatusIdle
			p.position, p.duration = 0, 0
		}
		p.active = nil
		p.queueIndex = 0
	default:
		return errors.Wrapf(ErrUnknownQueue, "%q", q)
	}
	p.broadcastLocked()
	return nil
}

// SetVolume applies a volume in the range 0..1.
func (p *Player) SetVolume(v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v < 0 || v > 1 {
		return errors.Wrapf(ErrInvalidVolume, "%v", v)
	}
	p.volume = v
	p.surface.SetVolume(v)
	p.broadcastLocked()
	return nil
}

// SeekTo jumps to an absolute position in seconds, bounded by the
// reported duration when one is known.
func (p *Player) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNoTrack
	}
	if seconds < 0 {
		seconds = 0
	}
	if p.duration > 0 && seconds > p.duration {
		seconds = p.duration
	}
	p.surface.SeekTo(seconds)
	p.position = seconds
	p.broadcastLocked()
	return nil
}

// ReportPosition mirrors a surface progress report into the state. It is
// not a mutation intent, so no snapshot is broadcast; the values ride
// along with the next one.
func (p *Player) ReportPosition(positionSeconds, durationSeconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = positionSeconds
	if durationSeconds > 0 {
		p.duration = durationSeconds
	}
}

// ReportEnded handles a natural end-of-track report for trackID. A
// report for a track an advance already replaced is stale and dropped.
// A report for the current track advances with the debounce bypassed,
// so a track shorter than the debounce window cannot stay pinned as
// playing at its end.
func (p *Player) ReportEnded(trackID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}
	if trackID != "" && trackID != p.current.ID {
		zlog.Debug().Msgf("player: stale ended report dropped: track_id=%s", trackID)
		return
	}
	if err := p.advanceLocked(true); err != nil {
		zlog.Debug().Msgf("player: ended report: %v", err)
	}
}

// ReportFailedToStart handles a failed start report from the surface.
// The same track is retried up to the failure threshold, then skipped to
// avoid livelock on a corrupt or missing source.
func (p *Player) ReportFailedToStart() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}

	id := p.current.ID
	if id == p.failTrackID {
		p.failCount++
	} else {
		p.failTrackID = id
		p.failCount = 1
	}

	if p.failCount >= p.cfg.FailureThreshold {
		zlog.Warn().Msgf("player: track failed to start %d times, skipping: track_id=%s", p.failCount, id)
		p.resetFailuresLocked()
		if err := p.advanceLocked(true); err != nil {
			zlog.Error().Msgf("player: failure skip: %v", err)
		}
		return
	}

	zlog.Debug().Msgf("player: retrying failed start: track_id=%s attempt=%d", id, p.failCount+1)
	p.surface.Play(*p.current)
}

func (p *Player) resetFailuresLocked() {
	p.failTrackID = ""
	p.failCount = 0
}

// Snapshot returns a copy of the current state.
func (p *Player) Snapshot() channel.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// AllTracks returns the current track plus both queues, for policy checks.
func (p *Player) AllTracks() []track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := make([]track.Track, 0, len(p.active)+len(p.priority)+1)
	if p.current != nil {
		all = append(all, *p.current)
	}
	all = append(all, p.priority...)
	all = append(all, p.active...)
	return all
}

// QueueSize returns the length of the named queue.
func (p *Player) QueueSize(q track.QueueType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q == track.QueuePriority {
		return len(p.priority)
	}
	return len(p.active)
}

// queueLocked returns the backing slice for q, or nil for unknown queues.
func (p *Player) queueLocked(q track.QueueType) *[]track.Track {
	switch q {
	case track.QueueActive:
		return &p.active
	case track.QueuePriority:
		return &p.priority
	default:
		return nil
	}
}

// currentFromActiveLocked reports whether cur is the active entry at the
// current index.
func (p *Player) currentFromActiveLocked(cur track.Track) bool {
	return p.queueIndex < len(p.active) && p.active[p.queueIndex].ID == cur.ID
}

// clampIndexLocked restores the index invariant after a removal: with a
// non-empty active queue the index stays in range, wrapping to 0 past
// the end; an empty queue pins it at 0.
func (p *Player) clampIndexLocked() {
	if len(p.active) == 0 {
		p.queueIndex = 0
		return
	}
	if p.queueIndex < 0 || p.queueIndex >= len(p.active) {
		p.queueIndex = 0
	}
}

// broadcastLocked publishes one snapshot for the mutation just applied.
func (p *Player) broadcastLocked() {
	p.revision++
	s := p.snapshotLocked()
	for _, sink := range p.sinks {
		sink.PublishSnapshot(s)
	}
}

func (p *Player) snapshotLocked() channel.Snapshot {
	var cur *track.Track
	if p.current != nil {
		c := *p.current
		cur = &c
	}
	return channel.Snapshot{
		SessionID:     p.cfg.SessionID,
		Revision:      p.revision,
		Status:        p.status.String(),
		CurrentTrack:  cur,
		TrackOrigin:   p.origin.String(),
		ActiveQueue:   append([]track.Track(nil), p.active...),
		PriorityQueue: append([]track.Track(nil), p.priority...),
		QueueIndex:    p.queueIndex,
		Position:      p.position,
		Duration:      p.duration,
		Volume:        p.volume,
		At:            time.Now(),
	}
}
