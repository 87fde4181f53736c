// Package jukebox wires the queue orchestrator, command dispatcher,
// policies, and watchdog into one running session.
package jukebox

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/venuekit/venuebox/internal/app/dispatch"
	"github.com/venuekit/venuebox/internal/app/player"
	"github.com/venuekit/venuebox/internal/app/policy"
	"github.com/venuekit/venuebox/internal/app/watchdog"
	"github.com/venuekit/venuebox/internal/channel"
	"github.com/venuekit/venuebox/internal/domain/playlist"
	"github.com/venuekit/venuebox/internal/domain/track"
)

// Rejection codes reported back to issuing peers.
const (
	codeInvalidRequest = "invalid_request"
	codeInvalidIndex   = "invalid_index"
	codeTrackInUse     = "track_in_use"
	codeTrackNotFound  = "track_not_found"
	codeQueueEmpty     = "queue_empty"
	codeNoTrack        = "no_track"
	codeNotPlaying     = "not_playing"
	codeNotPaused      = "not_paused"
	codeNotConfigured  = "not_configured"
	codeSourceError    = "source_error"
	codeInternal       = "internal_error"
)

// PlaylistSource resolves a playlist locator to the playlist with its
// tracks.
type PlaylistSource interface {
	FetchPlaylist(ctx context.Context, locator string) (*playlist.Playlist, error)
}

// Manager runs one jukebox session: it drains commands from the channel
// consumer, dispatches them, and reports results.
type Manager struct {
	sessionID string
	player    *player.Player
	disp      *dispatch.Dispatcher
	dog       *watchdog.Watchdog
	policies  *policy.Chain
	source    PlaylistSource
	consumer  channel.Consumer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config assembles a Manager. Source may be nil; load_playlist commands
// are then rejected as not configured.
type Config struct {
	SessionID string
	Player    *player.Player
	Watchdog  *watchdog.Watchdog
	Policies  *policy.Chain
	Source    PlaylistSource
	Consumer  channel.Consumer
}

func NewManager(cfg Config) *Manager {
	pol := cfg.Policies
	if pol == nil {
		pol = policy.NewChain()
	}
	return &Manager{
		sessionID: cfg.SessionID,
		player:    cfg.Player,
		disp:      dispatch.New(),
		dog:       cfg.Watchdog,
		policies:  pol,
		source:    cfg.Source,
		consumer:  cfg.Consumer,
	}
}

// Start registers the handler table and launches the command loop and
// watchdog. It returns immediately; Stop tears everything down.
func (m *Manager) Start() {
	m.disp.Register(m.sessionID, m.handlers())

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	if m.dog != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.dog.Run(ctx)
		}()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.commandLoop(ctx)
	}()

	zlog.Info().Msgf("jukebox: session started: session_id=%s", m.sessionID)
}

// Stop cancels the loops and waits for them to drain.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	zlog.Info().Msgf("jukebox: session stopped: session_id=%s", m.sessionID)
}

func (m *Manager) commandLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-m.consumer.Commands():
			if !ok {
				return
			}
			m.handle(ctx, cmd)
		}
	}
}

func (m *Manager) handle(ctx context.Context, cmd channel.Command) {
	zlog.Debug().Msgf("jukebox: command: type=%s id=%s peer=%s", cmd.Type, cmd.ID, cmd.OriginPeer)

	out := m.disp.Dispatch(ctx, cmd)
	if out == nil {
		// Unknown command type: dropped without a result, the issuer's
		// wait times out.
		return
	}

	res := channel.Result{
		CommandID: cmd.ID,
		Peer:      cmd.OriginPeer,
		Success:   out.Err == nil && out.Code == "",
		Code:      out.Code,
	}
	if out.Err != nil {
		if res.Code == "" {
			res.Code = errorCode(out.Err)
		}
		res.Error = out.Err.Error()
		zlog.Info().Msgf("jukebox: command rejected: type=%s code=%s err=%v", cmd.Type, res.Code, out.Err)
	}
	m.consumer.PublishResult(res)
}

func (m *Manager) handlers() map[channel.Type]dispatch.Handler {
	return map[channel.Type]dispatch.Handler{
		channel.TypePlay:         m.handlePlay,
		channel.TypePause:        m.handlePause,
		channel.TypeResume:       m.handleResume,
		channel.TypeSkip:         m.handleSkip,
		channel.TypePlayAt:       m.handlePlayAt,
		channel.TypeSetVolume:    m.handleSetVolume,
		channel.TypeSeekTo:       m.handleSeekTo,
		channel.TypeQueueAdd:     m.handleQueueAdd,
		channel.TypeQueueShuffle: m.handleQueueShuffle,
		channel.TypeQueueMove:    m.handleQueueMove,
		channel.TypeQueueRemove:  m.handleQueueRemove,
		channel.TypeQueueClear:   m.handleQueueClear,
		channel.TypeLoadPlaylist: m.handleLoadPlaylist,
	}
}

func (m *Manager) handlePlay(ctx context.Context, cmd channel.Command) (string, error) {
	return "", m.player.Play()
}

func (m *Manager) handlePause(ctx context.Context, cmd channel.Command) (string, error) {
	return "", m.player.Pause()
}

func (m *Manager) handleResume(ctx context.Context, cmd channel.Command) (string, error) {
	return "", m.player.Resume()
}

func (m *Manager) handleSkip(ctx context.Context, cmd channel.Command) (string, error) {
	err := m.player.Next()
	if errors.Is(err, player.ErrDebounced) {
		// A skip racing another advance collapses into it; report
		// success so the issuer does not retry.
		return "", nil
	}
	return "", err
}

func (m *Manager) handlePlayAt(ctx context.Context, cmd channel.Command) (string, error) {
	var p channel.PlayAtPayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	return "", m.player.PlayAt(p.Index)
}

func (m *Manager) handleSetVolume(ctx context.Context, cmd channel.Command) (string, error) {
	var p channel.SetVolumePayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	return "", m.player.SetVolume(p.Volume)
}

func (m *Manager) handleSeekTo(ctx context.Context, cmd channel.Command) (string, error) {
	var p channel.SeekToPayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	return "", m.player.SeekTo(p.Seconds)
}

func (m *Manager) handleQueueAdd(ctx context.Context, cmd channel.Command) (string, error) {
	var p channel.QueueAddPayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	if p.Track.ID == "" {
		return codeInvalidRequest, errors.New("track id is required")
	}
	q := p.Queue
	if q == "" {
		q = track.QueuePriority
	}
	if !q.Valid() {
		return codeInvalidRequest, errors.Newf("unknown queue %q", q)
	}

	if res := m.policies.Check(ctx, policy.Request{
		Peer:  cmd.OriginPeer,
		Track: p.Track,
		Queue: q,
	}); res.Rejected {
		return res.Code, errors.Newf("rejected by policy (%s)", res.Code)
	}

	return "", m.player.Add(p.Track, q)
}

func (m *Manager) handleQueueShuffle(ctx context.Context, cmd channel.Command) (string, error) {
	var p channel.QueueShufflePayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	return "", m.player.Shuffle(p.KeepCurrent)
}

func (m *Manager) handleQueueMove(ctx context.Context, cmd channel.Command) (string, error) {
	var p channel.QueueMovePayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	return "", m.player.Move(p.From, p.To)
}

func (m *Manager) handleQueueRemove(ctx context.Context, cmd channel.Command) (string, error) {
	var p channel.QueueRemovePayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	q := p.Queue
	if q == "" {
		q = track.QueueActive
	}
	if !q.Valid() {
		return codeInvalidRequest, errors.Newf("unknown queue %q", q)
	}
	if p.Index != nil {
		return "", m.player.RemoveIndex(*p.Index, q)
	}
	if p.TrackID == "" {
		return codeInvalidRequest, errors.New("either index or track id is required")
	}
	return "", m.player.RemoveTrack(p.TrackID, q)
}

func (m *Manager) handleQueueClear(ctx context.Context, cmd channel.Command) (string, error) {
	var p channel.QueueClearPayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	q := p.Queue
	if q == "" {
		q = track.QueueActive
	}
	if !q.Valid() {
		return codeInvalidRequest, errors.Newf("unknown queue %q", q)
	}
	return "", m.player.Clear(q)
}

func (m *Manager) handleLoadPlaylist(ctx context.Context, cmd channel.Command) (string, error) {
	if m.source == nil {
		return codeNotConfigured, errors.New("no playlist source configured")
	}
	var p channel.LoadPlaylistPayload
	if err := cmd.DecodePayload(&p); err != nil {
		return codeInvalidRequest, err
	}
	if p.Locator == "" {
		return codeInvalidRequest, errors.New("playlist locator is required")
	}
	q := p.Queue
	if q == "" {
		q = track.QueueActive
	}
	if !q.Valid() {
		return codeInvalidRequest, errors.Newf("unknown queue %q", q)
	}

	pl, err := m.source.FetchPlaylist(ctx, p.Locator)
	if err != nil {
		return codeSourceError, errors.Wrap(err, "failed to load playlist")
	}
	zlog.Info().Msgf("jukebox: loaded playlist %q: tracks=%d duration=%ds queue=%s",
		pl.Name, len(pl.Tracks), pl.TotalDuration(), q)
	return "", m.player.AddAll(pl.Tracks, q)
}

// errorCode maps orchestrator sentinels to wire rejection codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, player.ErrInvalidIndex):
		return codeInvalidIndex
	case errors.Is(err, player.ErrTrackInUse):
		return codeTrackInUse
	case errors.Is(err, player.ErrTrackNotFound):
		return codeTrackNotFound
	case errors.Is(err, player.ErrQueueEmpty):
		return codeQueueEmpty
	case errors.Is(err, player.ErrNoTrack):
		return codeNoTrack
	case errors.Is(err, player.ErrNotPlaying):
		return codeNotPlaying
	case errors.Is(err, player.ErrNotPaused):
		return codeNotPaused
	case errors.Is(err, player.ErrInvalidVolume), errors.Is(err, player.ErrUnknownQueue):
		return codeInvalidRequest
	default:
		return codeInternal
	}
}
