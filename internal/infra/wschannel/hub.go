package wschannel

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/venuekit/venuebox/internal/channel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 10 * time.Second

// HubConfig tunes the player-side endpoint.
type HubConfig struct {
	SessionID     string
	PerPeerPerSec float64 // 0 disables the limiter
	Burst         int
}

// Hub is the player side of the sync channel. It implements
// channel.Consumer: inbound command frames from all peers funnel into
// one ordered stream, snapshots fan out latest-wins, and results are
// routed back to the peer that issued the command.
type Hub struct {
	cfg      HubConfig
	commands chan channel.Command

	mu     sync.RWMutex
	peers  map[string]*hubPeer
	latest *channel.Snapshot
	closed bool
}

type hubPeer struct {
	id      string
	conn    *websocket.Conn
	sendMu  sync.Mutex
	snapMu  sync.Mutex
	snap    *channel.Snapshot // Pending snapshot slot, latest-wins
	snapSig chan struct{}
	results chan channel.Result
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

func NewHub(cfg HubConfig) *Hub {
	return &Hub{
		cfg:      cfg,
		commands: make(chan channel.Command, 64),
		peers:    make(map[string]*hubPeer),
	}
}

// Commands implements channel.Consumer.
func (h *Hub) Commands() <-chan channel.Command {
	return h.commands
}

// PublishSnapshot implements channel.SnapshotSink. Each connected peer
// has a single pending slot; an unsent snapshot is replaced, never
// queued.
func (h *Hub) PublishSnapshot(s channel.Snapshot) {
	h.mu.Lock()
	cp := s
	h.latest = &cp
	peers := make([]*hubPeer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.offerSnapshot(s)
	}
}

// PublishResult implements channel.Consumer. Results for disconnected
// peers are dropped; the issuer will time out like any lost delivery.
func (h *Hub) PublishResult(r channel.Result) {
	h.mu.RLock()
	p, ok := h.peers[r.Peer]
	h.mu.RUnlock()
	if !ok {
		zlog.Debug().Msgf("wschannel: dropping result for absent peer: peer=%s command_id=%s", r.Peer, r.CommandID)
		return
	}
	select {
	case p.results <- r:
	default:
		zlog.Warn().Msgf("wschannel: result buffer full, dropping: peer=%s", r.Peer)
	}
}

// ServeWS upgrades one remote connection and pumps it until either side
// closes. Registered at the sync endpoint.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get("peer")
	if peerID == "" {
		http.Error(w, "peer query parameter required", http.StatusBadRequest)
		return
	}
	if sess := r.URL.Query().Get("session"); sess != "" && sess != h.cfg.SessionID {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Error().Msgf("wschannel: upgrade failed: %v", err)
		return
	}

	p := &hubPeer{
		id:      peerID,
		conn:    conn,
		snapSig: make(chan struct{}, 1),
		results: make(chan channel.Result, 16),
		done:    make(chan struct{}),
	}
	if h.cfg.PerPeerPerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(h.cfg.PerPeerPerSec), h.cfg.Burst)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	if old, ok := h.peers[peerID]; ok {
		// A reconnect replaces the stale connection.
		old.shutdown()
	}
	h.peers[peerID] = p
	latest := h.latest
	h.mu.Unlock()

	zlog.Info().Msgf("wschannel: peer connected: peer=%s", peerID)

	// Late joiners get the current state immediately.
	if latest != nil {
		p.offerSnapshot(*latest)
	}

	go h.writeLoop(p)
	h.readLoop(p)

	h.mu.Lock()
	if h.peers[peerID] == p {
		delete(h.peers, peerID)
	}
	h.mu.Unlock()
	p.shutdown()
	zlog.Info().Msgf("wschannel: peer disconnected: peer=%s", peerID)
}

func (h *Hub) readLoop(p *hubPeer) {
	for {
		var env envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zlog.Debug().Msgf("wschannel: read error: peer=%s err=%v", p.id, err)
			}
			return
		}
		if env.Kind != kindCommand || env.Command == nil {
			zlog.Warn().Msgf("wschannel: ignoring non-command frame: peer=%s kind=%s", p.id, env.Kind)
			continue
		}

		cmd := *env.Command
		cmd.OriginPeer = p.id

		if p.limiter != nil && !p.limiter.Allow() {
			h.PublishResult(channel.Result{
				CommandID: cmd.ID,
				Peer:      p.id,
				Success:   false,
				Code:      "rate_limited",
			})
			continue
		}

		select {
		case h.commands <- cmd:
		case <-p.done:
			return
		}
	}
}

func (h *Hub) writeLoop(p *hubPeer) {
	for {
		select {
		case <-p.done:
			return
		case <-p.snapSig:
			p.snapMu.Lock()
			s := p.snap
			p.snap = nil
			p.snapMu.Unlock()
			if s == nil {
				continue
			}
			if err := p.writeJSON(envelope{Kind: kindState, Snapshot: s}); err != nil {
				return
			}
		case r := <-p.results:
			if err := p.writeJSON(envelope{Kind: kindResult, Result: &r}); err != nil {
				return
			}
		}
	}
}

// Close tears down all connections and stops accepting new ones. The
// commands channel stays open; the consumer loop drains what is left.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	peers := make([]*hubPeer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.peers = make(map[string]*hubPeer)
	h.mu.Unlock()

	for _, p := range peers {
		p.shutdown()
	}
}

func (p *hubPeer) offerSnapshot(s channel.Snapshot) {
	p.snapMu.Lock()
	p.snap = &s
	p.snapMu.Unlock()
	select {
	case p.snapSig <- struct{}{}:
	default:
	}
}

func (p *hubPeer) writeJSON(env envelope) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(env)
}

func (p *hubPeer) shutdown() {
	p.once.Do(func() {
		close(p.done)
	})
	p.conn.Close()
}
