package channel

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrChannelClosed is returned when publishing on a closed channel.
var ErrChannelClosed = errors.New("channel is closed")

const commandBufferSize = 64

// Memory is an in-process Channel implementation with the same delivery
// guarantees as the wire transport: per-peer FIFO for commands,
// latest-wins snapshots per subscriber. It backs the orchestrator's own
// loopback peers and the test suite.
type Memory struct {
	mu       sync.RWMutex
	commands chan Command
	peers    map[string]*memPeer
	latest   *Snapshot
	closed   bool
}

type memPeer struct {
	id     string
	mem    *Memory
	snapCh chan Snapshot
	resCh  chan Result
}

// NewMemory creates an in-memory channel.
func NewMemory() *Memory {
	return &Memory{
		commands: make(chan Command, commandBufferSize),
		peers:    make(map[string]*memPeer),
	}
}

// Commands implements Consumer.
func (m *Memory) Commands() <-chan Command {
	return m.commands
}

// PublishSnapshot implements Consumer. Every connected peer observes the
// snapshot; a peer that has not drained its previous one only sees the
// newest (latest-wins).
func (m *Memory) PublishSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.latest = &s
	for _, p := range m.peers {
		p.offerSnapshot(s)
	}
}

// PublishResult implements Consumer.
func (m *Memory) PublishResult(r Result) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.peers[r.Peer]
	if !ok {
		return
	}
	select {
	case p.resCh <- r:
	default:
		// Peer is not draining results; drop rather than block.
	}
}

// Connect registers a peer and returns its Publisher side. The latest
// snapshot, if any, is delivered immediately so a late joiner converges.
func (m *Memory) Connect(peerID string) Publisher {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &memPeer{
		id:     peerID,
		mem:    m,
		snapCh: make(chan Snapshot, 1),
		resCh:  make(chan Result, 16),
	}
	m.peers[peerID] = p
	if m.latest != nil {
		p.offerSnapshot(*m.latest)
	}
	return p
}

// Disconnect removes a peer. Pending results for it are discarded.
func (m *Memory) Disconnect(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, peerID)
}

// Close tears the channel down. Subsequent publishes fail or no-op.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.commands)
	m.peers = make(map[string]*memPeer)
}

// PublishCommand implements Publisher. The read lock is held across the
// send so Close cannot close the command stream mid-publish.
func (p *memPeer) PublishCommand(ctx context.Context, cmd Command) error {
	p.mem.mu.RLock()
	defer p.mem.mu.RUnlock()
	if p.mem.closed {
		return ErrChannelClosed
	}

	select {
	case p.mem.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshots implements Publisher.
func (p *memPeer) Snapshots() <-chan Snapshot {
	return p.snapCh
}

// Results implements Publisher.
func (p *memPeer) Results() <-chan Result {
	return p.resCh
}

// offerSnapshot replaces any undelivered snapshot with the newer one.
func (p *memPeer) offerSnapshot(s Snapshot) {
	for {
		select {
		case p.snapCh <- s:
			return
		default:
		}
		select {
		case <-p.snapCh:
		default:
		}
	}
}
