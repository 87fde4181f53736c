package channel

import "context"

// Consumer is the orchestrator-facing side of the channel: a stream of
// inbound commands plus outbound publication of snapshots and results.
type Consumer interface {
	SnapshotSink

	// Commands returns the inbound command stream. Delivery is
	// at-least-once; ordering is FIFO per publishing peer only.
	Commands() <-chan Command

	// PublishResult routes a result to the command's origin peer.
	// Best-effort; results for departed peers are dropped.
	PublishResult(Result)
}

// Publisher is the peer-facing side of the channel.
type Publisher interface {
	// PublishCommand submits a command addressed to the orchestrator
	// session this publisher is bound to.
	PublishCommand(ctx context.Context, cmd Command) error

	// Snapshots returns the snapshot stream for this peer. Latest-wins:
	// a slow reader observes the newest snapshot, not every intermediate.
	Snapshots() <-chan Snapshot

	// Results returns results addressed to this peer.
	Results() <-chan Result
}
