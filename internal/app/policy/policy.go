// Package policy screens queue additions before they reach the player.
// Policies are house rules a venue can toggle per deployment, evaluated
// in order; the first rejection wins.
package policy

import (
	"context"

	"github.com/venuekit/venuebox/internal/domain/track"
)

// Rejection codes returned to the issuing peer.
const (
	CodeDuplicateTrack = "duplicate_track"
	CodeQueueFull      = "queue_full"
)

// Request is one proposed queue addition.
type Request struct {
	Peer  string
	Track track.Track
	Queue track.QueueType
}

// Result is a policy verdict. A zero Result is an acceptance.
type Result struct {
	Rejected bool
	Code     string
}

func Accept() Result {
	return Result{}
}

func Reject(code string) Result {
	return Result{Rejected: true, Code: code}
}

// Policy evaluates one request against one house rule.
type Policy interface {
	Name() string
	Check(ctx context.Context, req Request) Result
}
