// Package wschannel carries the command channel over websockets. The
// player side runs a Hub; remotes dial in with a Client. Frames are JSON
// envelopes tagged with a kind, one message per frame.
package wschannel

import (
	"github.com/venuekit/venuebox/internal/channel"
)

// Frame kinds.
const (
	kindCommand = "command"
	kindState   = "state"
	kindResult  = "result"
)

type envelope struct {
	Kind     string            `json:"kind"`
	Command  *channel.Command  `json:"command,omitempty"`
	Snapshot *channel.Snapshot `json:"state,omitempty"`
	Result   *channel.Result   `json:"result,omitempty"`
}
