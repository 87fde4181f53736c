// Package channel defines the realtime sync seam between the orchestrator
// and its remote peers: the Command and CommandResult shapes, the PlayerState
// snapshot that is broadcast after every accepted mutation, and the abstract
// pub/sub contract both sides are written against.
//
// Delivery guarantees carried by every implementation: inbound commands are
// at-least-once with FIFO ordering per publishing peer (never globally);
// outbound snapshots are best-effort and latest-wins, so observers may miss
// intermediate snapshots but eventually see the newest one.
package channel

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/venuekit/venuebox/internal/domain/track"
)

// Type identifies a command kind. Unknown types are logged and dropped by
// the receiving orchestrator, never fatal.
type Type string

const (
	TypePlay         Type = "play"
	TypePause        Type = "pause"
	TypeResume       Type = "resume"
	TypeSkip         Type = "skip"
	TypeSetVolume    Type = "setVolume"
	TypeSeekTo       Type = "seekTo"
	TypePlayAt       Type = "playAt"
	TypeQueueAdd     Type = "queue_add"
	TypeQueueShuffle Type = "queue_shuffle"
	TypeQueueMove    Type = "queue_move"
	TypeQueueRemove  Type = "queue_remove"
	TypeQueueClear   Type = "queue_clear"
	TypeLoadPlaylist Type = "load_playlist"
)

// Command is a mutation request issued by a remote peer. Commands are
// immutable once issued; the ID correlates the eventual CommandResult.
type Command struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Payload    map[string]any `json:"payload,omitempty"`
	OriginPeer string         `json:"origin_peer"`
	IssuedAt   time.Time      `json:"issued_at"`
}

// NewCommand builds a command with a fresh ID. The payload struct is
// flattened into the generic map form that survives the wire.
func NewCommand(t Type, originPeer string, payload any) (Command, error) {
	cmd := Command{
		ID:         uuid.New().String(),
		Type:       t,
		OriginPeer: originPeer,
		IssuedAt:   time.Now(),
	}
	if payload == nil {
		return cmd, nil
	}

	out := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return Command{}, errors.Wrap(err, "failed to build payload encoder")
	}
	if err := dec.Decode(payload); err != nil {
		return Command{}, errors.Wrap(err, "failed to encode command payload")
	}
	cmd.Payload = out
	return cmd, nil
}

// DecodePayload decodes the generic payload map into a typed payload struct.
// Numbers arrive as float64 after a JSON hop, so decoding is weakly typed.
func (c Command) DecodePayload(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to build payload decoder")
	}
	if err := dec.Decode(c.Payload); err != nil {
		return errors.Wrapf(err, "malformed %s payload", c.Type)
	}
	return nil
}

// Result reports the outcome of exactly one command back to its origin peer.
type Result struct {
	CommandID string `json:"command_id"`
	Peer      string `json:"peer"` // Origin peer the result is routed to
	Success   bool   `json:"success"`
	Code      string `json:"code,omitempty"`  // Machine-readable rejection code
	Error     string `json:"error,omitempty"` // Human-readable detail
}

// Payload shapes, one fixed shape per command type.

// PlayAtPayload selects an active-queue entry by index.
type PlayAtPayload struct {
	Index int `json:"index"`
}

// SetVolumePayload carries a volume in the range 0..1.
type SetVolumePayload struct {
	Volume float64 `json:"volume"`
}

// SeekToPayload carries an absolute position in seconds.
type SeekToPayload struct {
	Seconds float64 `json:"seconds"`
}

// QueueAddPayload appends a track to the named queue.
type QueueAddPayload struct {
	Track track.Track     `json:"track"`
	Queue track.QueueType `json:"queue"`
}

// QueueShufflePayload permutes the active queue.
type QueueShufflePayload struct {
	KeepCurrent bool `json:"keep_current"`
}

// QueueMovePayload relocates an active-queue entry.
type QueueMovePayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// QueueRemovePayload removes a queue entry by track ID, or by index when
// Index is non-nil (index takes precedence).
type QueueRemovePayload struct {
	TrackID string          `json:"track_id,omitempty"`
	Index   *int            `json:"index,omitempty"`
	Queue   track.QueueType `json:"queue"`
}

// QueueClearPayload empties the named queue.
type QueueClearPayload struct {
	Queue track.QueueType `json:"queue"`
}

// LoadPlaylistPayload resolves an external playlist and appends its tracks.
type LoadPlaylistPayload struct {
	Locator string          `json:"locator"` // Playlist URL, URI or ID
	Queue   track.QueueType `json:"queue"`
}
