package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CommandOrderPerPeer(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()

	pub := mem.Connect("kiosk-1")
	ctx := context.Background()

	for _, typ := range []Type{TypePlay, TypePause, TypeSkip} {
		cmd, err := NewCommand(typ, "kiosk-1", nil)
		require.NoError(t, err)
		require.NoError(t, pub.PublishCommand(ctx, cmd))
	}

	var got []Type
	for i := 0; i < 3; i++ {
		select {
		case cmd := <-mem.Commands():
			got = append(got, cmd.Type)
		case <-time.After(time.Second):
			t.Fatal("command not delivered")
		}
	}
	assert.Equal(t, []Type{TypePlay, TypePause, TypeSkip}, got)
}

func TestMemory_SnapshotLatestWins(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()

	pub := mem.Connect("admin")

	// Publish a burst without the peer draining; only the newest must
	// remain observable.
	for rev := uint64(1); rev <= 5; rev++ {
		mem.PublishSnapshot(Snapshot{SessionID: "s", Revision: rev})
	}

	select {
	case s := <-pub.Snapshots():
		assert.Equal(t, uint64(5), s.Revision)
	case <-time.After(time.Second):
		t.Fatal("snapshot not delivered")
	}
}

func TestMemory_LateJoinerGetsLatestSnapshot(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()

	mem.PublishSnapshot(Snapshot{SessionID: "s", Revision: 7})

	pub := mem.Connect("late")
	select {
	case s := <-pub.Snapshots():
		assert.Equal(t, uint64(7), s.Revision)
	case <-time.After(time.Second):
		t.Fatal("late joiner did not converge")
	}
}

func TestMemory_ResultRoutedToOriginPeerOnly(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()

	origin := mem.Connect("kiosk-1")
	other := mem.Connect("kiosk-2")

	mem.PublishResult(Result{CommandID: "c1", Peer: "kiosk-1", Success: true})

	select {
	case res := <-origin.Results():
		assert.Equal(t, "c1", res.CommandID)
		assert.True(t, res.Success)
	case <-time.After(time.Second):
		t.Fatal("result not delivered to origin peer")
	}

	select {
	case res := <-other.Results():
		t.Fatalf("result leaked to wrong peer: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemory_PublishAfterClose(t *testing.T) {
	mem := NewMemory()
	pub := mem.Connect("kiosk-1")
	mem.Close()

	cmd, err := NewCommand(TypeSkip, "kiosk-1", nil)
	require.NoError(t, err)
	err = pub.PublishCommand(context.Background(), cmd)
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestCommand_PayloadRoundTrip(t *testing.T) {
	cmd, err := NewCommand(TypeQueueMove, "admin", QueueMovePayload{From: 2, To: 0})
	require.NoError(t, err)
	require.NotEmpty(t, cmd.ID)

	// Simulate the JSON hop: integers arrive as float64.
	cmd.Payload["from"] = float64(2)
	cmd.Payload["to"] = float64(0)

	var got QueueMovePayload
	require.NoError(t, cmd.DecodePayload(&got))
	assert.Equal(t, 2, got.From)
	assert.Equal(t, 0, got.To)
}
