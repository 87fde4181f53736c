package wschannel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuekit/venuebox/internal/channel"
	"github.com/venuekit/venuebox/internal/domain/track"
)

func startHub(t *testing.T, cfg HubConfig) (*Hub, string) {
	t.Helper()
	hub := NewHub(cfg)
	mux := http.NewServeMux()
	mux.HandleFunc("/sync/ws", hub.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv.URL
}

func dial(t *testing.T, baseURL, peerID string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), baseURL, "test", peerID)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestHub_CommandRoundTrip(t *testing.T) {
	hub, url := startHub(t, HubConfig{SessionID: "test"})
	client := dial(t, url, "kiosk-1")

	cmd, err := channel.NewCommand(channel.TypeQueueAdd, "kiosk-1", channel.QueueAddPayload{
		Track: track.Track{ID: "t1", Title: "Over The Wire"},
		Queue: track.QueuePriority,
	})
	require.NoError(t, err)
	require.NoError(t, client.PublishCommand(context.Background(), cmd))

	select {
	case got := <-hub.Commands():
		assert.Equal(t, cmd.ID, got.ID)
		assert.Equal(t, channel.TypeQueueAdd, got.Type)
		// The hub stamps the authenticated peer, whatever the frame said.
		assert.Equal(t, "kiosk-1", got.OriginPeer)

		var p channel.QueueAddPayload
		require.NoError(t, got.DecodePayload(&p))
		assert.Equal(t, "t1", p.Track.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("command did not reach the hub")
	}
}

func TestHub_ResultRoutedToIssuer(t *testing.T) {
	hub, url := startHub(t, HubConfig{SessionID: "test"})
	issuer := dial(t, url, "kiosk-1")
	other := dial(t, url, "kiosk-2")

	// Connections register on the first served request; publish until
	// the issuer is attached.
	require.Eventually(t, func() bool {
		hub.PublishResult(channel.Result{CommandID: "c1", Peer: "kiosk-1", Success: true})
		select {
		case res := <-issuer.Results():
			return res.CommandID == "c1"
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case res := <-other.Results():
		t.Fatalf("result leaked to wrong peer: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_SnapshotFanOutAndLateJoiner(t *testing.T) {
	hub, url := startHub(t, HubConfig{SessionID: "test"})
	first := dial(t, url, "kiosk-1")

	hub.PublishSnapshot(channel.Snapshot{SessionID: "test", Revision: 3})

	waitSnapshot := func(c *Client, minRev uint64) channel.Snapshot {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case s := <-c.Snapshots():
				if s.Revision >= minRev {
					return s
				}
			case <-deadline:
				t.Fatal("snapshot not delivered")
			}
		}
	}

	assert.Equal(t, uint64(3), waitSnapshot(first, 3).Revision)

	// A peer connecting after the fact converges on the cached snapshot.
	late := dial(t, url, "kiosk-2")
	assert.Equal(t, uint64(3), waitSnapshot(late, 3).Revision)
}

func TestHub_RateLimitRejects(t *testing.T) {
	hub, url := startHub(t, HubConfig{SessionID: "test", PerPeerPerSec: 1, Burst: 1})
	client := dial(t, url, "kiosk-1")
	ctx := context.Background()

	// Burst of commands; the limiter admits the first and rejects the
	// rest with an explicit result.
	for i := 0; i < 3; i++ {
		cmd, err := channel.NewCommand(channel.TypeSkip, "kiosk-1", nil)
		require.NoError(t, err)
		require.NoError(t, client.PublishCommand(ctx, cmd))
	}

	select {
	case <-hub.Commands():
	case <-time.After(2 * time.Second):
		t.Fatal("first command not admitted")
	}

	select {
	case res := <-client.Results():
		assert.False(t, res.Success)
		assert.Equal(t, "rate_limited", res.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("rate limit rejection not delivered")
	}
}

func TestHub_RejectsUnknownSession(t *testing.T) {
	_, url := startHub(t, HubConfig{SessionID: "test"})

	_, err := Dial(context.Background(), url, "other-session", "kiosk-1")
	assert.Error(t, err)
}

func TestHub_RequiresPeerID(t *testing.T) {
	hub := NewHub(HubConfig{SessionID: "test"})
	defer hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/sync/ws", nil)
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
