package wschannel

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/venuekit/venuebox/internal/channel"
)

// ErrClientClosed is returned when publishing on a closed client.
var ErrClientClosed = errors.New("sync client closed")

// Client is the remote side of the sync channel: it dials the player's
// hub and implements channel.Publisher.
type Client struct {
	conn *websocket.Conn

	sendMu sync.Mutex
	snaps  chan channel.Snapshot
	res    chan channel.Result

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a hub at baseURL (http:// or ws:// scheme) as peerID.
func Dial(ctx context.Context, baseURL, sessionID, peerID string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid sync URL")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/sync/ws"
	q := u.Query()
	q.Set("peer", peerID)
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial sync endpoint")
	}

	c := &Client{
		conn:  conn,
		snaps: make(chan channel.Snapshot, 1),
		res:   make(chan channel.Result, 16),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// PublishCommand implements channel.Publisher.
func (c *Client) PublishCommand(ctx context.Context, cmd channel.Command) error {
	select {
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(envelope{Kind: kindCommand, Command: &cmd}); err != nil {
		return errors.Wrap(err, "failed to send command")
	}
	return nil
}

// Snapshots implements channel.Publisher. The buffer holds one entry;
// an unread snapshot is replaced by a newer one.
func (c *Client) Snapshots() <-chan channel.Snapshot {
	return c.snaps
}

// Results implements channel.Publisher.
func (c *Client) Results() <-chan channel.Result {
	return c.res
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case <-c.done:
			default:
				zlog.Debug().Msgf("wschannel: client read error: %v", err)
			}
			return
		}

		switch env.Kind {
		case kindState:
			if env.Snapshot == nil {
				continue
			}
			for {
				select {
				case c.snaps <- *env.Snapshot:
				default:
					// Drop the stale one and retry with the newer.
					select {
					case <-c.snaps:
					default:
					}
					continue
				}
				break
			}
		case kindResult:
			if env.Result == nil {
				continue
			}
			select {
			case c.res <- *env.Result:
			default:
				zlog.Warn().Msg("wschannel: client result buffer full, dropping")
			}
		default:
			zlog.Warn().Msgf("wschannel: client ignoring frame: kind=%s", env.Kind)
		}
	}
}

// Close tears down the connection. The snapshot and result channels
// stay open but go quiet; consumers select on Done to terminate.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
