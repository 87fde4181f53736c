package dispatch

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuekit/venuebox/internal/channel"
)

func countingHandler(n *int) Handler {
	return func(ctx context.Context, cmd channel.Command) (string, error) {
		*n++
		return "", nil
	}
}

func TestDispatcher_RegisterIsIdempotent(t *testing.T) {
	d := New()

	var first, second int
	assert.True(t, d.Register("s1", map[channel.Type]Handler{
		channel.TypeSkip: countingHandler(&first),
	}))
	// Second registration for the same session must not replace handlers.
	assert.False(t, d.Register("s1", map[channel.Type]Handler{
		channel.TypeSkip: countingHandler(&second),
	}))

	out := d.Dispatch(context.Background(), channel.Command{ID: "c1", Type: channel.TypeSkip})
	require.NotNil(t, out)
	assert.Equal(t, 1, first)
	assert.Zero(t, second)
}

func TestDispatcher_SwitchSessionClearsHandlers(t *testing.T) {
	d := New()

	var calls int
	require.True(t, d.Register("s1", map[channel.Type]Handler{
		channel.TypeSkip: countingHandler(&calls),
	}))

	d.SwitchSession("s2")
	assert.Equal(t, "s2", d.SessionID())

	// Old handlers are gone until the new session registers.
	out := d.Dispatch(context.Background(), channel.Command{ID: "c1", Type: channel.TypeSkip})
	assert.Nil(t, out)
	assert.Zero(t, calls)

	assert.True(t, d.Register("s2", map[channel.Type]Handler{
		channel.TypeSkip: countingHandler(&calls),
	}))
	out = d.Dispatch(context.Background(), channel.Command{ID: "c2", Type: channel.TypeSkip})
	require.NotNil(t, out)
	assert.Equal(t, 1, calls)
}

func TestDispatcher_UnknownTypeDropped(t *testing.T) {
	d := New()
	require.True(t, d.Register("s1", map[channel.Type]Handler{}))

	out := d.Dispatch(context.Background(), channel.Command{ID: "c1", Type: channel.Type("no_such")})
	assert.Nil(t, out)
}

func TestDispatcher_HandlerOutcome(t *testing.T) {
	d := New()
	boom := errors.New("boom")
	require.True(t, d.Register("s1", map[channel.Type]Handler{
		channel.TypePause: func(ctx context.Context, cmd channel.Command) (string, error) {
			return "not_playing", boom
		},
	}))

	out := d.Dispatch(context.Background(), channel.Command{ID: "c1", Type: channel.TypePause})
	require.NotNil(t, out)
	assert.Equal(t, "not_playing", out.Code)
	assert.True(t, errors.Is(out.Err, boom))
}
