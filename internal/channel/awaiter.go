package channel

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrResultTimeout is returned when no correlated result arrives within
// the wait window. It is deliberately distinct from an explicit rejection
// (a Result with Success=false), so callers can tell "we don't know what
// happened" apart from "it was refused".
var ErrResultTimeout = errors.New("timed out waiting for command result")

// DefaultAwaitTimeout bounds a blocking command wait.
const DefaultAwaitTimeout = 5 * time.Second

// Awaiter is the peer-side blocking command helper: it publishes a
// command and waits for the result correlated by command ID. It never
// retries; retry policy belongs to the caller.
type Awaiter struct {
	pub     Publisher
	timeout time.Duration

	mu      sync.Mutex
	waiters map[string]chan Result

	stop chan struct{}
	once sync.Once
}

// NewAwaiter wraps a Publisher. A timeout of zero selects the default.
// The awaiter takes ownership of the publisher's Results stream.
func NewAwaiter(pub Publisher, timeout time.Duration) *Awaiter {
	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}
	a := &Awaiter{
		pub:     pub,
		timeout: timeout,
		waiters: make(map[string]chan Result),
		stop:    make(chan struct{}),
	}
	go a.collect()
	return a
}

// Do publishes cmd and blocks until its result, the timeout, or ctx.
func (a *Awaiter) Do(ctx context.Context, cmd Command) (Result, error) {
	ch := make(chan Result, 1)

	a.mu.Lock()
	a.waiters[cmd.ID] = ch
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.waiters, cmd.ID)
		a.mu.Unlock()
	}()

	if err := a.pub.PublishCommand(ctx, cmd); err != nil {
		return Result{}, errors.Wrap(err, "failed to publish command")
	}

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, nil
	case <-timer.C:
		return Result{}, errors.Wrapf(ErrResultTimeout, "command %s (%s)", cmd.ID, cmd.Type)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops the result collector.
func (a *Awaiter) Close() {
	a.once.Do(func() { close(a.stop) })
}

// collect routes incoming results to their waiters. Results nobody is
// waiting for (duplicates, fire-and-forget commands) are dropped.
func (a *Awaiter) collect() {
	for {
		select {
		case <-a.stop:
			return
		case res, ok := <-a.pub.Results():
			if !ok {
				return
			}
			a.mu.Lock()
			ch, waiting := a.waiters[res.CommandID]
			a.mu.Unlock()
			if !waiting {
				zlog.Debug().Msgf("sync: dropping uncorrelated result: command_id=%s", res.CommandID)
				continue
			}
			select {
			case ch <- res:
			default:
				// At-least-once delivery can duplicate a result.
			}
		}
	}
}
