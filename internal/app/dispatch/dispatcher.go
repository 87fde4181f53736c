// Package dispatch routes inbound channel commands to the handlers
// registered for the current session.
package dispatch

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/venuekit/venuebox/internal/channel"
)

// Handler executes one command and returns a rejection code or an error.
// An empty code with a nil error means the command was accepted.
type Handler func(ctx context.Context, cmd channel.Command) (code string, err error)

// Outcome is the dispatch verdict for one command. Dropped commands
// (unknown type, no registration) produce no outcome at all, so callers
// waiting on a result fall through to their timeout.
type Outcome struct {
	Code string
	Err  error
}

// Dispatcher owns the command handler table for a single session.
// Dispatch calls are serialized, so handlers observe one command at a
// time in the order the channel delivered them.
type Dispatcher struct {
	mu        sync.Mutex
	sessionID string
	handlers  map[channel.Type]Handler
}

func New() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[channel.Type]Handler),
	}
}

// Register installs the handler table for sessionID. Re-registering the
// same session is a no-op so reconnect paths can call it blindly; it
// reports whether the table was installed.
func (d *Dispatcher) Register(sessionID string, handlers map[channel.Type]Handler) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sessionID == sessionID && len(d.handlers) > 0 {
		zlog.Debug().Msgf("dispatch: session %s already registered", sessionID)
		return false
	}

	d.sessionID = sessionID
	d.handlers = make(map[channel.Type]Handler, len(handlers))
	for t, h := range handlers {
		d.handlers[t] = h
	}
	zlog.Info().Msgf("dispatch: registered %d handlers for session %s", len(handlers), sessionID)
	return true
}

// SwitchSession clears the handler table and rebinds the dispatcher to a
// new session identity. A following Register for the new session
// installs fresh handlers.
func (d *Dispatcher) SwitchSession(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sessionID = sessionID
	d.handlers = make(map[channel.Type]Handler)
	zlog.Info().Msgf("dispatch: switched to session %s, handlers cleared", sessionID)
}

// SessionID returns the currently bound session identity.
func (d *Dispatcher) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// Dispatch runs the handler for cmd and returns its outcome. Commands
// with no matching handler are logged and dropped, returning nil.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd channel.Command) *Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, ok := d.handlers[cmd.Type]
	if !ok {
		zlog.Warn().Msgf("dispatch: dropping command with no handler: type=%s id=%s peer=%s",
			cmd.Type, cmd.ID, cmd.OriginPeer)
		return nil
	}

	code, err := h(ctx, cmd)
	return &Outcome{Code: code, Err: err}
}
