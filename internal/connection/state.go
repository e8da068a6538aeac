// ABOUTME: Connection state machine states and the status snapshot exposed to consumers
// ABOUTME: Exactly one Status exists per Manager; transitions happen under the manager lock

package connection

import (
	"errors"

	"github.com/2389/chatsync/internal/syncerr"
)

// State is a connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the connection state. Code and Reason are set for
// StateClosed; Reason and Err are set for StateErrored. Attempt counts
// reconnect attempts since the last successful open.
type Status struct {
	State   State
	Code    int
	Reason  string
	Err     error
	Attempt int
}

// Connected reports whether sends are currently accepted.
func (s Status) Connected() bool {
	return s.State == StateConnected
}

// AuthFailed reports whether the status was caused by a rejected or missing credential.
func (s Status) AuthFailed() bool {
	return syncerr.EndsSession(s.Err)
}

// Reconnecting reports whether a transient failure is being retried.
func (s Status) Reconnecting() bool {
	return s.State == StateConnecting && s.Attempt > 0
}

// Transient reports whether the status was caused by a recoverable failure.
func (s Status) Transient() bool {
	return errors.Is(s.Err, syncerr.ErrTransientConnectivity)
}
