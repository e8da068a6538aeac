// ABOUTME: Events emitted on the manager's single consumable event channel
// ABOUTME: One goroutine emits every event, so order across kinds is preserved

package connection

import (
	"time"

	"github.com/2389/chatsync/internal/chat"
)

// EventKind identifies the kind of a connection event.
type EventKind int

const (
	// EventOpened: the transport handshake completed.
	EventOpened EventKind = iota + 1
	// EventMessage: a frame arrived. Message is nil when the frame was not a
	// chat message; Raw always carries the payload.
	EventMessage
	// EventClosed: the remote closed the connection with Code and Reason.
	EventClosed
	// EventError: the connection failed without a close handshake.
	EventError
	// EventReconnecting: a retry is scheduled after Delay.
	EventReconnecting
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	case EventReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Event is a single connection event.
type Event struct {
	Kind EventKind

	// EventMessage
	Message *chat.Message
	Raw     []byte

	// EventClosed
	Code   int
	Reason string

	// EventClosed, EventError, EventReconnecting, and malformed EventMessage
	Err error

	// EventReconnecting
	Attempt int
	Delay   time.Duration
}
