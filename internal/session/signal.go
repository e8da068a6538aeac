// ABOUTME: Signals published by a session to its UI observers
// ABOUTME: Status, merged messages, raw frames, discovery, and session end

package session

import (
	"github.com/2389/chatsync/internal/chat"
	"github.com/2389/chatsync/internal/connection"
	"github.com/2389/chatsync/internal/inbox"
)

// SignalKind identifies a signal.
type SignalKind int

const (
	// SignalStatus: the connection state changed. Status is set; Err is set
	// for failures.
	SignalStatus SignalKind = iota + 1
	// SignalMessage: Message was merged into the open conversation.
	SignalMessage
	// SignalRaw: a frame that is not a chat message arrived. Raw is set.
	SignalRaw
	// SignalIdentity: the current user became known. Identity is set.
	SignalIdentity
	// SignalHistoryLoaded: the open conversation's history was merged.
	SignalHistoryLoaded
	// SignalInbox: a new inbox snapshot was computed. Inbox is set.
	SignalInbox
	// SignalConversationDiscovered: a live message referenced a conversation
	// missing from the last inbox snapshot.
	SignalConversationDiscovered
	// SignalEnded: the session is over. Err is nil after Close and an
	// authentication error otherwise.
	SignalEnded
)

func (k SignalKind) String() string {
	switch k {
	case SignalStatus:
		return "status"
	case SignalMessage:
		return "message"
	case SignalRaw:
		return "raw"
	case SignalIdentity:
		return "identity"
	case SignalHistoryLoaded:
		return "history_loaded"
	case SignalInbox:
		return "inbox"
	case SignalConversationDiscovered:
		return "conversation_discovered"
	case SignalEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Signal is one notification to observers.
type Signal struct {
	Kind           SignalKind
	ConversationID int64
	Status         connection.Status
	Message        *chat.Message
	Raw            []byte
	Identity       *chat.Identity
	Inbox          *inbox.Inbox
	Err            error
}
