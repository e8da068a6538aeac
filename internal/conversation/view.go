// ABOUTME: Reconciliation of a conversation's history with its live message stream
// ABOUTME: Deduplicates by message id, keeps arrival order, derives ownership from identity

package conversation

import (
	"errors"

	"github.com/2389/chatsync/internal/chat"
)

// DefaultTitle is shown when no message from another participant is known.
const DefaultTitle = "Chat"

// ErrAlreadyLoaded is returned when history is loaded into a view twice.
var ErrAlreadyLoaded = errors.New("history already loaded")

// View is the merged message sequence of the currently open conversation.
//
// A View has a single writer. It is not safe for concurrent use; the owning
// session serializes Load, Merge, and SetIdentity.
type View struct {
	conversationID int64
	messages       []chat.Message
	index          map[int64]int
	identity       *chat.Identity
	loaded         bool
}

// NewView returns an empty view for the given conversation.
func NewView(conversationID int64) *View {
	return &View{
		conversationID: conversationID,
		index:          make(map[int64]int),
	}
}

// ConversationID returns the conversation this view belongs to.
func (v *View) ConversationID() int64 {
	return v.conversationID
}

// Loaded reports whether history has been loaded.
func (v *View) Loaded() bool {
	return v.loaded
}

// Load installs the historical messages as the base sequence, in the order the
// source returned them. Live messages merged before Load that are not part of
// the history are kept, in arrival order, after the base.
func (v *View) Load(history []chat.Message) error {
	if v.loaded {
		return ErrAlreadyLoaded
	}

	pending := v.messages
	v.messages = make([]chat.Message, 0, len(history)+len(pending))
	v.index = make(map[int64]int, len(history)+len(pending))

	for _, msg := range history {
		v.add(msg)
	}
	for _, msg := range pending {
		v.add(msg)
	}
	v.loaded = true
	return nil
}

// Merge appends an incoming live message. It is a no-op, returning false, when
// the message belongs to another conversation or its id is already present.
func (v *View) Merge(msg chat.Message) bool {
	return v.add(msg)
}

func (v *View) add(msg chat.Message) bool {
	if msg.ConversationID != v.conversationID {
		return false
	}
	if _, dup := v.index[msg.ID]; dup {
		return false
	}
	v.index[msg.ID] = len(v.messages)
	v.messages = append(v.messages, msg.WithOwner(v.identity))
	return true
}

// SetIdentity records the current user and recomputes ownership of every
// stored message. Calling it again, with the same or another identity, is safe.
func (v *View) SetIdentity(identity *chat.Identity) {
	if identity != nil {
		id := *identity
		identity = &id
	}
	v.identity = identity
	for i := range v.messages {
		v.messages[i] = v.messages[i].WithOwner(identity)
	}
}

// Identity returns the identity ownership is computed against, or nil.
func (v *View) Identity() *chat.Identity {
	return v.identity
}

// Messages returns a copy of the merged sequence.
func (v *View) Messages() []chat.Message {
	out := make([]chat.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Len returns the number of merged messages.
func (v *View) Len() int {
	return len(v.messages)
}

// Contains reports whether a message id is part of the view.
func (v *View) Contains(id int64) bool {
	_, ok := v.index[id]
	return ok
}

// Title is the sender name of the first message not sent by the current user.
func (v *View) Title() string {
	for _, msg := range v.messages {
		if !msg.IsOwn && msg.SenderName != "" {
			return msg.SenderName
		}
	}
	return DefaultTitle
}
