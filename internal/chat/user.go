// ABOUTME: User, identity, and conversation summary types
// ABOUTME: ConversationSummary is the joined user x conversation row shown in the inbox

package chat

import "time"

// User is a registered account as returned by the user listing.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Identity is the authenticated user. It must be known before message
// ownership can be computed.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Conversation is a conversation summary as returned by the backend for the
// current user.
type Conversation struct {
	ID          int64      `json:"id"`
	OtherUserID int64      `json:"other_user_id"`
	LastMessage *string    `json:"last_message"`
	UpdatedAt   *Timestamp `json:"updated_at"`
}

// ConversationSummary joins a user with at most one conversation. A summary
// without ConversationID is a placeholder for a user with no conversation yet.
type ConversationSummary struct {
	UserID         int64
	UserName       string
	UserEmail      string
	ConversationID *int64
	LastMessage    string
	UpdatedAt      *time.Time
}

// HasConversation reports whether the summary refers to an existing conversation.
func (s ConversationSummary) HasConversation() bool {
	return s.ConversationID != nil
}
