// ABOUTME: Conversation aggregator joining users with conversation summaries
// ABOUTME: Pure function of fetched snapshots; orders by recency then name

// Package inbox derives the ordered conversation list from REST snapshots.
package inbox

import (
	"cmp"
	"slices"
	"strings"

	"github.com/2389/chatsync/internal/chat"
)

// Inbox is one computed snapshot. All is used for contact selection; Active
// holds only entries with an existing conversation. Both share one ordering.
type Inbox struct {
	All    []chat.ConversationSummary
	Active []chat.ConversationSummary
}

// Aggregate joins every user except currentUserID with at most one
// conversation whose OtherUserID matches, then orders the result:
// entries with UpdatedAt first, newest first; the rest by name,
// case-insensitively. Ties keep input order.
func Aggregate(users []chat.User, conversations []chat.Conversation, currentUserID int64) Inbox {
	byPeer := make(map[int64]chat.Conversation, len(conversations))
	for _, c := range conversations {
		if _, seen := byPeer[c.OtherUserID]; !seen {
			byPeer[c.OtherUserID] = c
		}
	}

	all := make([]chat.ConversationSummary, 0, len(users))
	for _, u := range users {
		if u.ID == currentUserID {
			continue
		}
		summary := chat.ConversationSummary{
			UserID:    u.ID,
			UserName:  u.Name,
			UserEmail: u.Email,
		}
		if c, ok := byPeer[u.ID]; ok {
			id := c.ID
			summary.ConversationID = &id
			if c.LastMessage != nil {
				summary.LastMessage = *c.LastMessage
			}
			if c.UpdatedAt != nil && !c.UpdatedAt.IsZero() {
				at := c.UpdatedAt.Time
				summary.UpdatedAt = &at
			}
		}
		all = append(all, summary)
	}

	slices.SortStableFunc(all, compare)

	active := make([]chat.ConversationSummary, 0, len(all))
	for _, s := range all {
		if s.HasConversation() {
			active = append(active, s)
		}
	}

	return Inbox{All: all, Active: active}
}

func compare(a, b chat.ConversationSummary) int {
	switch {
	case a.UpdatedAt != nil && b.UpdatedAt != nil:
		return b.UpdatedAt.Compare(*a.UpdatedAt)
	case a.UpdatedAt != nil:
		return -1
	case b.UpdatedAt != nil:
		return 1
	default:
		return cmp.Compare(strings.ToLower(a.UserName), strings.ToLower(b.UserName))
	}
}

// ConversationWith returns the summary for a peer user.
func (in Inbox) ConversationWith(userID int64) (chat.ConversationSummary, bool) {
	for _, s := range in.All {
		if s.UserID == userID {
			return s, true
		}
	}
	return chat.ConversationSummary{}, false
}

// Conversation returns the active summary with the given conversation id.
func (in Inbox) Conversation(conversationID int64) (chat.ConversationSummary, bool) {
	for _, s := range in.Active {
		if *s.ConversationID == conversationID {
			return s, true
		}
	}
	return chat.ConversationSummary{}, false
}

// Knows reports whether the conversation id appears in the snapshot.
func (in Inbox) Knows(conversationID int64) bool {
	_, ok := in.Conversation(conversationID)
	return ok
}
