// ABOUTME: Conversation listing, creation, and message history operations
// ABOUTME: History is returned in the backend's order and never resequenced

package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/2389/chatsync/internal/chat"
)

// Conversations lists the caller's conversations.
func (c *Client) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	var conversations []chat.Conversation
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/conversations",
		authed:   true,
		fallback: "Failed to fetch conversations",
	}, &conversations)
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

type createConversationRequest struct {
	User2ID int64 `json:"user2_id"`
}

type createConversationResponse struct {
	ConversationID int64 `json:"conversation_id"`
}

// CreateConversation starts a conversation with peerID and returns its id.
func (c *Client) CreateConversation(ctx context.Context, peerID int64) (int64, error) {
	var resp createConversationResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/conversations",
		authed:   true,
		body:     createConversationRequest{User2ID: peerID},
		fallback: "Failed to create conversation",
	}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.ConversationID <= 0 {
		return 0, fmt.Errorf("create conversation: response has no conversation_id")
	}
	return resp.ConversationID, nil
}

// Messages returns the message history of a conversation.
func (c *Client) Messages(ctx context.Context, conversationID int64) ([]chat.Message, error) {
	var messages []chat.Message
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/conversations/%d/messages", conversationID),
		authed:   true,
		fallback: "Failed to fetch messages",
	}, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}
