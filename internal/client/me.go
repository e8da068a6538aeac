// ABOUTME: Identity and user listing operations
// ABOUTME: GET /users/me and GET /users

package client

import (
	"context"
	"net/http"

	"github.com/2389/chatsync/internal/chat"
)

// Me returns the authenticated user's identity.
func (c *Client) Me(ctx context.Context) (*chat.Identity, error) {
	var identity chat.Identity
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/users/me",
		authed:   true,
		fallback: "Failed to fetch current user",
	}, &identity)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// Users lists every registered user, including the caller.
func (c *Client) Users(ctx context.Context) ([]chat.User, error) {
	var users []chat.User
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/users",
		authed:   true,
		fallback: "Failed to fetch users",
	}, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}
