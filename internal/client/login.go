// ABOUTME: Unauthenticated account operations: login and registration
// ABOUTME: Login yields the bearer token that token sources later supply

package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/2389/chatsync/internal/chat"
)

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration are the registration form fields.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the login result.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	var tok TokenResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     creds,
		fallback: "Login failed",
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("login response has no access_token")
	}
	return &tok, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg Registration) (*chat.User, error) {
	var user chat.User
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     reg,
		fallback: "Register failed",
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
