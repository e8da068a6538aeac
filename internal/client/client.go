// ABOUTME: HTTP client for the chat backend's request/response operations
// ABOUTME: Maps 401 to AuthenticationRejected and transport failures to transient errors

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/2389/chatsync/internal/auth"
	"github.com/2389/chatsync/internal/syncerr"
)

const (
	defaultTimeout = 10 * time.Second
	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10

	unauthorizedReason = "Unauthorized"
)

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Tokens     auth.TokenSource
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the backend's REST API.
type Client struct {
	baseURL string
	tokens  auth.TokenSource
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client. A nil token source means every authenticated call
// fails with CredentialMissing.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = auth.StaticToken("")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		tokens:  tokens,
		http:    httpClient,
		logger:  logger.With("component", "client"),
	}
}

// request describes one call. fallback is the detail used when a failed
// response carries none.
type request struct {
	method   string
	path     string
	authed   bool
	body     any
	fallback string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	if r.authed {
		token := c.tokens.Token()
		if token == "" {
			return syncerr.CredentialMissing()
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", r.method, r.path, ctxErr)
		}
		return syncerr.Transient(fmt.Sprintf("%s %s failed", r.method, r.path), err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp, r.fallback)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// handleErrorResponse extracts the detail of a failed response.
func (c *Client) handleErrorResponse(resp *http.Response, fallback string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := errorDetail(data)

	if resp.StatusCode == http.StatusUnauthorized {
		if detail == "" {
			detail = unauthorizedReason
		}
		return syncerr.AuthenticationRejected(detail)
	}

	if detail == "" {
		detail = fallback
	}
	return &StatusError{StatusCode: resp.StatusCode, Detail: detail}
}

// errorDetail reads {"detail": "..."} or a validation error list
// {"detail": [{"msg": "..."}]}.
func errorDetail(data []byte) string {
	if !gjson.ValidBytes(data) {
		return ""
	}
	detail := gjson.GetBytes(data, "detail")
	switch {
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		var msgs []string
		for _, item := range detail.Array() {
			if msg := item.Get("msg"); msg.Type == gjson.String {
				msgs = append(msgs, msg.String())
			}
		}
		return strings.Join(msgs, "; ")
	default:
		return ""
	}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
