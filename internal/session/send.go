// ABOUTME: Send path from typed text to an outbound frame on the live connection
// ABOUTME: The open view is never mutated here; sent messages return through the stream

package session

import (
	"context"
	"errors"
	"strings"

	"github.com/2389/chatsync/internal/chat"
	"github.com/2389/chatsync/internal/syncerr"
)

// ErrEmptyMessage is returned for blank text. Nothing is sent.
var ErrEmptyMessage = errors.New("message is empty")

// Send writes text to the open conversation. It fails with ErrEmptyMessage
// for whitespace-only text and with a SendRejected error when no
// conversation is open or the connection is not connected.
func (s *Session) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	var conversationID int64
	if s.view != nil {
		conversationID = s.view.ConversationID()
	}
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return syncerr.New(syncerr.KindSendRejected, "session closed", ErrClosed)
	}
	if conversationID == 0 {
		s.logger.Warn("send rejected", "reason", "no open conversation")
		return syncerr.New(syncerr.KindSendRejected, "no open conversation", nil)
	}

	payload, err := chat.Outbound{ConversationID: conversationID, Text: text}.Encode()
	if err != nil {
		return err
	}
	return s.conn.Send(ctx, payload)
}
