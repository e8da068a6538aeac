// ABOUTME: Tests for markdown flattening, transcript grouping, and time/status formatting
// ABOUTME: Colors are disabled so output is compared as plain text

package render

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/2389/chatsync/internal/chat"
	"github.com/2389/chatsync/internal/connection"
	"github.com/2389/chatsync/internal/syncerr"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "emphasis", in: "hello **world** and _you_", want: "hello world and you"},
		{name: "link", in: "see [docs](https://example.com)", want: "see docs (https://example.com)"},
		{name: "autolink", in: "<https://example.com>", want: "https://example.com"},
		{name: "code span", in: "run `go test`", want: "run go test"},
		{name: "soft break", in: "line one\nline two", want: "line one\nline two"},
		{name: "list", in: "- a\n- b", want: "- a\n- b"},
		{name: "fenced code", in: "```\nx := 1\n```", want: "x := 1"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}

func at(minute int) chat.Timestamp {
	return chat.Timestamp{Time: time.Date(2025, 3, 1, 9, minute, 0, 0, time.UTC)}
}

func TestLines_GroupsSenders(t *testing.T) {
	messages := []chat.Message{
		{ID: 1, SenderID: 2, SenderName: "Bo", Text: "hi", CreatedAt: at(1)},
		{ID: 2, SenderID: 2, SenderName: "Bo", Text: "you there?", CreatedAt: at(2)},
		{ID: 3, SenderID: 1, SenderName: "Me", Text: "yes", CreatedAt: at(3), IsOwn: true},
		{ID: 4, SenderID: 2, SenderName: "Bo", Text: "good", CreatedAt: at(4)},
		{ID: 5, SenderID: 3, SenderName: "Cy", Text: "me too", CreatedAt: at(5)},
	}

	lines := Lines(messages, time.UTC)

	senders := make([]string, len(lines))
	for i, l := range lines {
		senders[i] = l.Sender
	}
	assert.Equal(t, []string{"Bo", "", "", "Bo", "Cy"}, senders)
	assert.Equal(t, "09:03", lines[2].Time)
	assert.True(t, lines[2].Own)
}

func TestPrinter_Transcript(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, time.UTC)

	p.Transcript("Bo", []chat.Message{
		{ID: 1, SenderID: 2, SenderName: "Bo", Text: "hi", CreatedAt: at(1)},
		{ID: 2, SenderID: 1, SenderName: "Me", Text: "hey", CreatedAt: at(2), IsOwn: true},
	})

	assert.Equal(t, "Bo\n────\nBo\n09:01   hi\n09:02 › hey\n", buf.String())
}

func TestPrinter_MessageRepeatsSenderOnlyAfterChange(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, time.UTC)
	first := chat.Message{ID: 1, SenderID: 2, SenderName: "Bo", Text: "one", CreatedAt: at(1)}
	second := chat.Message{ID: 2, SenderID: 2, SenderName: "Bo", Text: "two", CreatedAt: at(2)}

	p.Message(first, nil)
	p.Message(second, &first)

	assert.Equal(t, "Bo\n09:01   one\n09:02   two\n", buf.String())
}

func TestShortTime(t *testing.T) {
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, "09:15", ShortTime(time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC), now))
	assert.Equal(t, "Feb 28", ShortTime(time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC), now))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, "3 minutes ago", RelativeTime(now.Add(-3*time.Minute), now))
}

func TestConversations(t *testing.T) {
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	updated := now.Add(-3 * time.Minute)
	id := int64(7)

	var buf bytes.Buffer
	Conversations(&buf, []chat.ConversationSummary{
		{UserID: 2, UserName: "Bo", ConversationID: &id, LastMessage: "see **you**", UpdatedAt: &updated},
	}, now)

	assert.Equal(t, "  1  Bo  17:57 (3 minutes ago)\n     see you\n", buf.String())

	buf.Reset()
	Conversations(&buf, nil, now)
	assert.Equal(t, "No conversations yet.\n", buf.String())
}

func TestContacts(t *testing.T) {
	id := int64(7)
	var buf bytes.Buffer
	Contacts(&buf, []chat.ConversationSummary{
		{UserID: 2, UserName: "Bo", UserEmail: "bo@x", ConversationID: &id},
		{UserID: 3, UserName: "Cy", UserEmail: "cy@x"},
	})

	assert.Equal(t, "  1 • Bo  bo@x\n  2   Cy  cy@x\n", buf.String())
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name   string
		status connection.Status
		want   string
	}{
		{name: "connected", status: connection.Status{State: connection.StateConnected}, want: "● connected"},
		{
			name: "auth failure shows reason",
			status: connection.Status{
				State: connection.StateClosed, Code: 1008, Reason: "token expired",
				Err: syncerr.AuthenticationRejected("token expired"),
			},
			want: "✕ signed out: token expired",
		},
		{
			name:   "missing credential",
			status: connection.Status{State: connection.StateErrored, Err: syncerr.CredentialMissing()},
			want:   "✕ signed out: missing credential",
		},
		{
			name:   "reconnecting",
			status: connection.Status{State: connection.StateConnecting, Attempt: 2, Err: syncerr.Transient("x", nil)},
			want:   "○ reconnecting (attempt 2)",
		},
		{name: "connecting", status: connection.Status{State: connection.StateConnecting}, want: "○ connecting"},
		{
			name:   "transient close has no reason",
			status: connection.Status{State: connection.StateClosed, Code: 1001, Reason: "going away", Err: syncerr.Transient("x", nil)},
			want:   "○ closed",
		},
		{name: "disconnected", status: connection.Status{}, want: "○ disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusLine(tt.status))
		})
	}
}
