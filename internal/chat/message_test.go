// ABOUTME: Tests for chat message decoding and outbound encoding
// ABOUTME: Covers naive-UTC timestamps, ignored is_own claims, and payload validation

package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"naive seconds", "2025-03-01T09:15:00", time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)},
		{"naive micros", "2025-03-01T09:15:00.123456", time.Date(2025, 3, 1, 9, 15, 0, 123456000, time.UTC)},
		{"space separator", "2025-03-01 09:15:00", time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)},
		{"rfc3339 zulu", "2025-03-01T09:15:00Z", time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)},
		{"rfc3339 offset", "2025-03-01T11:15:00+02:00", time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestMessage_DecodeIgnoresRemoteOwnership(t *testing.T) {
	raw := `{"id":7,"conversation_id":3,"sender_id":42,"sender_name":"Ada","text":"hi","created_at":"2025-03-01T09:15:00","is_own":true}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, int64(7), msg.ID)
	assert.Equal(t, int64(3), msg.ConversationID)
	assert.Equal(t, "Ada", msg.SenderName)
	assert.False(t, msg.IsOwn, "is_own from the wire must not be trusted")
	assert.Equal(t, 2025, msg.CreatedAt.Year())
}

func TestMessage_WithOwner(t *testing.T) {
	msg := Message{ID: 1, SenderID: 42}

	assert.False(t, msg.WithOwner(nil).IsOwn)
	assert.True(t, msg.WithOwner(&Identity{ID: 42}).IsOwn)
	assert.False(t, msg.WithOwner(&Identity{ID: 7}).IsOwn)

	// Recomputation is idempotent and can flip a stale value back.
	owned := msg.WithOwner(&Identity{ID: 42})
	assert.False(t, owned.WithOwner(&Identity{ID: 7}).IsOwn)
}

func TestTimestamp_NullAndEmpty(t *testing.T) {
	var c Conversation
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"other_user_id":2,"last_message":null,"updated_at":null}`), &c))
	assert.Nil(t, c.UpdatedAt)
	assert.Nil(t, c.LastMessage)

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
	assert.True(t, ts.IsZero())
}

func TestOutbound_Encode(t *testing.T) {
	data, err := Outbound{ConversationID: 5, Text: "hello"}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"conversation_id":5,"text":"hello"}`, string(data))

	_, err = Outbound{ConversationID: 0, Text: "hello"}.Encode()
	assert.Error(t, err)

	_, err = Outbound{ConversationID: 5, Text: "   "}.Encode()
	assert.Error(t, err)
}
