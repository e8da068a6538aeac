// ABOUTME: Tests for inbound frame validation and the reconnect schedule
// ABOUTME: Partial and non-object frames must never decode into messages

package connection

import (
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr bool
	}{
		{name: "complete message", frame: `{"id":1,"conversation_id":2,"sender_id":3,"sender_name":"Al","text":"hi","created_at":"2025-03-01T09:15:00"}`},
		{name: "is_own from the wire is ignored", frame: `{"id":1,"conversation_id":2,"sender_id":3,"sender_name":"Al","text":"hi","created_at":"2025-03-01T09:15:00","is_own":true}`},
		{name: "plain text", frame: "hello", wantErr: true},
		{name: "array", frame: `[1,2,3]`, wantErr: true},
		{name: "missing text", frame: `{"id":1,"conversation_id":2,"sender_id":3}`, wantErr: true},
		{name: "id only", frame: `{"id":1}`, wantErr: true},
		{name: "string id", frame: `{"id":"1","conversation_id":2,"sender_id":3,"text":"hi"}`, wantErr: true},
		{name: "bad timestamp", frame: `{"id":1,"conversation_id":2,"sender_id":3,"text":"hi","created_at":"yesterday"}`, wantErr: true},
		{name: "truncated", frame: `{"id":1,"conversation_id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tt.frame))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, msg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, msg)
			assert.Equal(t, int64(1), msg.ID)
			assert.Equal(t, int64(2), msg.ConversationID)
			assert.Equal(t, int64(3), msg.SenderID)
			assert.Equal(t, "hi", msg.Text)
			assert.False(t, msg.IsOwn)
			assert.Equal(t, time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC), msg.CreatedAt.Time)
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview([]byte("short")))

	long := preview([]byte(strings.Repeat("x", 500)))
	assert.Len(t, long, 120)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestReconnectPolicy_Defaults(t *testing.T) {
	p := ReconnectPolicy{Enabled: true, Jitter: 2, Multiplier: 0.5}.withDefaults()

	assert.Equal(t, 500*time.Millisecond, p.InitialInterval)
	assert.Equal(t, 30*time.Second, p.MaxInterval)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.Equal(t, 0.5, p.Jitter)
}

func TestReconnectPolicy_BackOffIsBounded(t *testing.T) {
	p := ReconnectPolicy{
		Enabled:         true,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     400 * time.Millisecond,
		Multiplier:      2,
	}.withDefaults()
	p.Jitter = 0

	bo := p.newBackOff()
	var got []time.Duration
	for range 5 {
		got = append(got, bo.NextBackOff())
	}

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		400 * time.Millisecond,
		400 * time.Millisecond,
	}, got)
}

func TestReconnectPolicy_MaxRetries(t *testing.T) {
	p := ReconnectPolicy{Enabled: true, InitialInterval: time.Millisecond, MaxRetries: 2}.withDefaults()

	bo := p.newBackOff()
	assert.NotEqual(t, backoff.Stop, bo.NextBackOff())
	assert.NotEqual(t, backoff.Stop, bo.NextBackOff())
	assert.Equal(t, backoff.Stop, bo.NextBackOff())

	bo.Reset()
	assert.NotEqual(t, backoff.Stop, bo.NextBackOff(), "reset restores the retry budget")
}
