// ABOUTME: Chat message and outbound payload types exchanged with the backend
// ABOUTME: IsOwn is derived locally from identity and never trusted from the wire

package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message is a single chat message. Messages are immutable once created;
// ID is unique within a conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Text           string    `json:"text"`
	CreatedAt      Timestamp `json:"created_at"`

	// IsOwn is computed as SenderID == current user id. A remote payload's
	// is_own field is ignored on decode.
	IsOwn bool `json:"-"`
}

// OwnedBy reports whether the message was sent by the given user.
func (m Message) OwnedBy(userID int64) bool {
	return m.SenderID == userID
}

// WithOwner returns a copy of m with IsOwn recomputed against identity.
// A nil identity yields IsOwn=false.
func (m Message) WithOwner(identity *Identity) Message {
	m.IsOwn = identity != nil && m.OwnedBy(identity.ID)
	return m
}

// Outbound is the payload written to the live connection when sending.
type Outbound struct {
	ConversationID int64  `json:"conversation_id"`
	Text           string `json:"text"`
}

// Encode serializes the outbound payload as a JSON text frame.
func (o Outbound) Encode() ([]byte, error) {
	if o.ConversationID <= 0 {
		return nil, fmt.Errorf("invalid conversation id %d", o.ConversationID)
	}
	if strings.TrimSpace(o.Text) == "" {
		return nil, fmt.Errorf("empty message text")
	}
	return json.Marshal(o)
}

// naiveLayouts are tried in order for timestamps without a zone designator.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp is a time decoded from the backend's naive-UTC representation.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses an RFC 3339 or naive timestamp. Naive values are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON accepts a string timestamp or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes the timestamp as RFC 3339 in UTC.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
