// ABOUTME: Inbound frame validation and decoding into chat messages
// ABOUTME: Shape is checked with gjson before decoding so partial objects are rejected

package connection

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/2389/chatsync/internal/chat"
)

var errNotJSON = errors.New("frame is not valid JSON")

// numericFields must be present as JSON numbers for a frame to be a message.
var numericFields = []string{"id", "conversation_id", "sender_id"}

// DecodeMessage validates and decodes a frame as a chat message.
func DecodeMessage(data []byte) (*chat.Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, errNotJSON
	}

	frame := gjson.ParseBytes(data)
	if !frame.IsObject() {
		return nil, errors.New("frame is not a JSON object")
	}
	for _, field := range numericFields {
		if v := frame.Get(field); v.Type != gjson.Number {
			return nil, fmt.Errorf("field %q missing or not a number", field)
		}
	}
	if v := frame.Get("text"); v.Type != gjson.String {
		return nil, fmt.Errorf("field %q missing or not a string", "text")
	}

	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return &msg, nil
}

// preview truncates a payload for logging.
func preview(data []byte) string {
	const maxLen = 120
	if len(data) <= maxLen {
		return string(data)
	}
	return string(data[:maxLen-3]) + "..."
}
