// ABOUTME: One-line connection indicator for the terminal
// ABOUTME: Connected/disconnected plus the reason for authentication failures

package render

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/2389/chatsync/internal/connection"
	"github.com/2389/chatsync/internal/syncerr"
)

// StatusLine describes a connection status. Only authentication failures
// carry a reason; other failures read as "reconnecting" or "disconnected".
func StatusLine(s connection.Status) string {
	switch {
	case s.Connected():
		return color.GreenString("● connected")
	case s.AuthFailed():
		reason := s.Reason
		if reason == "" {
			reason = syncerr.ReasonOf(s.Err)
		}
		return color.RedString("✕ signed out: %s", reason)
	case s.Reconnecting():
		return color.YellowString("○ reconnecting (attempt %d)", s.Attempt)
	case s.State == connection.StateConnecting:
		return color.YellowString("○ connecting")
	default:
		return color.New(color.Faint).Sprint(fmt.Sprintf("○ %s", s.State))
	}
}
