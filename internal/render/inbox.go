// ABOUTME: Inbox and contact list rendering with compact and relative times
// ABOUTME: Times show the clock for today and the date otherwise

package render

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/2389/chatsync/internal/chat"
)

// ShortTime formats t as "15:04" when it falls on now's day, else "Jan 2".
func ShortTime(t, now time.Time) string {
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("15:04")
	}
	return t.Format("Jan 2")
}

// RelativeTime is a humanized distance such as "3 minutes ago".
func RelativeTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Conversations prints the active inbox, numbered from 1 for selection.
func Conversations(w io.Writer, summaries []chat.ConversationSummary, now time.Time) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, color.New(color.Faint).Sprint("No conversations yet."))
		return
	}
	name := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	for i, s := range summaries {
		when := ""
		if s.UpdatedAt != nil {
			when = fmt.Sprintf("%s (%s)", ShortTime(*s.UpdatedAt, now), RelativeTime(*s.UpdatedAt, now))
		}
		fmt.Fprintf(w, "%3d  %s  %s\n", i+1, name.Sprint(s.UserName), dim.Sprint(when))
		if s.LastMessage != "" {
			fmt.Fprintf(w, "     %s\n", truncate(PlainText(s.LastMessage), 60))
		}
	}
}

// Contacts prints every known user, numbered from 1 for selection.
func Contacts(w io.Writer, summaries []chat.ConversationSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, color.New(color.Faint).Sprint("No other users."))
		return
	}
	dim := color.New(color.Faint)
	for i, s := range summaries {
		marker := " "
		if s.HasConversation() {
			marker = "•"
		}
		fmt.Fprintf(w, "%3d %s %s  %s\n", i+1, marker, s.UserName, dim.Sprint(s.UserEmail))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
