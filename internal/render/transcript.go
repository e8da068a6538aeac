// ABOUTME: Terminal transcript of a conversation with sender grouping
// ABOUTME: Sender names appear once per run of consecutive messages from the same peer

package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/chatsync/internal/chat"
)

// Line is one rendered transcript entry. Sender is empty when the previous
// line came from the same peer, and for the user's own messages.
type Line struct {
	Time   string
	Sender string
	Text   string
	Own    bool
}

// Lines groups messages for display. Times are shown in loc.
func Lines(messages []chat.Message, loc *time.Location) []Line {
	if loc == nil {
		loc = time.Local
	}
	lines := make([]Line, 0, len(messages))
	var prevSender int64
	prevOwn := true
	for i, msg := range messages {
		line := Line{
			Time: msg.CreatedAt.In(loc).Format("15:04"),
			Text: PlainText(msg.Text),
			Own:  msg.IsOwn,
		}
		if !msg.IsOwn && (i == 0 || prevOwn || msg.SenderID != prevSender) {
			line.Sender = msg.SenderName
		}
		prevSender = msg.SenderID
		prevOwn = msg.IsOwn
		lines = append(lines, line)
	}
	return lines
}

// Printer writes colored transcript lines.
type Printer struct {
	w      io.Writer
	loc    *time.Location
	dim    *color.Color
	own    *color.Color
	sender *color.Color
}

// NewPrinter writes to w, showing times in loc (time.Local when nil).
func NewPrinter(w io.Writer, loc *time.Location) *Printer {
	if loc == nil {
		loc = time.Local
	}
	return &Printer{
		w:      w,
		loc:    loc,
		dim:    color.New(color.Faint),
		own:    color.New(color.FgGreen),
		sender: color.New(color.FgCyan, color.Bold),
	}
}

// Transcript prints a full conversation under a title.
func (p *Printer) Transcript(title string, messages []chat.Message) {
	fmt.Fprintln(p.w, p.sender.Sprint(title))
	fmt.Fprintln(p.w, p.dim.Sprint(strings.Repeat("─", max(len([]rune(title)), 4))))
	for _, line := range Lines(messages, p.loc) {
		p.line(line)
	}
}

// Message prints one live message. prev is the message shown before it,
// if any, and decides whether the sender name repeats.
func (p *Printer) Message(msg chat.Message, prev *chat.Message) {
	batch := []chat.Message{msg}
	if prev != nil {
		batch = []chat.Message{*prev, msg}
	}
	lines := Lines(batch, p.loc)
	p.line(lines[len(lines)-1])
}

func (p *Printer) line(l Line) {
	if l.Sender != "" {
		fmt.Fprintln(p.w, p.sender.Sprint(l.Sender))
	}
	body := indent(l.Text)
	if l.Own {
		fmt.Fprintf(p.w, "%s %s\n", p.dim.Sprint(l.Time), p.own.Sprint("› "+body))
		return
	}
	fmt.Fprintf(p.w, "%s   %s\n", p.dim.Sprint(l.Time), body)
}

// indent aligns continuation lines of multi-line text under the first.
func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n        ")
}
