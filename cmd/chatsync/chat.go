// ABOUTME: Interactive chat loop: transcript, live messages, status, and sends
// ABOUTME: Reads stdin line by line while session signals are rendered as they arrive

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/chatsync/internal/chat"
	"github.com/2389/chatsync/internal/connection"
	"github.com/2389/chatsync/internal/render"
	"github.com/2389/chatsync/internal/session"
	"github.com/2389/chatsync/internal/syncerr"
)

var errInboxUnavailable = errors.New("inbox unavailable")

// conversationPicker chooses the conversation to open once the session is
// started and the inbox is loaded.
type conversationPicker func(ctx context.Context, sess *session.Session) (int64, error)

func newChatCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <n>",
		Short: "Open the n-th conversation of the inbox and chat live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePosition(args[0], "inbox position")
			if err != nil {
				return err
			}
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			return a.chat(cmd.Context(), cmd.InOrStdin(), pickActive(n))
		},
	}
}

func newStartCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <n>",
		Short: "Chat with the n-th contact, creating the conversation if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePosition(args[0], "contact position")
			if err != nil {
				return err
			}
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			return a.chat(cmd.Context(), cmd.InOrStdin(), pickContact(n))
		},
	}
}

// pickActive selects the n-th conversation as listed by the inbox command.
func pickActive(n int) conversationPicker {
	return func(_ context.Context, sess *session.Session) (int64, error) {
		snapshot, ok := sess.Inbox()
		if !ok {
			return 0, errInboxUnavailable
		}
		if n < 1 || n > len(snapshot.Active) {
			return 0, fmt.Errorf("no conversation %d (inbox has %d)", n, len(snapshot.Active))
		}
		return *snapshot.Active[n-1].ConversationID, nil
	}
}

// pickContact selects the n-th user as listed by the contacts command.
func pickContact(n int) conversationPicker {
	return func(ctx context.Context, sess *session.Session) (int64, error) {
		snapshot, ok := sess.Inbox()
		if !ok {
			return 0, errInboxUnavailable
		}
		if n < 1 || n > len(snapshot.All) {
			return 0, fmt.Errorf("no contact %d (%d known)", n, len(snapshot.All))
		}
		return sess.StartConversation(ctx, snapshot.All[n-1].UserID)
	}
}

func (a *app) chat(ctx context.Context, in io.Reader, pick conversationPicker) error {
	stop, err := a.serveMetrics()
	if err != nil {
		return err
	}
	defer stop()

	sess := a.newSession()
	defer sess.Close()

	return runChat(ctx, sess, pick, in, a.out, a.logger)
}

// chatLoop holds the state of one interactive conversation.
type chatLoop struct {
	sess           *session.Session
	conversationID int64
	out            io.Writer
	logger         *slog.Logger
	printer        *render.Printer
	dim            *color.Color
	warn           *color.Color

	shown     map[int64]bool
	last      *chat.Message
	lastState connection.Status
	bg        sync.WaitGroup
}

func runChat(ctx context.Context, sess *session.Session, pick conversationPicker, in io.Reader, out io.Writer, logger *slog.Logger) error {
	signals := sess.Subscribe(ctx)

	if err := sess.Start(ctx); err != nil {
		return endedError(err)
	}

	// The inbox resolves the current identity before history is shown, so
	// own messages are marked from the first render.
	if _, err := sess.RefreshInbox(ctx); err != nil {
		if syncerr.EndsSession(err) {
			return endedError(err)
		}
		logger.Warn("inbox unavailable", "error", err)
	}

	conversationID, err := pick(ctx, sess)
	if err != nil {
		return endedError(err)
	}
	if err := sess.OpenConversation(ctx, conversationID); err != nil {
		return endedError(err)
	}

	l := &chatLoop{
		sess:           sess,
		conversationID: conversationID,
		out:            out,
		logger:         logger,
		printer:        render.NewPrinter(out, nil),
		dim:            color.New(color.Faint),
		warn:           color.New(color.FgYellow),
		shown:          make(map[int64]bool),
	}
	defer l.bg.Wait()

	view, _ := sess.View()
	l.printer.Transcript(view.Title, view.Messages)
	for i := range view.Messages {
		l.shown[view.Messages[i].ID] = true
		l.last = &view.Messages[i]
	}
	l.status(sess.Status())
	fmt.Fprintln(out, l.dim.Sprint("Type a message and press Enter. /help for commands."))

	lines := readLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sess.Done():
			return endedError(sess.Err())
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := l.input(ctx, line); quit {
				return nil
			}
		case sig, ok := <-signals:
			if !ok {
				return endedError(sess.Err())
			}
			if sig.Kind == session.SignalEnded {
				return endedError(sig.Err)
			}
			l.signal(ctx, sig)
		}
	}
}

// input handles one typed line and reports whether the loop should end.
func (l *chatLoop) input(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(l.out, "Commands:")
		fmt.Fprintln(l.out, "  /status   Show connection status")
		fmt.Fprintln(l.out, "  /inbox    Show conversations by recency")
		fmt.Fprintln(l.out, "  /quit     Leave the chat")
		return false
	case "/status":
		fmt.Fprintln(l.out, l.dim.Sprint(render.StatusLine(l.sess.Status())))
		return false
	case "/inbox":
		snapshot, err := l.sess.RefreshInbox(ctx)
		if err != nil {
			fmt.Fprintln(l.out, l.warn.Sprintf("inbox unavailable: %s", syncerr.ReasonOf(err)))
			return false
		}
		render.Conversations(l.out, snapshot.Active, time.Now())
		return false
	}

	if err := l.sess.Send(ctx, line); err != nil {
		fmt.Fprintln(l.out, l.warn.Sprintf("not sent: %s", syncerr.ReasonOf(err)))
	}
	return false
}

func (l *chatLoop) signal(ctx context.Context, sig session.Signal) {
	switch sig.Kind {
	case session.SignalStatus:
		l.status(sig.Status)

	case session.SignalMessage:
		if sig.ConversationID != l.conversationID || sig.Message == nil || l.shown[sig.Message.ID] {
			return
		}
		msg := *sig.Message
		l.printer.Message(msg, l.last)
		l.shown[msg.ID] = true
		l.last = &msg

	case session.SignalConversationDiscovered:
		fmt.Fprintln(l.out, l.dim.Sprintf("new message in conversation %d (/inbox to list)", sig.ConversationID))
		l.bg.Go(func() {
			if _, err := l.sess.RefreshInbox(ctx); err != nil {
				l.logger.Debug("inbox refresh after discovery failed", "error", err)
			}
		})

	case session.SignalRaw:
		l.logger.Debug("unrecognized frame ignored", "bytes", len(sig.Raw))
	}
}

// status prints s when it differs from the last printed status.
func (l *chatLoop) status(s connection.Status) {
	if s.State == l.lastState.State && s.Attempt == l.lastState.Attempt && s.Reason == l.lastState.Reason {
		return
	}
	l.lastState = s
	fmt.Fprintln(l.out, l.dim.Sprint(render.StatusLine(s)))
}

// readLines delivers input lines until EOF or ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// endedError turns the reason a session ended into a CLI error. A normal
// close yields nil.
func endedError(err error) error {
	if err == nil {
		return nil
	}
	switch syncerr.KindOf(err) {
	case syncerr.KindCredentialMissing:
		return fmt.Errorf("not signed in (run chatsync login): %w", err)
	case syncerr.KindAuthenticationRejected:
		return fmt.Errorf("signed out: %s: %w", syncerr.ReasonOf(err), err)
	}
	return err
}
