// ABOUTME: One-shot inbox and contacts listings
// ABOUTME: Fetches a fresh snapshot without opening the live connection

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/chatsync/internal/chat"
	"github.com/2389/chatsync/internal/inbox"
	"github.com/2389/chatsync/internal/render"
)

func newInboxCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			snapshot, me, err := a.inbox(cmd.Context())
			if err != nil {
				return err
			}
			a.header(me)
			render.Conversations(a.out, snapshot.Active, time.Now())
			return nil
		},
	}
}

func newContactsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List every other user, with or without a conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			snapshot, me, err := a.inbox(cmd.Context())
			if err != nil {
				return err
			}
			a.header(me)
			render.Contacts(a.out, snapshot.All)
			return nil
		},
	}
}

// inbox fetches one snapshot through a session that is never started, so
// no live connection is opened.
func (a *app) inbox(ctx context.Context) (inbox.Inbox, *chat.Identity, error) {
	sess := a.newSession()
	defer sess.Close()

	snapshot, err := sess.RefreshInbox(ctx)
	if err != nil {
		return inbox.Inbox{}, nil, endedError(err)
	}
	return snapshot, sess.Identity(), nil
}

func (a *app) header(me *chat.Identity) {
	if me == nil {
		return
	}
	fmt.Fprintln(a.out, color.New(color.Faint).Sprintf("signed in as %s <%s>", me.Name, me.Email))
	fmt.Fprintln(a.out)
}
