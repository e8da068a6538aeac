// ABOUTME: Account commands: login stores a token, register creates a user, logout forgets
// ABOUTME: Prompts for missing fields and masks passwords on a terminal

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/2389/chatsync/internal/auth"
	"github.com/2389/chatsync/internal/client"
	"github.com/2389/chatsync/internal/syncerr"
)

func newLoginCmd(root *rootOptions) *cobra.Command {
	var creds client.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if creds.Email, err = p.line("Email", creds.Email); err != nil {
				return err
			}
			if creds.Password, err = p.secret("Password", creds.Password); err != nil {
				return err
			}

			tok, err := a.api.Login(cmd.Context(), creds)
			if err != nil {
				return fmt.Errorf("login failed: %s", syncerr.ReasonOf(err))
			}
			if err := a.tokens.Store(tok.AccessToken); err != nil {
				return err
			}

			if claims, err := auth.Inspect(tok.AccessToken); err == nil && !claims.ExpiresAt.IsZero() {
				a.logger.Debug("token stored", "path", a.tokens.Path, "expires_at", claims.ExpiresAt)
			}
			fmt.Fprintln(a.out, color.GreenString("✓")+" signed in as "+creds.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newRegisterCmd(root *rootOptions) *cobra.Command {
	var reg client.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if reg.Name, err = p.line("Name", reg.Name); err != nil {
				return err
			}
			if reg.Email, err = p.line("Email", reg.Email); err != nil {
				return err
			}
			if reg.Password, err = p.secret("Password", reg.Password); err != nil {
				return err
			}

			user, err := a.api.Register(cmd.Context(), reg)
			if err != nil {
				return fmt.Errorf("registration failed: %s", syncerr.ReasonOf(err))
			}
			fmt.Fprintf(a.out, "%s registered %s (user %d); run chatsync login\n", color.GreenString("✓"), user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Name, "name", "", "display name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newLogoutCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			if err := a.tokens.Forget(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "signed out")
			return nil
		},
	}
}

// prompter asks for missing values on the given streams.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

// line returns current when set, otherwise a non-empty answer.
func (p *prompter) line(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		text, err := p.reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
		}
		fmt.Fprintf(p.out, "%s cannot be empty.\n", label)
	}
}

// secret is line with masked input when reading from a terminal.
func (p *prompter) secret(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(label, current)
	}
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return text, nil
		}
		fmt.Fprintf(p.out, "%s cannot be empty.\n", label)
	}
}
