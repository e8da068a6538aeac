// ABOUTME: Root cobra command with global flags shared by every subcommand
// ABOUTME: Loads .env, the config file, and the logger before a command runs

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/2389/chatsync/internal/config"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	envFile    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "chatsync",
		Short: "Terminal client for real-time one-to-one chat",
		Long: `chatsync keeps a live connection to the chat server, merges history with
incoming messages, and lists your conversations by recency.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default $XDG_CONFIG_HOME/chatsync/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newChatCmd(opts),
		newStartCmd(opts),
		newInboxCmd(opts),
		newContactsCmd(opts),
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
	)
	return cmd
}

// load reads the environment and config and builds the app for cmd.
func (o *rootOptions) load(cmd *cobra.Command) (*app, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", o.envFile, err)
		}
	}

	cfg, path, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}

	logger := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}
	return newApp(cfg, logger, cmd.OutOrStdout()), nil
}

// parsePosition parses a 1-based list position argument.
func parsePosition(arg, what string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return n, nil
}
