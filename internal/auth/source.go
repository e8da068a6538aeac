// ABOUTME: Token sources supplying the current bearer token on demand
// ABOUTME: Env var first, then a token file under the XDG config directory

package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenSource supplies the current bearer token. An empty string means no
// token is available. The core only reads tokens; sources own mutation.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed token, mostly useful in tests.
type StaticToken string

// Token returns the fixed token.
func (s StaticToken) Token() string {
	return string(s)
}

// EnvFileSource reads the token from an environment variable, falling back to
// a file containing the token.
type EnvFileSource struct {
	EnvVar string
	Path   string
}

// DefaultTokenPath returns $XDG_CONFIG_HOME/chatsync/token or
// ~/.config/chatsync/token.
func DefaultTokenPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "token"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "chatsync", "token")
}

// Token returns the env var value if set, else the trimmed file contents.
func (s EnvFileSource) Token() string {
	if s.EnvVar != "" {
		if token := os.Getenv(s.EnvVar); token != "" {
			return token
		}
	}

	if s.Path == "" {
		return ""
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Store writes token to the source's file with owner-only permissions.
func (s EnvFileSource) Store(token string) error {
	if s.Path == "" {
		return fmt.Errorf("no token file configured")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Forget removes the token file. A missing file is not an error.
func (s EnvFileSource) Forget() error {
	if s.Path == "" {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
