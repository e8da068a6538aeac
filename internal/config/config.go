// ABOUTME: Configuration loading and parsing for chatsync
// ABOUTME: YAML or TOML files with environment variable expansion, durations, and byte sizes

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/2389/chatsync/internal/auth"
	"github.com/2389/chatsync/internal/connection"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "CHATSYNC_CONFIG"

// Config represents the complete chatsync configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Auth       AuthConfig       `yaml:"auth" toml:"auth"`
	Connection ConnectionConfig `yaml:"connection" toml:"connection"`
	Session    SessionConfig    `yaml:"session" toml:"session"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds the backend endpoints
type ServerConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	// WebSocketURL defaults to BaseURL with a ws/wss scheme and path /ws.
	WebSocketURL string `yaml:"websocket_url" toml:"websocket_url"`

	RequestTimeout    time.Duration `yaml:"-" toml:"-"`
	RequestTimeoutRaw string        `yaml:"request_timeout" toml:"request_timeout"`
}

// AuthConfig says where the bearer token comes from
type AuthConfig struct {
	TokenEnv  string `yaml:"token_env" toml:"token_env"`
	TokenFile string `yaml:"token_file" toml:"token_file"`
}

// ConnectionConfig holds live connection settings
type ConnectionConfig struct {
	ReadLimit        int64         `yaml:"-" toml:"-"`
	HandshakeTimeout time.Duration `yaml:"-" toml:"-"`
	WriteTimeout     time.Duration `yaml:"-" toml:"-"`

	// Raw values for unmarshaling; read_limit accepts sizes like "1MiB".
	ReadLimitRaw        string `yaml:"read_limit" toml:"read_limit"`
	HandshakeTimeoutRaw string `yaml:"handshake_timeout" toml:"handshake_timeout"`
	WriteTimeoutRaw     string `yaml:"write_timeout" toml:"write_timeout"`

	EventBuffer int             `yaml:"event_buffer" toml:"event_buffer"`
	Reconnect   ReconnectConfig `yaml:"reconnect" toml:"reconnect"`
}

// ReconnectConfig holds the retry policy for transient failures
type ReconnectConfig struct {
	Enabled    *bool    `yaml:"enabled" toml:"enabled"`
	MaxRetries int      `yaml:"max_retries" toml:"max_retries"`
	Multiplier float64  `yaml:"multiplier" toml:"multiplier"`
	Jitter     *float64 `yaml:"jitter" toml:"jitter"`

	InitialInterval time.Duration `yaml:"-" toml:"-"`
	MaxInterval     time.Duration `yaml:"-" toml:"-"`
	MaxElapsedTime  time.Duration `yaml:"-" toml:"-"`

	InitialIntervalRaw string `yaml:"initial_interval" toml:"initial_interval"`
	MaxIntervalRaw     string `yaml:"max_interval" toml:"max_interval"`
	MaxElapsedTimeRaw  string `yaml:"max_elapsed_time" toml:"max_elapsed_time"`
}

// SessionConfig holds session behavior settings
type SessionConfig struct {
	DiscoveryTTL    time.Duration `yaml:"-" toml:"-"`
	DiscoveryTTLRaw string        `yaml:"discovery_ttl" toml:"discovery_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.finish(); err != nil {
		// Defaults are always valid.
		panic(err)
	}
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded. Files ending
// in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Locate picks the config file path: flagPath, then $CHATSYNC_CONFIG, then
// the XDG default. explicit is false only for the XDG default.
func Locate(flagPath string) (path string, explicit bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, true
	}
	return DefaultPath(), false
}

// DefaultPath returns $XDG_CONFIG_HOME/chatsync/config.yaml or
// ~/.config/chatsync/config.yaml.
func DefaultPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "chatsync", "config.yaml")
}

// LoadOrDefault loads the located config file. A missing default file yields
// the defaults; a missing explicit file is an error.
func LoadOrDefault(flagPath string) (*Config, string, error) {
	path, explicit := Locate(flagPath)
	cfg, err := Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return Default(), "", nil
	}
	return nil, path, err
}

func (c *Config) finish() error {
	if err := parseDurations(c); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}
	if err := parseSizes(c); err != nil {
		return fmt.Errorf("parsing sizes: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return fmt.Errorf("applying defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() error {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://127.0.0.1:8000"
	}
	c.Server.BaseURL = strings.TrimSuffix(c.Server.BaseURL, "/")
	if c.Server.WebSocketURL == "" {
		ws, err := deriveWebSocketURL(c.Server.BaseURL)
		if err != nil {
			return err
		}
		c.Server.WebSocketURL = ws
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 10 * time.Second
	}

	if c.Auth.TokenEnv == "" {
		c.Auth.TokenEnv = "CHATSYNC_TOKEN"
	}
	if c.Auth.TokenFile == "" {
		c.Auth.TokenFile = auth.DefaultTokenPath()
	}

	if c.Connection.ReadLimit == 0 {
		c.Connection.ReadLimit = 1 << 20
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = 10 * time.Second
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = 5 * time.Second
	}
	if c.Connection.EventBuffer == 0 {
		c.Connection.EventBuffer = 64
	}

	rc := &c.Connection.Reconnect
	def := connection.DefaultReconnectPolicy()
	if rc.Enabled == nil {
		rc.Enabled = &def.Enabled
	}
	if rc.InitialInterval == 0 {
		rc.InitialInterval = def.InitialInterval
	}
	if rc.MaxInterval == 0 {
		rc.MaxInterval = def.MaxInterval
	}
	if rc.Multiplier == 0 {
		rc.Multiplier = def.Multiplier
	}
	if rc.Jitter == nil {
		rc.Jitter = &def.Jitter
	}

	if c.Session.DiscoveryTTL == 0 {
		c.Session.DiscoveryTTL = 30 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = "127.0.0.1:9464"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	return nil
}

// deriveWebSocketURL maps http(s)://host/prefix to ws(s)://host/ws.
func deriveWebSocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing server.base_url %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("server.base_url must be http or https, got %q", base)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	base, err := url.Parse(c.Server.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("server.base_url must be an http(s) URL, got %q", c.Server.BaseURL)
	}
	ws, err := url.Parse(c.Server.WebSocketURL)
	if err != nil || (ws.Scheme != "ws" && ws.Scheme != "wss") || ws.Host == "" {
		return fmt.Errorf("server.websocket_url must be a ws(s) URL, got %q", c.Server.WebSocketURL)
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server.request_timeout must not be negative")
	}

	if c.Connection.ReadLimit < 0 {
		return fmt.Errorf("connection.read_limit must not be negative")
	}
	if c.Connection.EventBuffer < 0 {
		return fmt.Errorf("connection.event_buffer must not be negative")
	}
	rc := c.Connection.Reconnect
	if rc.MaxRetries < 0 {
		return fmt.Errorf("connection.reconnect.max_retries must not be negative")
	}
	if rc.Multiplier < 1 {
		return fmt.Errorf("connection.reconnect.multiplier must be at least 1, got %v", rc.Multiplier)
	}
	if rc.Jitter != nil && (*rc.Jitter < 0 || *rc.Jitter >= 1) {
		return fmt.Errorf("connection.reconnect.jitter must be in [0, 1), got %v", *rc.Jitter)
	}
	if rc.MaxInterval < rc.InitialInterval {
		return fmt.Errorf("connection.reconnect.max_interval must not be below initial_interval")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}

// ReconnectPolicy converts the reconnect section for the connection manager.
func (c *Config) ReconnectPolicy() connection.ReconnectPolicy {
	rc := c.Connection.Reconnect
	p := connection.ReconnectPolicy{
		InitialInterval: rc.InitialInterval,
		MaxInterval:     rc.MaxInterval,
		MaxElapsedTime:  rc.MaxElapsedTime,
		MaxRetries:      rc.MaxRetries,
		Multiplier:      rc.Multiplier,
	}
	if rc.Enabled != nil {
		p.Enabled = *rc.Enabled
	}
	if rc.Jitter != nil {
		p.Jitter = *rc.Jitter
	}
	return p
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.request_timeout", cfg.Server.RequestTimeoutRaw, &cfg.Server.RequestTimeout},
		{"connection.handshake_timeout", cfg.Connection.HandshakeTimeoutRaw, &cfg.Connection.HandshakeTimeout},
		{"connection.write_timeout", cfg.Connection.WriteTimeoutRaw, &cfg.Connection.WriteTimeout},
		{"connection.reconnect.initial_interval", cfg.Connection.Reconnect.InitialIntervalRaw, &cfg.Connection.Reconnect.InitialInterval},
		{"connection.reconnect.max_interval", cfg.Connection.Reconnect.MaxIntervalRaw, &cfg.Connection.Reconnect.MaxInterval},
		{"connection.reconnect.max_elapsed_time", cfg.Connection.Reconnect.MaxElapsedTimeRaw, &cfg.Connection.Reconnect.MaxElapsedTime},
		{"session.discovery_ttl", cfg.Session.DiscoveryTTLRaw, &cfg.Session.DiscoveryTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %q", f.name, f.raw)
		}
		*f.dst = d
	}
	return nil
}

// parseSizes converts byte size strings such as "512KiB" or "1MB".
func parseSizes(cfg *Config) error {
	if raw := cfg.Connection.ReadLimitRaw; raw != "" {
		n, err := humanize.ParseBytes(raw)
		if err != nil {
			return fmt.Errorf("parsing connection.read_limit %q: %w", raw, err)
		}
		cfg.Connection.ReadLimit = int64(n)
	}
	return nil
}
