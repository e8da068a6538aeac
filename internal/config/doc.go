// Package config handles configuration loading for chatsync.
//
// # Configuration File
//
// Lookup order:
//
//  1. The --config flag
//  2. Path from CHATSYNC_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/chatsync/config.yaml (or ~/.config/chatsync/config.yaml)
//
// A missing file at the default location means all defaults apply. A missing
// file named by the flag or the environment is an error.
//
// Files ending in .toml are decoded as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
// Values can reference environment variables with ${VAR_NAME}. Unset
// variables expand to the empty string, which then falls back to the default.
//
// # Sections
//
//	server:
//	  base_url: "http://127.0.0.1:8000"
//	  websocket_url: ""            # derived from base_url: ws(s)://host/ws
//	  request_timeout: "10s"
//
//	auth:
//	  token_env: "CHATSYNC_TOKEN"
//	  token_file: ""               # default ~/.config/chatsync/token
//
//	connection:
//	  read_limit: "1MiB"
//	  handshake_timeout: "10s"
//	  write_timeout: "5s"
//	  event_buffer: 64
//	  reconnect:
//	    enabled: true
//	    initial_interval: "500ms"
//	    max_interval: "30s"
//	    max_elapsed_time: ""       # empty retries forever
//	    max_retries: 0             # 0 means no cap
//	    multiplier: 2.0
//	    jitter: 0.5
//
//	session:
//	  discovery_ttl: "30s"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: false
//	  addr: "127.0.0.1:9464"
//	  path: "/metrics"
package config
