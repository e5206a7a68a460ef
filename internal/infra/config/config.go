// Package config provides configuration loading from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Adapter AdapterConfig `yaml:"adapter"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig represents the control-socket configuration.
type ServerConfig struct {
	// Socket is the unix socket path clients connect to.
	// Empty means the well-known default under the user runtime dir.
	Socket string `yaml:"socket"`

	// Token is an optional shared secret. When set, clients must
	// authenticate; when empty, all local connections are accepted.
	Token string `yaml:"token"`

	// TokenPerMessage requires the token on every message instead of
	// only the first message of a connection.
	TokenPerMessage bool `yaml:"token_per_message"`

	MaxLineBytes   int `yaml:"max_line_bytes" default:"65536" validate:"gt=0"`
	IdleTimeoutSec int `yaml:"idle_timeout_sec" default:"30" validate:"gte=0"`
}

// AdapterConfig represents the playback backend configuration.
// The backend is selected once at daemon construction and never
// switched at runtime.
type AdapterConfig struct {
	Type          string         `yaml:"type" default:"mpv" validate:"oneof=mpv mpd spotify noop"`
	CallTimeoutMs int            `yaml:"call_timeout_ms" default:"5000" validate:"gt=0,lte=60000"`
	Settings      map[string]any `yaml:"settings"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" default:"stdout"`
}

// CallTimeout returns the adapter call timeout as a duration.
func (a AdapterConfig) CallTimeout() time.Duration {
	return time.Duration(a.CallTimeoutMs) * time.Millisecond
}

// IdleTimeout returns the per-connection idle read timeout.
// Zero disables the timeout.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSec) * time.Second
}

// Load loads configuration from a YAML file. A missing file is not an
// error: the daemon runs on defaults and environment variables alone.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// Defaults only
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if cfg.Server.Socket == "" {
		cfg.Server.Socket = DefaultSocketPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("PLAYD_SOCKET"); v != "" {
		c.Server.Socket = v
	}
	if v := os.Getenv("PLAYD_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("PLAYD_ADAPTER"); v != "" {
		c.Adapter.Type = v
	}
	if v := os.Getenv("PLAYD_MPD_ADDR"); v != "" {
		c.setAdapterSetting("addr", v)
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.setAdapterSetting("client_id", v)
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.setAdapterSetting("client_secret", v)
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.setAdapterSetting("refresh_token", v)
	}
}

func (c *Config) setAdapterSetting(key string, value any) {
	if c.Adapter.Settings == nil {
		c.Adapter.Settings = make(map[string]any)
	}
	c.Adapter.Settings[key] = value
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// DefaultSocketPath returns the well-known control socket path:
// $XDG_RUNTIME_DIR/playd.sock when available, otherwise a per-user
// path under the system temp dir.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "playd.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("playd-%d.sock", os.Getuid()))
}
