package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "mpv", cfg.Adapter.Type)
	assert.Equal(t, 5000, cfg.Adapter.CallTimeoutMs)
	assert.Equal(t, 65536, cfg.Server.MaxLineBytes)
	assert.Equal(t, 30, cfg.Server.IdleTimeoutSec)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Server.Socket)
	assert.Empty(t, cfg.Server.Token)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playd.yaml")
	content := `
server:
  socket: /tmp/test-playd.sock
  token: sekrit
  token_per_message: true
adapter:
  type: mpd
  call_timeout_ms: 1500
  settings:
    addr: localhost:7700
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test-playd.sock", cfg.Server.Socket)
	assert.Equal(t, "sekrit", cfg.Server.Token)
	assert.True(t, cfg.Server.TokenPerMessage)
	assert.Equal(t, "mpd", cfg.Adapter.Type)
	assert.Equal(t, 1500, cfg.Adapter.CallTimeoutMs)
	assert.Equal(t, "localhost:7700", cfg.Adapter.Settings["addr"])
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PLAYD_SOCKET", "/tmp/env-playd.sock")
	t.Setenv("PLAYD_TOKEN", "env-token")
	t.Setenv("PLAYD_ADAPTER", "spotify")
	t.Setenv("SPOTIFY_CLIENT_ID", "cid")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "csecret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env-playd.sock", cfg.Server.Socket)
	assert.Equal(t, "env-token", cfg.Server.Token)
	assert.Equal(t, "spotify", cfg.Adapter.Type)
	assert.Equal(t, "cid", cfg.Adapter.Settings["client_id"])
	assert.Equal(t, "csecret", cfg.Adapter.Settings["client_secret"])
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown adapter type",
			content: "adapter:\n  type: winamp\n",
		},
		{
			name:    "negative call timeout",
			content: "adapter:\n  call_timeout_ms: -1\n",
		},
		{
			name:    "bad log level",
			content: "log:\n  level: loud\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "playd.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/playd.sock", DefaultSocketPath())

	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Contains(t, DefaultSocketPath(), "playd-")
}
