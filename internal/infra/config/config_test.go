package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, "session:\n  title: Friday Night\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "default", cfg.Session.ID)
	assert.Equal(t, 500, cfg.Playback.NextDebounceMs)
	assert.Equal(t, 3, cfg.Playback.FailureThreshold)
	assert.Equal(t, 2000, cfg.Watchdog.IntervalMs)
	assert.Equal(t, 3, cfg.Watchdog.StallSamples)
	assert.Equal(t, 1000, cfg.Watchdog.StartGraceMs)
	assert.Equal(t, 500, cfg.Watchdog.EndGraceMs)
	assert.Equal(t, 1000, cfg.Store.DebounceMs)
	assert.Equal(t, 500*time.Millisecond, cfg.NextDebounce())
	assert.Equal(t, time.Second, cfg.StoreDebounce())
	assert.False(t, cfg.Spotify.Enabled())
}

func TestLoad_FileValuesOverrideDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
playback:
  next_debounce_ms: 250
watchdog:
  stall_samples: 5
policies:
  duplicate_track:
    enabled: true
  queue_cap:
    enabled: true
    settings:
      max: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 250, cfg.Playback.NextDebounceMs)
	assert.Equal(t, 5, cfg.Watchdog.StallSamples)
	assert.True(t, cfg.IsPolicyEnabled("duplicate_track"))
	assert.False(t, cfg.IsPolicyEnabled("no_such_policy"))
	assert.Equal(t, 50, cfg.PolicySetting("queue_cap", "max"))
	assert.Nil(t, cfg.PolicySetting("queue_cap", "missing"))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "env-token")
	t.Setenv("VENUEBOX_SESSION_ID", "env-session")

	path := writeConfig(t, `
session:
  id: file-session
spotify:
  client_id: file-id
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
	assert.Equal(t, "env-session", cfg.Session.ID)
	assert.True(t, cfg.Spotify.Enabled())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid market length",
			mutate:  func(c *Config) { c.Spotify.Market = "USA" },
			wantErr: true,
			errMsg:  "Market",
		},
		{
			name:    "negative debounce",
			mutate:  func(c *Config) { c.Playback.NextDebounceMs = -1 },
			wantErr: true,
			errMsg:  "NextDebounceMs",
		},
		{
			name:    "zero failure threshold",
			mutate:  func(c *Config) { c.Playback.FailureThreshold = 0 },
			wantErr: true,
			errMsg:  "FailureThreshold",
		},
		{
			name:    "watchdog interval too small",
			mutate:  func(c *Config) { c.Watchdog.IntervalMs = 10 },
			wantErr: true,
			errMsg:  "IntervalMs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "session:\n  id: test\n")
			cfg, err := Load(path)
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}
