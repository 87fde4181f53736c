// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/venuekit/venuebox/internal/infra/logger"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Session  SessionConfig           `yaml:"session"`
	Playback PlaybackConfig          `yaml:"playback"`
	Watchdog WatchdogConfig          `yaml:"watchdog"`
	Store    StoreConfig             `yaml:"store"`
	Policies map[string]PolicyConfig `yaml:"policies"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
	Log      logger.Config           `yaml:"log"`
}

// ServerConfig represents the sync endpoint configuration.
type ServerConfig struct {
	Addr      string          `yaml:"addr" default:":8080"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig caps inbound commands per connected peer.
type RateLimitConfig struct {
	PerPeerPerSec float64 `yaml:"per_peer_per_sec" default:"5" validate:"gte=0"`
	Burst         int     `yaml:"burst" default:"10" validate:"gte=0"`
}

// SessionConfig represents session identity configuration.
type SessionConfig struct {
	ID    string `yaml:"id" default:"default"`
	Title string `yaml:"title"`
}

// PlaybackConfig tunes the queue orchestrator.
type PlaybackConfig struct {
	NextDebounceMs   int     `yaml:"next_debounce_ms" default:"500" validate:"gte=0,lte=10000"`
	FailureThreshold int     `yaml:"failure_threshold" default:"3" validate:"gte=1,lte=10"`
	DefaultVolume    float64 `yaml:"default_volume" default:"1.0" validate:"gte=0,lte=1"`
}

// WatchdogConfig tunes the stalled-playback detector.
type WatchdogConfig struct {
	IntervalMs   int `yaml:"interval_ms" default:"2000" validate:"gte=100"`
	StallSamples int `yaml:"stall_samples" default:"3" validate:"gte=1"`
	StartGraceMs int `yaml:"start_grace_ms" default:"1000" validate:"gte=0"`
	EndGraceMs   int `yaml:"end_grace_ms" default:"500" validate:"gte=0"`
}

// StoreConfig represents snapshot persistence configuration.
type StoreConfig struct {
	Path       string `yaml:"path" default:"venuebox.db"`
	DebounceMs int    `yaml:"debounce_ms" default:"1000" validate:"gte=0,lte=60000"`
}

// PolicyConfig represents a queue policy's configuration.
type PolicyConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// SpotifyConfig represents Spotify API configuration. All fields empty
// disables the playlist source.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// Enabled reports whether credentials for the playlist source are set.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("VENUEBOX_SESSION_ID"); v != "" {
		c.Session.ID = v
	}
	if v := os.Getenv("VENUEBOX_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// NextDebounce returns the orchestrator debounce window.
func (c *Config) NextDebounce() time.Duration {
	return time.Duration(c.Playback.NextDebounceMs) * time.Millisecond
}

// StoreDebounce returns the persistence debounce window.
func (c *Config) StoreDebounce() time.Duration {
	return time.Duration(c.Store.DebounceMs) * time.Millisecond
}

// IsPolicyEnabled checks if a queue policy is enabled.
func (c *Config) IsPolicyEnabled(name string) bool {
	if p, ok := c.Policies[name]; ok {
		return p.Enabled
	}
	return false
}

// PolicySetting returns one setting value for a policy, or nil.
func (c *Config) PolicySetting(name, key string) any {
	if p, ok := c.Policies[name]; ok {
		return p.Settings[key]
	}
	return nil
}
