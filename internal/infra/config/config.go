// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	API      APIConfig               `yaml:"api"`
	Backend  BackendConfig           `yaml:"backend"`
	Cache    CacheConfig             `yaml:"cache"`
	Fetch    FetchConfig             `yaml:"fetch"`
	Playback PlaybackConfig          `yaml:"playback"`
	Queue    QueueConfig             `yaml:"queue"`
	Store    StoreConfig             `yaml:"store"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// APIConfig represents API access configuration.
type APIConfig struct {
	Token string `yaml:"token"` // Empty disables authentication
}

// BackendConfig represents the remote catalog backend.
type BackendConfig struct {
	URL               string  `yaml:"url" default:"http://localhost:55001" validate:"required,url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" default:"4" validate:"gt=0"`
	Burst             int     `yaml:"burst" default:"8" validate:"gte=1"`
	TimeoutSec        int     `yaml:"timeout_sec" default:"30" validate:"gte=1"`
}

// CacheConfig represents the audio cache configuration.
type CacheConfig struct {
	CapacityMB int `yaml:"capacity_mb" default:"512" validate:"gte=0"` // 0 means unbounded
}

// FetchConfig represents download tuning.
type FetchConfig struct {
	ChunkKB           int `yaml:"chunk_kb" default:"32" validate:"gte=1"`
	PrebufferKB       int `yaml:"prebuffer_kb" default:"256" validate:"gte=0"`
	MetadataCacheSize int `yaml:"metadata_cache_size" default:"512" validate:"gte=1"`
}

// PlaybackConfig represents audio output configuration.
type PlaybackConfig struct {
	Output             string  `yaml:"output" default:"speaker" validate:"oneof=speaker clock"`
	SampleRate         int     `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs           int     `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	ProgressIntervalMs int     `yaml:"progress_interval_ms" default:"1000" validate:"gte=50,lte=60000"`
	Volume             float64 `yaml:"volume" default:"0.8" validate:"gte=0,lte=1"`
}

// QueueConfig represents queue policy configuration.
// Pointers keep an explicit false apart from an unset value.
type QueueConfig struct {
	AutoPlay      *bool `yaml:"auto_play" default:"true"`
	ConsumePlayed bool  `yaml:"consume_played"`
	Lookahead     *bool `yaml:"lookahead" default:"true"`
}

// StoreConfig represents persistence configuration.
type StoreConfig struct {
	SongsDB     string `yaml:"songs_db" default:"data/songs.db" validate:"required"`
	PlaylistDir string `yaml:"playlist_dir" default:"data/playlists" validate:"required"`
	StateFile   string `yaml:"state_file" default:"data/state.yaml" validate:"required"` // Queue and volume across restarts
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success               string `yaml:"success" default:"Added to the queue"`
	DefaultError          string `yaml:"default_error" default:"The song could not be added"`
	DuplicateSong         string `yaml:"duplicate_song" default:"The song is already in the queue"`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded" default:"The song is too long or too short"`
	QueueFull             string `yaml:"queue_full" default:"The queue is full"`
	TimeLimitExceeded     string `yaml:"time_limit_exceeded" default:"The queue is too long"`
	BlockedTag            string `yaml:"blocked_tag" default:"The song is not allowed"`
	SongNotFound          string `yaml:"song_not_found" default:"The song was not found"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("QUEUEBOX_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("QUEUEBOX_API_TOKEN"); v != "" {
		c.API.Token = v
	}
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "duplicate_song":
		return c.Messages.DuplicateSong
	case "duration_limit_exceeded":
		return c.Messages.DurationLimitExceeded
	case "queue_full":
		return c.Messages.QueueFull
	case "time_limit_exceeded":
		return c.Messages.TimeLimitExceeded
	case "blocked_tag":
		return c.Messages.BlockedTag
	case "song_not_found":
		return c.Messages.SongNotFound
	default:
		return c.Messages.DefaultError
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

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// AutoPlay reports whether enqueueing into an idle player starts playback.
func (c *Config) AutoPlay() bool {
	return c.Queue.AutoPlay == nil || *c.Queue.AutoPlay
}

// Lookahead reports whether the next song is prefetched.
func (c *Config) Lookahead() bool {
	return c.Queue.Lookahead == nil || *c.Queue.Lookahead
}

// CacheCapacity returns the cache capacity in bytes, 0 when unbounded.
func (c *Config) CacheCapacity() int64 {
	return int64(c.Cache.CapacityMB) << 20
}

// BackendTimeout returns the per-request timeout of the backend client.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSec) * time.Second
}

// ProgressInterval returns the playback progress interval.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Playback.ProgressIntervalMs) * time.Millisecond
}

// OutputBuffer returns the audio output buffer length.
func (c *Config) OutputBuffer() time.Duration {
	return time.Duration(c.Playback.BufferMs) * time.Millisecond
}
