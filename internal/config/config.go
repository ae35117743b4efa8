// Package config loads clickchess settings from an optional YAML file and
// CLICKCHESS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Log configures the process logger.
type Log struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // console | json
	File    string `yaml:"file"`   // empty disables the file sink
	Console bool   `yaml:"console"`
}

// Engine configures the external search engine.
type Engine struct {
	Path     string        `yaml:"path"`
	Args     []string      `yaml:"args"`
	MoveTime time.Duration `yaml:"move_time"`
	Enabled  bool          `yaml:"enabled"`
}

// Server configures the command API and the event feed listeners.
type Server struct {
	APIAddr    string `yaml:"api_addr"`
	EventsAddr string `yaml:"events_addr"`
}

// Config is the full application configuration.
type Config struct {
	Log         Log           `yaml:"log"`
	DataDir     string        `yaml:"data_dir"` // empty means the per-user default
	Engine      Engine        `yaml:"engine"`
	RedisURL    string        `yaml:"redis_url"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
	DatabaseURL string        `yaml:"database_url"`
	Server      Server        `yaml:"server"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: Log{
			Level:   "info",
			Format:  "console",
			Console: true,
		},
		Engine: Engine{
			MoveTime: 3 * time.Second,
		},
		SnapshotTTL: 24 * time.Hour,
		Server: Server{
			APIAddr:    "127.0.0.1:8700",
			EventsAddr: "127.0.0.1:8701",
		},
	}
}

// Load reads path (if non-empty and present), then applies environment
// overrides. Invalid override values are ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := getenv("CLICKCHESS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("CLICKCHESS_LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	if v := getenv("CLICKCHESS_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := getenv("CLICKCHESS_LOG_CONSOLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Log.Console = b
		}
	}
	if v := getenv("CLICKCHESS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("CLICKCHESS_ENGINE_PATH"); v != "" {
		c.Engine.Path = v
	}
	if v := getenv("CLICKCHESS_ENGINE_MOVE_TIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Engine.MoveTime = d
		}
	}
	if v := getenv("CLICKCHESS_ENGINE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Engine.Enabled = b
		}
	}
	if v := getenv("CLICKCHESS_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := getenv("CLICKCHESS_SNAPSHOT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.SnapshotTTL = d
		}
	}
	if v := getenv("CLICKCHESS_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("CLICKCHESS_API_ADDR"); v != "" {
		c.Server.APIAddr = v
	}
	if v := getenv("CLICKCHESS_EVENTS_ADDR"); v != "" {
		c.Server.EventsAddr = v
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Engine.MoveTime <= 0 {
		return fmt.Errorf("%w: engine move time %s", ErrInvalidConfig, c.Engine.MoveTime)
	}
	if c.Engine.Enabled && strings.TrimSpace(c.Engine.Path) == "" {
		return fmt.Errorf("%w: engine enabled without a path", ErrInvalidConfig)
	}
	if c.SnapshotTTL < 0 {
		return fmt.Errorf("%w: snapshot ttl %s", ErrInvalidConfig, c.SnapshotTTL)
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
