// Package config loads fieldsync configuration from a YAML file and
// FIELDSYNC_* environment variables.
//
// Precedence, lowest first: built-in defaults, the YAML file, the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete fieldsync configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Sync     SyncConfig     `yaml:"sync"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// CacheConfig selects the identity cache backend.
type CacheConfig struct {
	Backend string      `yaml:"backend"` // memory|redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis identity cache backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// SyncConfig holds the types given to records the engine creates.
type SyncConfig struct {
	BillingLocationType  string `yaml:"billing_location_type"`
	ShippingLocationType string `yaml:"shipping_location_type"`
	PhoneType            string `yaml:"phone_type"`
	PhoneLocationType    string `yaml:"phone_location_type"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "fieldsync.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Cache: CacheConfig{
			Backend: CacheMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "fieldsync:identity:",
				TTL:    10 * time.Minute,
			},
		},
		Sync: SyncConfig{
			BillingLocationType:  "Billing",
			ShippingLocationType: "Home",
			PhoneType:            "Phone",
			PhoneLocationType:    "Billing",
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result. Unknown YAML keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from FIELDSYNC_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"FIELDSYNC_DB":             &c.Database.Path,
		"FIELDSYNC_LOG_LEVEL":      &c.Log.Level,
		"FIELDSYNC_LOG_FORMAT":     &c.Log.Format,
		"FIELDSYNC_CACHE_BACKEND":  &c.Cache.Backend,
		"FIELDSYNC_REDIS_ADDR":     &c.Cache.Redis.Addr,
		"FIELDSYNC_REDIS_PASSWORD": &c.Cache.Redis.Password,
		"FIELDSYNC_REDIS_PREFIX":   &c.Cache.Redis.Prefix,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("FIELDSYNC_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FIELDSYNC_REDIS_DB: %w", err)
		}
		c.Cache.Redis.DB = n
	}
	if v, ok := lookup("FIELDSYNC_REDIS_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FIELDSYNC_REDIS_TTL: %w", err)
		}
		c.Cache.Redis.TTL = d
	}
	return nil
}

// Validate checks enumerated values and required fields.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
		if c.Cache.Redis.TTL < 0 {
			errs = append(errs, errors.New("cache.redis.ttl must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q: want memory or redis", c.Cache.Backend))
	}

	return errors.Join(errs...)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", s, err)
	}
	return l, nil
}
