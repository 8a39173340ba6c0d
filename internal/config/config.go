// Package config loads and validates the mcp-docsrs configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/vexxvakan/mcp-docsrs/internal/cache"
	"github.com/vexxvakan/mcp-docsrs/internal/docsrs"
)

// DefaultPath is the configuration file looked up when no -config flag
// is given. A missing default file is not an error; defaults apply.
const DefaultPath = "mcp-docsrs.toml"

// Config mirrors the mcp-docsrs TOML/YAML schema. Durations are plain
// millisecond integers so the file format stays trivially portable.
type Config struct {
	// CacheTTLMs is the entry lifetime in milliseconds.
	CacheTTLMs int64 `toml:"cache_ttl_ms" yaml:"cache_ttl_ms"`

	// MaxCacheSize is the maximum number of cached payloads.
	MaxCacheSize int `toml:"max_cache_size" yaml:"max_cache_size"`

	// RequestTimeoutMs bounds one docs.rs fetch in milliseconds.
	RequestTimeoutMs int64 `toml:"request_timeout_ms" yaml:"request_timeout_ms"`

	// DBPath is the SQLite location; ":memory:" keeps the cache volatile.
	DBPath string `toml:"db_path" yaml:"db_path"`

	// BaseURL is the upstream documentation host.
	BaseURL string `toml:"base_url" yaml:"base_url"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose" yaml:"verbose"`
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		CacheTTLMs:       3_600_000,
		MaxCacheSize:     100,
		RequestTimeoutMs: 30_000,
		DBPath:           cache.InMemory,
		BaseURL:          docsrs.DefaultBaseURL,
	}
}

// Load reads the file at path on top of the defaults. The format is
// chosen by extension: .toml, or .yaml/.yml.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the cache and fetcher cannot operate with.
func (c Config) Validate() error {
	if c.CacheTTLMs <= 0 {
		return fmt.Errorf("cache_ttl_ms must be positive, got %d", c.CacheTTLMs)
	}
	if c.MaxCacheSize <= 0 {
		return fmt.Errorf("max_cache_size must be positive, got %d", c.MaxCacheSize)
	}
	if c.RequestTimeoutMs <= 0 {
		return fmt.Errorf("request_timeout_ms must be positive, got %d", c.RequestTimeoutMs)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path must be a filesystem path or %q", cache.InMemory)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	return nil
}

// CacheTTL returns the entry lifetime as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMs) * time.Millisecond
}

// RequestTimeout returns the per-fetch timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}
