// Package config loads propfinder settings from defaults, an optional config
// file and PROPFINDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Benny93/propfinder-go/internal/backend"
	"github.com/Benny93/propfinder-go/internal/dataset"
	"github.com/Benny93/propfinder-go/internal/finder"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. PROPFINDER_SERVER_PORT.
const EnvPrefix = "PROPFINDER"

// DefaultPort is the port the search API listens on.
const DefaultPort = 12576

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Backend is the remote search service
	Backend backend.Config `mapstructure:"backend"`

	// Cache configuration for backend answers
	Cache CacheConfig `mapstructure:"cache"`

	// Data names the static input tables
	Data dataset.Files `mapstructure:"data"`

	// Finder tunes the search pipeline
	Finder finder.Config `mapstructure:"finder"`

	// Watch configuration for data hot reload
	Watch WatchConfig `mapstructure:"watch"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig holds search cache configuration
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Dir        string        `mapstructure:"dir"` // empty keeps the cache in memory
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"` // memory cache only
}

// WatchConfig holds data directory watch configuration
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
	Ignore   []string      `mapstructure:"ignore"` // gitignore-style patterns
}

// Load loads configuration from file and environment variables. An empty
// path looks for propfinder.yaml in the working directory and is not an
// error when none exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("propfinder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if c.Finder.QuerySize <= 0 {
		errs = append(errs, fmt.Errorf("finder.query_size must be positive, got %d", c.Finder.QuerySize))
	}
	if c.Backend.Breaker.ReadyToTripRatio < 0 || c.Backend.Breaker.ReadyToTripRatio > 1 {
		errs = append(errs, fmt.Errorf("backend.breaker.ready_to_trip_ratio %v must be within [0,1]", c.Backend.Breaker.ReadyToTripRatio))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.mode", "release")

	// Backend defaults
	bc := backend.DefaultConfig()
	v.SetDefault("backend.base_url", bc.BaseURL)
	v.SetDefault("backend.timeout", bc.Timeout)
	v.SetDefault("backend.language", bc.Language)
	v.SetDefault("backend.breaker.enabled", bc.Breaker.Enabled)
	v.SetDefault("backend.breaker.max_requests", bc.Breaker.MaxRequests)
	v.SetDefault("backend.breaker.interval", bc.Breaker.Interval)
	v.SetDefault("backend.breaker.timeout", bc.Breaker.Timeout)
	v.SetDefault("backend.breaker.min_requests", bc.Breaker.MinRequests)
	v.SetDefault("backend.breaker.ready_to_trip_ratio", bc.Breaker.ReadyToTripRatio)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.max_entries", storage.DefaultMaxEntries)

	// Data defaults
	files := dataset.DefaultFiles("data")
	v.SetDefault("data.dir", files.Dir)
	v.SetDefault("data.labels", files.Labels)
	v.SetDefault("data.aliases", files.Aliases)
	v.SetDefault("data.descriptions", files.Descriptions)
	v.SetDefault("data.datatypes", files.Datatypes)
	v.SetDefault("data.metadata", files.Metadata)
	v.SetDefault("data.claims_counts", files.ClaimsCounts)
	v.SetDefault("data.qualifiers_counts", files.QualifiersCounts)
	v.SetDefault("data.total_counts", files.TotalCounts)
	v.SetDefault("data.claims_properties", files.ClaimsProperties)
	v.SetDefault("data.constraints", files.Constraints)
	v.SetDefault("data.words", files.Words)
	v.SetDefault("data.relations", relationDefaults(files.Relations))

	// Finder defaults
	fc := finder.DefaultConfig()
	v.SetDefault("finder.query_size", fc.QuerySize)
	v.SetDefault("finder.expand.split_words", fc.Expand.SplitWords)
	v.SetDefault("finder.expand.partial_queries", fc.Expand.PartialQueries)
	v.SetDefault("finder.expand.fragment_max_len", fc.Expand.FragmentMaxLen)
	v.SetDefault("finder.relations.related", relationNames(fc.Relations.Related))
	v.SetDefault("finder.relations.see_also", relationNames(fc.Relations.SeeAlso))

	// Watch defaults
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce", 2*time.Second)
	v.SetDefault("watch.ignore", []string{".*", "*~", "*.tmp", "*.swp"})
}

func relationDefaults(specs []graph.RelationSpec) []map[string]any {
	out := make([]map[string]any, len(specs))
	for i, s := range specs {
		out[i] = map[string]any{
			"name":          string(s.Name),
			"bidirectional": s.Bidirectional,
		}
	}
	return out
}

func relationNames(names []graph.RelationName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
