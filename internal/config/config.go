package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Dataset DatasetConfig
	Geocode GeocodeConfig
	Detail  DetailConfig
	Cache   CacheConfig
	Graph   GraphConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	AllowedOrigins  []string
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatasetConfig sizes the generated snapshot and the table page.
type DatasetConfig struct {
	Size     int
	Seed     int64
	PageSize int
}

// GeocodeConfig points at the reverse-geocode provider.
type GeocodeConfig struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// DetailConfig bounds the open detail views.
type DetailConfig struct {
	ViewTTL  time.Duration
	MaxViews int
}

// CacheConfig enables the Redis geocode cache when URL is set.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// GraphConfig describes connectivity to the graph store used for snapshot
// export. An empty URI disables export.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	Workers        int
	BatchSize      int
}

// Enabled reports whether a graph store is configured.
func (c GraphConfig) Enabled() bool {
	return c.URI != ""
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultDatasetSize      = 100
	defaultPageSize         = 50
	defaultGeocodeBaseURL   = "https://api.mapbox.com/search/geocode/v6/reverse"
	defaultGeocodeTimeout   = 5 * time.Second
	defaultCacheTTL         = 24 * time.Hour
	defaultDetailViewTTL    = 30 * time.Minute
	defaultDetailMaxViews   = 1000
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultGraphWorkers     = 4
	defaultGraphBatchSize   = 25
)

// Load reads a .env file when one exists, then configuration from environment
// variables, applying defaults. Variables already set in the environment win
// over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Host:           valueOrDefault("SERVER_HOST", defaultHost),
			MetricsEnabled: parseBoolWithDefault("SERVER_METRICS_ENABLED", true),
			AllowedOrigins: splitCSV(os.Getenv("SERVER_ALLOWED_ORIGINS")),
		},
		Dataset: DatasetConfig{
			Size:     parseIntWithDefault("DATASET_SIZE", defaultDatasetSize),
			PageSize: parseIntWithDefault("DATASET_PAGE_SIZE", defaultPageSize),
		},
		Geocode: GeocodeConfig{
			AccessToken: os.Getenv("MAPBOX_ACCESS_TOKEN"),
			BaseURL:     valueOrDefault("GEOCODE_BASE_URL", defaultGeocodeBaseURL),
		},
		Detail: DetailConfig{
			MaxViews: parseIntWithDefault("DETAIL_MAX_VIEWS", defaultDetailMaxViews),
		},
		Cache: CacheConfig{
			RedisURL: os.Getenv("REDIS_URL"),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
			Workers:        parseIntWithDefault("GRAPH_EXPORT_WORKERS", defaultGraphWorkers),
			BatchSize:      parseIntWithDefault("GRAPH_EXPORT_BATCH_SIZE", defaultGraphBatchSize),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"GEOCODE_TIMEOUT", defaultGeocodeTimeout, &cfg.Geocode.Timeout},
		{"GEOCODE_CACHE_TTL", defaultCacheTTL, &cfg.Cache.TTL},
		{"DETAIL_VIEW_TTL", defaultDetailViewTTL, &cfg.Detail.ViewTTL},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if v := os.Getenv("DATASET_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DATASET_SEED value %q: %w", v, err)
		}
		cfg.Dataset.Seed = seed
	}

	if cfg.Dataset.Size < 0 {
		return Config{}, fmt.Errorf("DATASET_SIZE must be non-negative, got %d", cfg.Dataset.Size)
	}
	if cfg.Detail.MaxViews <= 0 {
		return Config{}, fmt.Errorf("DETAIL_MAX_VIEWS must be positive, got %d", cfg.Detail.MaxViews)
	}
	if cfg.Dataset.PageSize <= 0 {
		return Config{}, fmt.Errorf("DATASET_PAGE_SIZE must be positive, got %d", cfg.Dataset.PageSize)
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
