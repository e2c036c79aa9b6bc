// Package config collects the runtime settings. Everything comes from the
// environment, optionally seeded from a .env file, and everything has a
// working default so the binary runs with no configuration at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"logscope/internal/ingestion"
	"logscope/internal/query"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// Port the HTTP API listens on.
	Port int

	// ShardCount is the number of parallel parse shards per ingestion.
	ShardCount int

	// ChunkSize bounds lines parsed between progress signals.
	ChunkSize int

	// PageSize is the default page size for new sessions.
	PageSize int

	// GeoIPCityDB and GeoIPASNDB are optional MaxMind database paths;
	// empty disables geo enrichment.
	GeoIPCityDB string
	GeoIPASNDB  string

	// Format selects the line parser: "accesslog" for the text formats,
	// "jsonlog" for structured JSON access logs.
	Format string

	// WatchPath, when set, names a log file to ingest and re-ingest on
	// change.
	WatchPath string

	// LogLevel selects the logger verbosity: debug, info, warn, error.
	LogLevel string
}

// Load reads the environment, seeded from .env when one exists, and
// validates the result. A missing .env file is not an error.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:        envInt("LOGSCOPE_PORT", 8080),
		ShardCount:  envInt("LOGSCOPE_SHARDS", ingestion.DefaultShards),
		ChunkSize:   envInt("LOGSCOPE_CHUNK_SIZE", 0),
		PageSize:    envInt("LOGSCOPE_PAGE_SIZE", query.DefaultPageSize),
		Format:      envDefault("LOGSCOPE_FORMAT", "accesslog"),
		GeoIPCityDB: os.Getenv("LOGSCOPE_GEOIP_CITY_DB"),
		GeoIPASNDB:  os.Getenv("LOGSCOPE_GEOIP_ASN_DB"),
		WatchPath:   os.Getenv("LOGSCOPE_WATCH"),
		LogLevel:    envDefault("LOGSCOPE_LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("LOGSCOPE_PORT: %d is not a valid port", c.Port)
	}
	if c.ShardCount < 1 {
		return fmt.Errorf("LOGSCOPE_SHARDS: must be at least 1, got %d", c.ShardCount)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("LOGSCOPE_PAGE_SIZE: must be at least 1, got %d", c.PageSize)
	}
	switch c.Format {
	case "accesslog", "jsonlog":
	default:
		return fmt.Errorf("LOGSCOPE_FORMAT: unknown format %q", c.Format)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOGSCOPE_LOG_LEVEL: unknown level %q", c.LogLevel)
	}
	return nil
}

// Addr formats the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
