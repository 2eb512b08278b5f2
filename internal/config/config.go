// Package config loads Booklog configuration from command-line flags,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreBadger = "badger"
	StoreMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Metadata MetadataConfig
	Server   ServerConfig
	Auth     AuthConfig
	Store    StoreConfig
	Catalog  CatalogConfig
	Reading  ReadingConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// MetadataConfig locates on-disk state: the badger database, the auth key
// and the shelf search index all live under BasePath.
type MetadataConfig struct {
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AuthConfig holds token configuration.
type AuthConfig struct {
	// AccessTokenKey is the 32-byte PASETO v4 key, set by auth.LoadOrGenerateKey at startup.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend       string // badger or mongo
	MongoURI      string
	MongoDatabase string
}

// CatalogConfig configures the Google Books client.
type CatalogConfig struct {
	APIKey         string
	BaseURL        string // empty uses the public endpoint
	RatePerMinute  int
	RequestTimeout time.Duration
	RedisAddr      string // empty disables the response cache
	CacheTTL       time.Duration
}

// ReadingConfig holds reading-tracker configuration.
type ReadingConfig struct {
	// TimeZone decides where a calendar day starts for daily counters.
	TimeZone string
	Location *time.Location
}

// LoadConfig loads configuration using the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a Config with precedence flags > environment > .env file > defaults.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("booklog", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	metadataPath := fs.String("metadata-path", "", "Base path for local data")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	port := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (default: 24h)")

	storeBackend := fs.String("store", "", "Document store backend: badger or mongo")
	mongoURI := fs.String("mongo-uri", "", "MongoDB connection string")
	mongoDB := fs.String("mongo-database", "", "MongoDB database name")

	catalogKey := fs.String("google-books-key", "", "Google Books API key")
	catalogURL := fs.String("google-books-url", "", "Override Google Books endpoint")
	catalogRate := fs.String("catalog-rate", "", "Catalog requests per minute (default: 60)")
	redisAddr := fs.String("redis-addr", "", "Redis address for catalog cache")
	cacheTTL := fs.String("catalog-cache-ttl", "", "Catalog cache TTL (default: 6h)")

	timeZone := fs.String("time-zone", "", "Time zone for daily reading counters (default: Local)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env file is fine; existing environment variables win.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App:      AppConfig{Environment: getConfigValue(*env, "ENV", "development")},
		Logger:   LoggerConfig{Level: getConfigValue(*logLevel, "LOG_LEVEL", "info")},
		Metadata: MetadataConfig{BasePath: getConfigValue(*metadataPath, "METADATA_PATH", "")},
		Server: ServerConfig{
			Port: getConfigValue(*port, "SERVER_PORT", "8080"),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getConfigValue(*storeBackend, "STORE_BACKEND", StoreBadger)),
			MongoURI:      getConfigValue(*mongoURI, "MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getConfigValue(*mongoDB, "MONGO_DATABASE", "booklog"),
		},
		Catalog: CatalogConfig{
			APIKey:        getConfigValue(*catalogKey, "GOOGLE_BOOKS_API_KEY", ""),
			BaseURL:       getConfigValue(*catalogURL, "GOOGLE_BOOKS_URL", ""),
			RatePerMinute: getIntConfigValue(*catalogRate, "CATALOG_RATE_PER_MINUTE", 60),
			RedisAddr:     getConfigValue(*redisAddr, "REDIS_ADDR", ""),
		},
		Reading: ReadingConfig{TimeZone: getConfigValue(*timeZone, "READING_TIME_ZONE", "Local")},
	}

	durations := []struct {
		flagValue, envKey, def string
		dst                    *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", &cfg.Auth.AccessTokenDuration},
		{*cacheTTL, "CATALOG_CACHE_TTL", "6h", &cfg.Catalog.CacheTTL},
		{"", "CATALOG_REQUEST_TIMEOUT", "30s", &cfg.Catalog.RequestTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	loc, err := time.LoadLocation(cfg.Reading.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", cfg.Reading.TimeZone, err)
	}
	cfg.Reading.Location = loc

	if err := cfg.expandMetadataPath(); err != nil {
		return nil, fmt.Errorf("invalid metadata path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Metadata.BasePath == "" {
		return errors.New("metadata base path cannot be empty after expansion")
	}

	switch c.Store.Backend {
	case StoreBadger:
	case StoreMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return errors.New("mongo store requires MONGO_URI and MONGO_DATABASE")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be badger or mongo)", c.Store.Backend)
	}

	if c.Catalog.RatePerMinute <= 0 {
		return fmt.Errorf("catalog rate must be positive, got %d", c.Catalog.RatePerMinute)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute. An empty path yields defaultPath.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return filepath.Clean(abs), nil
}

func (c *Config) expandMetadataPath() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Metadata.BasePath, filepath.Join(home, "Booklog", "data"))
	if err != nil {
		return err
	}
	c.Metadata.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value of flag, environment, default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// getIntConfigValue is getConfigValue for integers; unparsable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}
