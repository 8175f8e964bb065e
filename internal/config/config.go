// Package config loads service configuration from an optional YAML file and
// environment variables. Environment variables win over the file, and the
// file wins over defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address
	// Default: ":8080"
	ListenAddr string `yaml:"listen_addr"`

	// StorageBackend selects the storage implementation: "sqlite" or "postgres"
	// Default: "sqlite"
	StorageBackend string `yaml:"storage_backend"`

	// SQLitePath is the SQLite database file path (sqlite backend only)
	// Default: "lotno.db"
	SQLitePath string `yaml:"sqlite_path"`

	// Postgres connection settings (postgres backend only)
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     int    `yaml:"postgres_port"`
	PostgresDatabase string `yaml:"postgres_database"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	// NumberPrefix is prepended to every document number
	// Default: "FR/QA"
	NumberPrefix string `yaml:"number_prefix"`

	// Timezone is the IANA zone used to compute the reconciliation week window
	// Default: "Asia/Jakarta"
	Timezone string `yaml:"timezone"`

	// UploadsDir is where scan photos are stored
	// Default: "uploads"
	UploadsDir string `yaml:"uploads_dir"`

	// MaxUploadBytes caps the size of a single photo upload
	// Default: 10 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// LogLevel is the zap log level: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		ListenAddr:       ":8080",
		StorageBackend:   "sqlite",
		SQLitePath:       "lotno.db",
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresDatabase: "lotno",
		PostgresUser:     "lotno",
		PostgresSSLMode:  "prefer",
		NumberPrefix:     "FR/QA",
		Timezone:         "Asia/Jakarta",
		UploadsDir:       "uploads",
		MaxUploadBytes:   10 << 20,
		LogLevel:         "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment variables.
//
// Environment variables:
//   - LOTNO_LISTEN_ADDR: HTTP listen address (default: ":8080")
//   - LOTNO_STORAGE_BACKEND: "sqlite" or "postgres" (default: "sqlite")
//   - LOTNO_SQLITE_PATH: SQLite database file path (default: "lotno.db")
//   - LOTNO_POSTGRES_HOST, LOTNO_POSTGRES_PORT, LOTNO_POSTGRES_DATABASE,
//     LOTNO_POSTGRES_USER, LOTNO_POSTGRES_PASSWORD, LOTNO_POSTGRES_SSLMODE
//   - LOTNO_NUMBER_PREFIX: document number prefix (default: "FR/QA")
//   - LOTNO_TIMEZONE: IANA zone for the week window (default: "Asia/Jakarta")
//   - LOTNO_UPLOADS_DIR: photo storage directory (default: "uploads")
//   - LOTNO_MAX_UPLOAD_BYTES: per-photo size cap (default: 10485760)
//   - LOTNO_LOG_LEVEL: "debug", "info", "warn", "error" (default: "info")
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := parseEnvString("LOTNO_LISTEN_ADDR", &cfg.ListenAddr); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_STORAGE_BACKEND", &cfg.StorageBackend); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_SQLITE_PATH", &cfg.SQLitePath); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_POSTGRES_HOST", &cfg.PostgresHost); err != nil {
		return nil, err
	}
	if err := parseEnvInt("LOTNO_POSTGRES_PORT", &cfg.PostgresPort); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_POSTGRES_DATABASE", &cfg.PostgresDatabase); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_POSTGRES_USER", &cfg.PostgresUser); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_POSTGRES_PASSWORD", &cfg.PostgresPassword); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_POSTGRES_SSLMODE", &cfg.PostgresSSLMode); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_NUMBER_PREFIX", &cfg.NumberPrefix); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_TIMEZONE", &cfg.Timezone); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_UPLOADS_DIR", &cfg.UploadsDir); err != nil {
		return nil, err
	}
	if err := parseEnvInt64("LOTNO_MAX_UPLOAD_BYTES", &cfg.MaxUploadBytes); err != nil {
		return nil, err
	}
	if err := parseEnvString("LOTNO_LOG_LEVEL", &cfg.LogLevel); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	switch c.StorageBackend {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if c.PostgresHost == "" {
			return fmt.Errorf("postgres_host is required for the postgres backend")
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("postgres_port must be between 1 and 65535 (got %d)", c.PostgresPort)
		}
		if c.PostgresDatabase == "" {
			return fmt.Errorf("postgres_database is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage_backend must be 'sqlite' or 'postgres' (got %q)", c.StorageBackend)
	}

	if c.NumberPrefix == "" {
		return fmt.Errorf("number_prefix is required")
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("max_upload_bytes must be positive (got %d)", c.MaxUploadBytes)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error' (got %q)", c.LogLevel)
	}

	return nil
}

// Location returns the configured timezone. Validate must have passed.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt64 parses an int64 from an environment variable
func parseEnvInt64(key string, dest *int64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
