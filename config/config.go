// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Rate limiter backends.
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	// Debug adds internal error details to 500 responses.
	Debug bool `yaml:"debug"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // "sqlite3" or "postgres"
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     *bool         `yaml:"auto_migrate"` // default: true
}

// MigrateOnStart reports whether serve applies migrations before listening.
func (d DatabaseConfig) MigrateOnStart() bool {
	return d.AutoMigrate == nil || *d.AutoMigrate
}

// AuthConfig configures token issuing and password hashing.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret,omitempty"` // random per process when empty
	Issuer     string        `yaml:"issuer"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// SecurityConfig configures request throttling.
type SecurityConfig struct {
	LoginRateLimit RateLimitConfig `yaml:"login_rate_limit"`
	Redis          RedisConfig     `yaml:"redis,omitempty"`
}

// RateLimitConfig configures one limiter.
type RateLimitConfig struct {
	Enabled *bool         `yaml:"enabled"` // default: true
	Backend string        `yaml:"backend"` // "memory" or "redis"
	Limit   int           `yaml:"limit"`   // requests per window
	Window  time.Duration `yaml:"window"`
}

// IsEnabled reports whether the limiter is installed.
func (r RateLimitConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // Enable /system/metrics
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references and applying
// CRUDGATE_* overrides and defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	CRUDGATE_SERVER_HOST          - Server host (default: 0.0.0.0)
//	CRUDGATE_SERVER_PORT          - Server port (default: 8080)
//	CRUDGATE_DATABASE_DRIVER      - sqlite3 or postgres (default: sqlite3)
//	CRUDGATE_DATABASE_DSN         - Database DSN (default: crudgate.db)
//	CRUDGATE_AUTH_JWT_SECRET      - Token signing secret
//	CRUDGATE_AUTH_TOKEN_TTL       - Token lifetime (default: 24h)
//	CRUDGATE_RATELIMIT_ENABLED    - Throttle POST /auth/login (default: true)
//	CRUDGATE_RATELIMIT_BACKEND    - memory or redis (default: memory)
//	CRUDGATE_REDIS_URL            - Redis URL for the redis backend
//	CRUDGATE_LOG_LEVEL            - Log level (default: info)
//	CRUDGATE_LOG_FORMAT           - json or console (default: json)
//	CRUDGATE_METRICS_ENABLED      - Enable /system/metrics (default: true)
//	CRUDGATE_DEBUG                - Include error details in 500 responses
func LoadFromEnv() (*Config, error) {
	return Parse(nil)
}

// LoadWithFallback loads path when it exists and falls back to the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies CRUDGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("CRUDGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CRUDGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CRUDGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("CRUDGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("CRUDGATE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CRUDGATE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Auth configuration
	if v := os.Getenv("CRUDGATE_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("CRUDGATE_AUTH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}

	// Rate limit configuration
	if v := os.Getenv("CRUDGATE_RATELIMIT_ENABLED"); v != "" {
		enabled := parseBool(v)
		cfg.Security.LoginRateLimit.Enabled = &enabled
	}
	if v := os.Getenv("CRUDGATE_RATELIMIT_BACKEND"); v != "" {
		cfg.Security.LoginRateLimit.Backend = v
	}
	if v := os.Getenv("CRUDGATE_RATELIMIT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.LoginRateLimit.Limit = n
		}
	}
	if v := os.Getenv("CRUDGATE_REDIS_URL"); v != "" {
		cfg.Security.Redis.URL = v
	}

	// Logging configuration
	if v := os.Getenv("CRUDGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRUDGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("CRUDGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CRUDGATE_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Database.Driver == "" || cfg.Database.Driver == "sqlite" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == DriverSQLite {
		cfg.Database.DSN = "crudgate.db"
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "crudgate"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}

	rl := &cfg.Security.LoginRateLimit
	if rl.Backend == "" {
		rl.Backend = LimiterMemory
	}
	if rl.Limit == 0 {
		rl.Limit = 5
	}
	if rl.Window == 0 {
		rl.Window = time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be 'sqlite3' or 'postgres', got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if cfg.Auth.BcryptCost != 0 && (cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31) {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	rl := cfg.Security.LoginRateLimit
	switch rl.Backend {
	case LimiterMemory:
	case LimiterRedis:
		if rl.IsEnabled() && cfg.Security.Redis.URL == "" {
			return fmt.Errorf("security.redis.url is required when security.login_rate_limit.backend is 'redis'")
		}
	default:
		return fmt.Errorf("security.login_rate_limit.backend must be 'memory' or 'redis', got %q", rl.Backend)
	}
	if rl.Limit < 0 || rl.Window < 0 {
		return fmt.Errorf("security.login_rate_limit limit and window must be positive")
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
