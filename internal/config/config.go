package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Lookup    LookupConfig
	Roblox    RobloxConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Addr string
}

// LookupConfig points the controller's client at a running backend.
type LookupConfig struct {
	BaseURL string
	Timeout time.Duration // zero waits indefinitely
}

type RobloxConfig struct {
	Timeout   time.Duration
	RateRPS   int
	RateBurst int
}

type RateLimitConfig struct {
	RPS   int
	Burst int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8080"),
		},
		Lookup: LookupConfig{
			BaseURL: strings.TrimRight(getEnv("LOOKUP_BASE_URL", "http://localhost:8080"), "/"),
			Timeout: time.Duration(getEnvInt("LOOKUP_TIMEOUT_SECONDS", 0)) * time.Second,
		},
		Roblox: RobloxConfig{
			Timeout:   time.Duration(getEnvInt("ROBLOX_TIMEOUT_SECONDS", 10)) * time.Second,
			RateRPS:   getEnvInt("ROBLOX_RATE_RPS", 10),
			RateBurst: getEnvInt("ROBLOX_RATE_BURST", 20),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvInt("RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Postgres: PostgresConfig{
			Enabled:  getEnvBool("POSTGRES_ENABLED", false),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "profiles"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	if c.Lookup.BaseURL == "" {
		return fmt.Errorf("LOOKUP_BASE_URL is required")
	}
	if u, err := url.Parse(c.Lookup.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("LOOKUP_BASE_URL must be an absolute URL: %q", c.Lookup.BaseURL)
	}
	if c.Lookup.Timeout < 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT_SECONDS must not be negative")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.Roblox.RateRPS <= 0 || c.Roblox.RateBurst <= 0 {
		return fmt.Errorf("ROBLOX_RATE_RPS and ROBLOX_RATE_BURST must be positive")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required when REDIS_ENABLED is set")
	}
	if c.Postgres.Enabled && c.Postgres.Database == "" {
		return fmt.Errorf("POSTGRES_DB is required when POSTGRES_ENABLED is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
