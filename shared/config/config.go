package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	ServiceName string
	Port        string
	Debug       bool
	LogLevel    string

	StorageDriver  string
	DatabaseURL    string
	MigrateOnStart bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL string

	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment are not overridden by the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		ServiceName:   getEnv("SERVICE_NAME", "balance-service"),
		Port:          getEnv("APP_PORT", "8000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NATSURL:       os.Getenv("NATS_URL"),
	}

	var err error
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart, err = getBool("MIGRATE_ON_START", true); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		cfg.DatabaseURL = databaseURL()
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid APP_PORT %q", cfg.Port)
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the
// POSTGRES_* parts.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "postgres")),
		Host:     getEnv("POSTGRES_HOST", "localhost") + ":" + getEnv("POSTGRES_PORT", "5432"),
		Path:     "/" + getEnv("POSTGRES_DB", "balance"),
		RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return i, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
