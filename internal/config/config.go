package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Worker   WorkerConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// AppConfig holds application configuration
type AppConfig struct {
	Env      string
	LogLevel string
}

// WorkerConfig holds settings for the retry-queue consumer and the
// background scheduler.
type WorkerConfig struct {
	RetryBatchSize   int
	RetryMaxAttempts int
	DrainInterval    time.Duration
	ProcessingLease  time.Duration
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	config := &Config{}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "staffdesk_payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: maxConns,
		MinConns: minConns,
	}

	config.App = AppConfig{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	batchSize, err := strconv.Atoi(getEnv("RETRY_BATCH_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_BATCH_SIZE: %w", err)
	}
	maxAttempts, err := strconv.Atoi(getEnv("RETRY_MAX_ATTEMPTS", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: %w", err)
	}
	drainInterval, err := time.ParseDuration(getEnv("RETRY_DRAIN_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_DRAIN_INTERVAL: %w", err)
	}
	lease, err := time.ParseDuration(getEnv("RETRY_PROCESSING_LEASE", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_PROCESSING_LEASE: %w", err)
	}

	config.Worker = WorkerConfig{
		RetryBatchSize:   batchSize,
		RetryMaxAttempts: maxAttempts,
		DrainInterval:    drainInterval,
		ProcessingLease:  lease,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Worker.RetryBatchSize <= 0 {
		return fmt.Errorf("RETRY_BATCH_SIZE must be positive")
	}
	if c.Worker.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive")
	}
	if c.Worker.ProcessingLease < time.Minute {
		return fmt.Errorf("RETRY_PROCESSING_LEASE must be at least 1m")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
