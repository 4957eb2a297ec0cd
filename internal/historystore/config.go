package historystore

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadConfigFromEnv loads Config from the environment with
// production-ready pool defaults.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("OBSSEQ_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OBSSEQ_DB_PORT: %w", err)
	}
	maxOpen, _ := strconv.Atoi(getEnvOrDefault("OBSSEQ_DB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("OBSSEQ_DB_MAX_IDLE_CONNS", "10"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("OBSSEQ_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OBSSEQ_DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("OBSSEQ_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OBSSEQ_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("OBSSEQ_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("OBSSEQ_DB_USER", "obsseq"),
		Password:        os.Getenv("OBSSEQ_DB_PASSWORD"),
		Database:        getEnvOrDefault("OBSSEQ_DB_NAME", "obsseq"),
		SSLMode:         getEnvOrDefault("OBSSEQ_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("OBSSEQ_DB_PASSWORD is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("OBSSEQ_DB_MAX_IDLE_CONNS (%d) cannot exceed OBSSEQ_DB_MAX_OPEN_CONNS (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("OBSSEQ_DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("OBSSEQ_DB_MAX_IDLE_CONNS cannot be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
