// Package config loads service settings from INGESTR_* environment
// variables, with an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// GridCacheSize bounds how many open NetCDF grids stay in memory.
	GridCacheSize int

	// GrowingSeasonMinC is the growth-temperature threshold in degC for the
	// growing-season aggregation.
	GrowingSeasonMinC float64

	// Kafka sink configuration. Setting brokers implies the sink is enabled;
	// INGESTR_KAFKA_ENABLED overrides either way.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is read first; variables
// already present in the environment win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("INGESTR_SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	gridCacheSize, err := parsePositiveInt("INGESTR_GRID_CACHE_SIZE", 32)
	if err != nil {
		return nil, err
	}

	growingSeasonMinC, err := parseFloat("INGESTR_GROWING_SEASON_MIN_C", 0)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("INGESTR_KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("INGESTR_KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("INGESTR_HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("INGESTR_LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("INGESTR_LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GridCacheSize:     gridCacheSize,
		GrowingSeasonMinC: growingSeasonMinC,

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("INGESTR_KAFKA_TOPIC", "site-forcings"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("INGESTR_KAFKA_ENABLED is true but INGESTR_KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("INGESTR_KAFKA_TOPIC is required when the Kafka sink is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, s)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
