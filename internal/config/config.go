package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Collection cadences, one timer per category.
	SeismicInterval time.Duration
	WeatherInterval time.Duration
	HydroInterval   time.Duration

	// CollectTimeout bounds a single adapter call so a hung upstream cannot
	// stall the scheduler.
	CollectTimeout time.Duration

	// ThresholdsPath optionally overrides the built-in threshold tables.
	ThresholdsPath string

	// StorePath is the sqlite database file for the alert store.
	StorePath string

	// Prediction oracle configuration (feature-flagged via ORACLE_URL).
	OracleURL     string
	OracleEnabled bool
	OracleTimeout time.Duration

	// Kafka alert mirror configuration (feature-flagged via KAFKA_ENABLED).
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaAlertsTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	seismicInterval, err := parseDuration("SEISMIC_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	weatherInterval, err := parseDuration("WEATHER_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	hydroInterval, err := parseDuration("HYDRO_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}
	collectTimeout, err := parseDuration("COLLECT_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	oracleTimeout, err := parseDuration("ORACLE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	oracleURL := os.Getenv("ORACLE_URL")
	oracleEnabled := oracleURL != ""
	if v := os.Getenv("ORACLE_ENABLED"); v != "" {
		oracleEnabled = v == "true"
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SeismicInterval: seismicInterval,
		WeatherInterval: weatherInterval,
		HydroInterval:   hydroInterval,
		CollectTimeout:  collectTimeout,

		ThresholdsPath: os.Getenv("THRESHOLDS_PATH"),
		StorePath:      envOrDefault("STORE_PATH", "alerts.db"),

		OracleURL:     oracleURL,
		OracleEnabled: oracleEnabled,
		OracleTimeout: oracleTimeout,

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertsTopic: envOrDefault("KAFKA_ALERTS_TOPIC", "hazard-alerts"),
	}

	if cfg.StorePath == "" {
		return nil, errors.New("STORE_PATH is required")
	}
	if cfg.OracleEnabled && cfg.OracleURL == "" {
		return nil, errors.New("ORACLE_ENABLED is true but ORACLE_URL is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

// envOrDefault returns the environment value for key, or def when unset.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	raw := envOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
