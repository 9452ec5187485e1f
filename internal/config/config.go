package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Failure modes for the per-plant stage of a run.
const (
	FailureModeFailFast = "fail-fast"
	FailureModeCollect  = "collect"
)

// Config holds all pipeline settings, populated from environment variables.
// Run inputs (station/basin/cutout paths, target year) arrive as flags on
// the binaries; env covers the ambient concerns that rarely change between
// runs.
type Config struct {
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ExtractWorkers int
	FailureMode    string

	// Optional ops HTTP server (health, readiness, metrics).
	HTTPEnabled bool
	HTTPAddr    string

	// Optional Kafka publishing of derived series.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Optional Pushgateway for end-of-run metrics. Setting the URL enables it.
	PushgatewayURL string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	workers, err := parseExtractWorkers()
	if err != nil {
		return nil, err
	}

	failureMode := envOrDefault("FAILURE_MODE", FailureModeFailFast)
	if failureMode != FailureModeFailFast && failureMode != FailureModeCollect {
		return nil, errors.New("FAILURE_MODE must be fail-fast or collect")
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		ExtractWorkers:  workers,
		FailureMode:     failureMode,
		HTTPEnabled:     os.Getenv("HTTP_ENABLED") == "true",
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "plant-inflow-series"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
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

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func parseShutdownTimeout() (time.Duration, error) {
	s := envOrDefault("SHUTDOWN_TIMEOUT", "10s")
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	return d, nil
}

func parseExtractWorkers() (int, error) {
	s := envOrDefault("EXTRACT_WORKERS", "4")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 128 {
		return 0, errors.New("EXTRACT_WORKERS must be between 1 and 128")
	}
	return n, nil
}
