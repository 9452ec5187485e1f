package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 4, cfg.ExtractWorkers)
	assert.Equal(t, FailureModeFailFast, cfg.FailureMode)
	assert.False(t, cfg.HTTPEnabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "plant-inflow-series", cfg.KafkaTopic)
	assert.Empty(t, cfg.PushgatewayURL)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("EXTRACT_WORKERS", "16")
	t.Setenv("FAILURE_MODE", "collect")
	t.Setenv("HTTP_ENABLED", "true")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-inflow")
	t.Setenv("PUSHGATEWAY_URL", "http://push:9091")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 16, cfg.ExtractWorkers)
	assert.Equal(t, FailureModeCollect, cfg.FailureMode)
	assert.True(t, cfg.HTTPEnabled)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-inflow", cfg.KafkaTopic)
	assert.Equal(t, "http://push:9091", cfg.PushgatewayURL)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidExtractWorkers(t *testing.T) {
	t.Setenv("EXTRACT_WORKERS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXTRACT_WORKERS")
}

func TestLoad_ExtractWorkersTooLarge(t *testing.T) {
	t.Setenv("EXTRACT_WORKERS", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXTRACT_WORKERS")
}

func TestLoad_InvalidFailureMode(t *testing.T) {
	t.Setenv("FAILURE_MODE", "retry")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAILURE_MODE")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}
