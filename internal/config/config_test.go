package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	// Aggregation weights must sum to 1.0
	sum := cfg.Scoring.TransactionalWeight + cfg.Scoring.BehavioralWeight +
		cfg.Scoring.NetworkWeight + cfg.Scoring.TypologyWeight
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, 70.0, cfg.Scoring.HighIndicatorThreshold)
	assert.Equal(t, 5, cfg.Scoring.TopRiskFactors)

	assert.Equal(t, 0.7, cfg.Patterns.ConfidenceThreshold)
	assert.Equal(t, 720*time.Hour, cfg.Patterns.PatternTTL)
	assert.Equal(t, 168*time.Hour, cfg.Patterns.MetricsTTL)
	assert.Equal(t, 0.1, cfg.Patterns.EMAAlpha)
	assert.Equal(t, 20, cfg.Patterns.MaxStoredQueries)
	assert.Equal(t, 9900.0, cfg.Patterns.StructuringBandLow)
	assert.Equal(t, 10000.0, cfg.Patterns.StructuringBandHigh)

	assert.Equal(t, 300*time.Second, cfg.Tracker.StaleTimeout)

	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ML_SERVICE_SERVER_PORT", "9001")
	t.Setenv("ML_SERVICE_REDIS_HOST", "redis.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
}
