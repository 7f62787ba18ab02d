package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Empty(t, cfg.Redis.Addr, "redis is opt-in")
	assert.False(t, cfg.Telemetry.Enabled, "telemetry export is opt-in")
	assert.Empty(t, cfg.Security.APIKey, "the API key must be configured explicitly")
}

func TestDefaultScannerConfig(t *testing.T) {
	cfg := DefaultScannerConfig()

	assert.Equal(t, 5*time.Second, cfg.ScanTimeout)
	assert.Equal(t, 3*time.Second, cfg.CheckTimeout)
	assert.Equal(t, 3, cfg.MaxConcurrentSessions)
	assert.Equal(t, 70, cfg.SessionRiskThreshold)
	assert.Equal(t, 5, cfg.InjectionEventLimit)
	assert.Equal(t, 24*time.Hour, cfg.InjectionLookback)
	assert.Equal(t, 7*24*time.Hour, cfg.EscalationLookback)
	assert.Empty(t, cfg.SignatureFile)
}
