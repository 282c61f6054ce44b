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

	assert.Equal(t, "localhost:7233", cfg.TemporalAddress)
	assert.Equal(t, ":8090", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ProvisionPollInterval)
	assert.Equal(t, 30*time.Minute, cfg.ProvisionTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fleet")
	t.Setenv("PROVISION_POLL_INTERVAL", "10")
	t.Setenv("PROVISION_TIMEOUT", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/fleet", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Second, cfg.ProvisionPollInterval)
	assert.Equal(t, time.Hour, cfg.ProvisionTimeout)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("PROVISION_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate_RequiresDatabaseURL(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("fleet-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidate_WorkerRequiresProviderURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/fleet"}

	require.NoError(t, cfg.Validate("fleet-api"))

	err := cfg.Validate("worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROVIDER_API_URL")
}
