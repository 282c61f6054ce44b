package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	ServiceName     string

	// ProviderAPIURL is the base URL of the external VPS provider's control API.
	ProviderAPIURL   string
	ProviderAPIToken string

	// ProvisionPollInterval is the cadence at which a dedicated deployment
	// polls the provider for readiness.
	ProvisionPollInterval time.Duration
	// ProvisionTimeout bounds the total wall-clock time a dedicated
	// deployment may spend waiting on the provider before it is failed.
	ProvisionTimeout time.Duration
}

func Load() (*Config, error) {
	pollInterval, err := getEnvDuration("PROVISION_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("PROVISION_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		ServiceName:           getEnv("SERVICE_NAME", ""),
		ProviderAPIURL:        getEnv("PROVIDER_API_URL", ""),
		ProviderAPIToken:      getEnv("PROVIDER_API_TOKEN", ""),
		ProvisionPollInterval: pollInterval,
		ProvisionTimeout:      timeout,
	}

	return cfg, nil
}

// Validate checks that the fields required by the given component are set.
func (c *Config) Validate(component string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s: DATABASE_URL is required", component)
	}
	switch component {
	case "worker":
		if c.ProviderAPIURL == "" {
			return fmt.Errorf("worker: PROVIDER_API_URL is required")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
