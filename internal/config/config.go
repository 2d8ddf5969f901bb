package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	HTTPListenAddr  string
	LogLevel        string
	// RedisURL selects the shared schema cache store. Empty means an
	// in-process cache per replica.
	RedisURL              string
	MetricsAddr           string
	HealthCheckCron       string
	AuditLogRetentionDays int

	ServiceName string
	InstanceID  string

	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string
}

func Load() (*Config, error) {
	retention, err := strconv.Atoi(getEnv("AUDIT_LOG_RETENTION_DAYS", "90"))
	if err != nil {
		return nil, fmt.Errorf("parse AUDIT_LOG_RETENTION_DAYS: %w", err)
	}

	cfg := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		RedisURL:              getEnv("REDIS_URL", ""),
		MetricsAddr:           getEnv("METRICS_LISTEN_ADDR", ""),
		HealthCheckCron:       getEnv("HEALTH_CHECK_CRON", "*/15 * * * *"),
		AuditLogRetentionDays: retention,
		ServiceName:           getEnv("SERVICE_NAME", ""),
		InstanceID:            getEnv("INSTANCE_ID", ""),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
	}

	return cfg, nil
}

// Validate checks that the variables required by service are set.
// Known services are "integration-api" and "worker".
func (c *Config) Validate(service string) error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch service {
	case "integration-api":
		require("DATABASE_URL", c.DatabaseURL)
		require("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
	case "worker":
		require("DATABASE_URL", c.DatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("HEALTH_CHECK_CRON", c.HealthCheckCron)
	default:
		return fmt.Errorf("unknown service %q", service)
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		errs = append(errs, errors.New("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set"))
	}
	if c.AuditLogRetentionDays < 1 {
		errs = append(errs, errors.New("AUDIT_LOG_RETENTION_DAYS must be at least 1"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
