package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Validate())

	cfg.EnableTLS = true
	cfg.Domain = "api.example.com"
	cfg.ContactEmail = "ops@example.com"
	require.NoError(t, cfg.Validate())
}

func TestConfigValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative install dir", func(c *Config) { c.InstallDir = "relative/dir" }, "InstallDir"},
		{"root install dir", func(c *Config) { c.InstallDir = "/" }, "InstallDir"},
		{"bad source", func(c *Config) { c.Source = "tarball" }, "Source"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "Port"},
		{"malformed api key", func(c *Config) { c.APIKey = "sk-wrong" }, "APIKey"},
		{"empty api key", func(c *Config) { c.APIKey = "" }, "APIKey"},
		{"short db password", func(c *Config) { c.DBPassword = "short" }, "DBPassword"},
		{"short app secret", func(c *Config) { c.AppSecret = "tiny" }, "AppSecret"},
		{"tls without domain", func(c *Config) { c.EnableTLS = true; c.ContactEmail = "ops@example.com" }, "Domain"},
		{"tls bad email", func(c *Config) {
			c.EnableTLS = true
			c.Domain = "api.example.com"
			c.ContactEmail = "nope"
		}, "ContactEmail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var vErr *ConfigurationValidationError
			require.True(t, errors.As(err, &vErr), "error type %T", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestConfigPathHelpers(t *testing.T) {
	cfg := testConfig(t)

	assert.True(t, strings.HasPrefix(cfg.EnvFilePath(), cfg.InstallDir))
	assert.True(t, strings.HasSuffix(cfg.EnvFilePath(), "/.env"))
	assert.True(t, strings.HasSuffix(cfg.ManifestPath(), "/docker-compose.yml"))
	assert.True(t, strings.HasSuffix(cfg.DataDir("postgres"), "/data/postgres"))
	assert.Equal(t, "http://localhost:8088", cfg.BaseURL())
	assert.Equal(t, "http://localhost:8088/health", cfg.HealthURL())
}
