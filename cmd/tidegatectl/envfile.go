package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/tidegate/tidegatectl/pkg/logging"
)

// Settings keys consumed by the stack manifest through variable substitution.
// Renaming one here requires the matching change in the manifest templates
// and in the generated helper scripts.
const (
	EnvKeyPort          = "TIDEGATE_PORT"
	EnvKeyAPIKey        = "TIDEGATE_API_KEY"
	EnvKeyAppSecret     = "TIDEGATE_APP_SECRET"
	EnvKeyDomain        = "TIDEGATE_DOMAIN"
	EnvKeyPostgresUser  = "POSTGRES_USER"
	EnvKeyPostgresPass  = "POSTGRES_PASSWORD"
	EnvKeyPostgresDB    = "POSTGRES_DB"
	EnvKeyRedisPassword = "REDIS_PASSWORD"
)

// DBUser and DBName are fixed; only the password is operator-visible.
const (
	DBUser = "tidegate"
	DBName = "tidegate"
)

// BuildEnvVars maps the configuration onto the persisted settings entries.
// Pure: no filesystem access, fully unit-testable.
func BuildEnvVars(cfg *Config) (*EnvVars, error) {
	vars := EmptyEnvVars()
	vars.MustAdd(EnvKeyPort, fmt.Sprintf("%d", cfg.Port), false)
	vars.MustAdd(EnvKeyAPIKey, cfg.APIKey, true)
	vars.MustAdd(EnvKeyAppSecret, cfg.AppSecret, true)
	vars.MustAdd(EnvKeyPostgresUser, DBUser, false)
	vars.MustAdd(EnvKeyPostgresPass, cfg.DBPassword, true)
	vars.MustAdd(EnvKeyPostgresDB, DBName, false)
	vars.MustAdd(EnvKeyRedisPassword, cfg.CachePassword, true)
	if cfg.EnableTLS {
		if err := vars.Add(EnvKeyDomain, cfg.Domain, false); err != nil {
			return nil, err
		}
	}
	return vars, nil
}

// RenderEnvFile renders the entries into file bytes. Pure; the write happens
// in WriteEnvFile so tests can assert on content without touching disk.
func RenderEnvFile(vars *EnvVars) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Tidegate stack settings. Generated by tidegatectl; edits survive\n")
	buf.WriteString("# restarts but are overwritten by a re-install.\n")
	for _, v := range vars.Entries() {
		buf.WriteString(v.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteEnvFile emits the settings file with owner-only permissions.
//
// The file carries live credentials, so 0600 is enforced even when the file
// already exists from a prior run (os.WriteFile alone would keep old modes).
func WriteEnvFile(cfg *Config, log *logging.Logger) error {
	vars, err := BuildEnvVars(cfg)
	if err != nil {
		return err
	}
	path := cfg.EnvFilePath()
	if err := os.WriteFile(path, RenderEnvFile(vars), 0o600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restrict env file permissions: %w", err)
	}
	log.Info("environment file written", "path", path, "keys", vars.Len())
	return nil
}
