package main

import (
	"fmt"
	"path/filepath"

	"github.com/tidegate/tidegatectl/pkg/validation"
)

// Default configuration values offered by the wizard.
const (
	DefaultInstallDir = "/opt/tidegate"
	DefaultPort       = 8088

	// APIImage is the published image coordinate for prebuilt installs.
	APIImage = "ghcr.io/tidegate/tidegate-api:latest"

	// SourceRepoURL is cloned for build-from-source installs.
	SourceRepoURL = "https://github.com/tidegate/tidegate-api.git"

	// SourceArchiveURL is the static snapshot used when git is unavailable.
	SourceArchiveURL = "https://github.com/tidegate/tidegate-api/archive/refs/heads/main.tar.gz"
)

// Config is the operator-facing configuration gathered by the wizard.
//
// Every credential field is either the operator's literal input or the
// secret generator's output — never empty. AppSecret is always generated and
// never operator-overridable. Validate tags are enforced by pkg/validation
// both inline (wizard re-prompt) and as a final gate before emission.
type Config struct {
	// InstallDir is the root of the on-disk workspace.
	InstallDir string `validate:"required,dir_path"`

	// Source selects prebuilt-image or build-from-source.
	Source InstallSource `validate:"required,oneof=prebuilt-image build-from-source"`

	// Port is the host port the API listens on.
	Port int `validate:"required,min=1,max=65535"`

	// APIKey is the operator credential, shape tgk_<32 alphanumerics>.
	APIKey string `validate:"required,tidegate_api_key"`

	// DBPassword protects the postgres role.
	DBPassword string `validate:"required,min=8"`

	// CachePassword protects redis.
	CachePassword string `validate:"required,min=8"`

	// AppSecret signs API sessions. Generated, never prompted.
	AppSecret string `validate:"required,min=16"`

	// EnableTLS requests the reverse-proxy/certificate sub-pipeline.
	EnableTLS bool

	// Domain is the certificate subject; required with EnableTLS.
	Domain string `validate:"required_if=EnableTLS true,omitempty,fqdn"`

	// ContactEmail is the issuance contact; required with EnableTLS.
	ContactEmail string `validate:"required_if=EnableTLS true,omitempty,email"`
}

// Validate runs the struct-level validation gate.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return &ConfigurationValidationError{Field: validation.FirstField(err), Reason: err.Error()}
	}
	return nil
}

// Paths derived from the install dir. Centralized so stages, templates, and
// helper scripts agree on the layout.

func (c *Config) EnvFilePath() string      { return filepath.Join(c.InstallDir, ".env") }
func (c *Config) ManifestPath() string     { return filepath.Join(c.InstallDir, "docker-compose.yml") }
func (c *Config) ScriptsDir() string       { return filepath.Join(c.InstallDir, "scripts") }
func (c *Config) BackupsDir() string       { return filepath.Join(c.InstallDir, "backups") }
func (c *Config) LogsDir() string          { return filepath.Join(c.InstallDir, "logs") }
func (c *Config) DataDir(svc string) string {
	return filepath.Join(c.InstallDir, "data", svc)
}
func (c *Config) SourceDir() string { return filepath.Join(c.InstallDir, "source") }

// BaseURL is the plain-HTTP access URL for probes and the summary.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// HealthURL is the API readiness endpoint.
func (c *Config) HealthURL() string {
	return c.BaseURL() + "/health"
}
