package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/tidegate/tidegatectl/pkg/logging"
)

// ServiceUnitName is the systemd unit registered for boot-time start.
const ServiceUnitName = "tidegate.service"

// systemdUnitDir is where the unit file lives; a variable so tests can
// redirect it.
var systemdUnitDir = "/etc/systemd/system"

// ServiceRegistrar writes and enables the boot-time systemd unit.
//
// Registration only happens on systemd platforms; on macOS Docker Desktop
// owns engine startup and the restart policies in the manifest bring the
// stack back. Re-running overwrites the unit in place, which is what makes
// repeat installs safe.
type ServiceRegistrar struct {
	pm  ProcessManager
	log *logging.Logger
}

// NewServiceRegistrar creates a service registrar.
func NewServiceRegistrar(pm ProcessManager, log *logging.Logger) *ServiceRegistrar {
	return &ServiceRegistrar{pm: pm, log: log}
}

// Register writes the unit and enables it. The returned error is advisory:
// a stack without a boot unit still runs, so the pipeline records it as a
// warning instead of aborting.
func (r *ServiceRegistrar) Register(ctx context.Context, session *Session) error {
	if session.Platform.Family == FamilyDarwin {
		r.log.Info("skipping service registration on macOS")
		return nil
	}
	if _, err := r.pm.LookPath("systemctl"); err != nil {
		return fmt.Errorf("systemctl not found; register a boot-time start manually")
	}

	unit, err := RenderServiceUnit(session.Config)
	if err != nil {
		return err
	}
	path := filepath.Join(systemdUnitDir, ServiceUnitName)
	if err := os.WriteFile(path, unit, 0o644); err != nil {
		return fmt.Errorf("write service unit: %w", err)
	}

	if _, err := r.pm.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	if _, err := r.pm.Run(ctx, "systemctl", "enable", ServiceUnitName); err != nil {
		return fmt.Errorf("enable %s: %w", ServiceUnitName, err)
	}
	r.log.Info("service registered", "unit", ServiceUnitName, "path", path)
	return nil
}

var serviceUnitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Tidegate self-hosted API stack
Requires=docker.service
After=docker.service network-online.target

[Service]
Type=oneshot
RemainAfterExit=yes
WorkingDirectory={{.InstallDir}}
ExecStart=/usr/bin/docker compose up -d
ExecStop=/usr/bin/docker compose down
TimeoutStartSec=0

[Install]
WantedBy=multi-user.target
`))

// RenderServiceUnit renders the unit file. Pure.
func RenderServiceUnit(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := serviceUnitTemplate.Execute(&buf, struct{ InstallDir string }{cfg.InstallDir}); err != nil {
		return nil, fmt.Errorf("render service unit: %w", err)
	}
	return buf.Bytes(), nil
}
