package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func defaultScriptData() scriptData {
	return scriptData{
		Port:        8088,
		Retention:   BackupRetention,
		ServiceUnit: ServiceUnitName,
		DBUser:      DBUser,
		DBName:      DBName,
	}
}

func TestScriptsShareCommonShape(t *testing.T) {
	for name, tmpl := range HelperScripts {
		t.Run(name, func(t *testing.T) {
			body, err := RenderScript(tmpl, defaultScriptData())
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			s := string(body)
			if !strings.HasPrefix(s, "#!/bin/sh\n") {
				t.Error("missing POSIX shebang")
			}
			// Every script infers its install dir from its own location.
			if !strings.Contains(s, `INSTALL_DIR="$(cd "$(dirname "$0")/.." && pwd)"`) {
				t.Error("missing install-dir inference")
			}
			if !strings.Contains(s, "set -eu") {
				t.Error("missing strict mode")
			}
		})
	}
}

func TestStatusScriptProbesHealth(t *testing.T) {
	body, err := RenderScript(statusScript, defaultScriptData())
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)
	if !strings.Contains(s, "http://localhost:8088/health") {
		t.Error("status script does not probe the configured port")
	}
	if !strings.Contains(s, "docker compose ps") {
		t.Error("status script does not list services")
	}
	if !strings.Contains(s, fmt.Sprintf("pg_isready -U %s -d %s", DBUser, DBName)) {
		t.Error("status script does not check database readiness")
	}
	if !strings.Contains(s, "--no-auth-warning ping") {
		t.Error("status script does not check cache readiness")
	}
	if !strings.Contains(s, "docker stats --no-stream") {
		t.Error("status script does not report resource usage")
	}
}

func TestUpdateScriptBacksUpFirst(t *testing.T) {
	body, err := RenderScript(updateScript, defaultScriptData())
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)
	backupIdx := strings.Index(s, "backup.sh")
	upIdx := strings.Index(s, "docker compose up -d")
	if backupIdx == -1 || upIdx == -1 || backupIdx > upIdx {
		t.Error("update script does not back up before restarting the stack")
	}
	// A failed backup warns but does not block the update.
	if !strings.Contains(s, "backup failed, continuing") {
		t.Error("update script aborts on backup failure")
	}
	if !strings.Contains(s, "docker compose pull") {
		t.Error("prebuilt update does not pull images")
	}
	if !strings.Contains(s, "up -d --force-recreate") {
		t.Error("update does not recreate containers on the new images")
	}
	pruneIdx := strings.Index(s, "docker image prune -f")
	if pruneIdx == -1 || pruneIdx < upIdx {
		t.Error("update does not prune superseded images after recreating")
	}
}

func TestUpdateScriptSourceModeBuilds(t *testing.T) {
	data := defaultScriptData()
	data.FromSource = true
	body, err := RenderScript(updateScript, data)
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)
	if !strings.Contains(s, "docker compose build --pull api") {
		t.Error("source-mode update does not rebuild the API image")
	}
	if strings.Contains(s, "docker compose pull\n") {
		t.Error("source-mode update pulls prebuilt images")
	}
}

func TestBackupScriptContents(t *testing.T) {
	body, err := RenderScript(backupScript, defaultScriptData())
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)
	for _, want := range []string{
		"pg_dump",
		"bgsave",
		"dump.rdb",
		`cp "$INSTALL_DIR/.env"`,
		"docker-compose.yml",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("backup script missing %q", want)
		}
	}
	// Retention prunes oldest-first beyond the configured count.
	if !strings.Contains(s, fmt.Sprintf("tail -n +$((%d + 1))", BackupRetention)) {
		t.Error("backup script does not prune beyond the retention count")
	}
	if !strings.Contains(s, "ls -1t") {
		t.Error("pruning is not ordered newest-first")
	}
}

func TestUninstallScriptRemovesEverything(t *testing.T) {
	body, err := RenderScript(uninstallScript, defaultScriptData())
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)
	if !strings.Contains(s, "read -r answer") {
		t.Error("uninstall does not confirm before deleting")
	}
	if !strings.Contains(s, ServiceUnitName) {
		t.Error("uninstall does not remove the boot unit")
	}
	if !strings.Contains(s, "--rmi all") {
		t.Error("uninstall does not remove the stack's images")
	}
	if !strings.Contains(s, `rm -rf "$INSTALL_DIR"`) {
		t.Error("uninstall does not remove the install directory")
	}
}

func TestUninstallScriptMovesBackupsAside(t *testing.T) {
	body, err := RenderScript(uninstallScript, defaultScriptData())
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)
	// Preserved backups land outside the install dir before it is removed.
	if !strings.Contains(s, `$HOME/tidegate-backups-`) {
		t.Error("preserved backups stay inside the install dir")
	}
	mvIdx := strings.Index(s, `mv "$INSTALL_DIR/backups"/*`)
	rmIdx := strings.Index(s, `rm -rf "$INSTALL_DIR"`)
	if mvIdx == -1 {
		t.Fatal("uninstall never moves backups out")
	}
	if rmIdx != -1 && mvIdx > rmIdx {
		t.Error("backups moved only after the install dir is removed")
	}
	// Preservation is the operator's choice.
	if !strings.Contains(s, "Preserve backups before removal?") {
		t.Error("uninstall does not ask about preserving backups")
	}
}

func TestGenerateScriptsWritesExecutables(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.ScriptsDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := GenerateScripts(cfg, testLogger()); err != nil {
		t.Fatalf("GenerateScripts() error: %v", err)
	}

	for name := range HelperScripts {
		info, err := os.Stat(filepath.Join(cfg.ScriptsDir(), name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if info.Mode().Perm()&0o111 == 0 {
			t.Errorf("%s is not executable (mode %o)", name, info.Mode().Perm())
		}
	}
}
