package main

import (
	"fmt"
	"os"

	"github.com/tidegate/tidegatectl/pkg/logging"
)

// ProvisionWorkspace creates the on-disk layout under the install dir.
//
// # Description
//
// The layout is fixed:
//
//	<install-dir>/
//	  data/postgres/   database volume
//	  data/redis/      cache volume
//	  logs/            reverse proxy and helper script logs
//	  backups/         timestamped archives written by scripts/backup.sh
//	  scripts/         generated helper scripts
//	  source/          cloned API tree (build-from-source only)
//
// cleanup_required is set BEFORE the first mkdir: if any mkdir fails halfway,
// the partial tree is already inside the recovery boundary. Existing
// directories are left untouched, which is what makes re-runs safe.
func ProvisionWorkspace(session *Session, log *logging.Logger) error {
	cfg := session.Config
	session.MarkCleanupRequired()

	dirs := []string{
		cfg.InstallDir,
		cfg.DataDir("postgres"),
		cfg.DataDir("redis"),
		cfg.LogsDir(),
		cfg.BackupsDir(),
		cfg.ScriptsDir(),
	}
	if cfg.Source == SourceBuild {
		dirs = append(dirs, cfg.SourceDir())
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("provision workspace %s: %w", dir, err)
		}
	}
	log.Info("workspace provisioned", "install_dir", cfg.InstallDir, "dirs", len(dirs))
	return nil
}
