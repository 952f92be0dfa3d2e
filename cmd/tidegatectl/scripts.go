package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/tidegate/tidegatectl/pkg/logging"
)

// BackupRetention is how many timestamped archives backup.sh keeps before
// pruning oldest-first.
const BackupRetention = 7

// scriptData parameterizes the generated helper scripts.
type scriptData struct {
	Port        int
	Retention   int
	FromSource  bool
	ServiceUnit string
	DBUser      string
	DBName      string
}

// HelperScripts maps script filename to its template. Each script infers the
// install dir from its own location, so a moved tree keeps working without
// regeneration.
var HelperScripts = map[string]*template.Template{
	"status.sh":    statusScript,
	"update.sh":    updateScript,
	"backup.sh":    backupScript,
	"uninstall.sh": uninstallScript,
}

// GenerateScripts renders the four operational helpers into scripts/ with
// execute permissions. Regeneration overwrites; the scripts carry no state.
func GenerateScripts(cfg *Config, log *logging.Logger) error {
	data := scriptData{
		Port:        cfg.Port,
		Retention:   BackupRetention,
		FromSource:  cfg.Source == SourceBuild,
		ServiceUnit: ServiceUnitName,
		DBUser:      DBUser,
		DBName:      DBName,
	}
	for name, tmpl := range HelperScripts {
		body, err := RenderScript(tmpl, data)
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.ScriptsDir(), name)
		if err := os.WriteFile(path, body, 0o755); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	log.Info("helper scripts generated", "dir", cfg.ScriptsDir(), "count", len(HelperScripts))
	return nil
}

// RenderScript renders one script template. Pure.
func RenderScript(tmpl *template.Template, data scriptData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render script %s: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

var statusScript = template.Must(template.New("status.sh").Parse(`#!/bin/sh
# Tidegate stack status: services, readiness, resource usage.
# Generated; regenerated on re-install.
set -eu

INSTALL_DIR="$(cd "$(dirname "$0")/.." && pwd)"
cd "$INSTALL_DIR"

docker compose ps
STATUS=0

printf '\nDatabase: '
if docker compose exec -T postgres pg_isready -U {{.DBUser}} -d {{.DBName}} >/dev/null 2>&1; then
    echo "ready"
else
    echo "not ready"
    STATUS=1
fi

printf 'Cache:    '
if docker compose exec -T redis sh -c 'redis-cli -a "$REDIS_PASSWORD" --no-auth-warning ping' >/dev/null 2>&1; then
    echo "ready"
else
    echo "not ready"
    STATUS=1
fi

printf 'API:      '
if curl -fsS "http://localhost:{{.Port}}/health" >/dev/null 2>&1; then
    echo "ok"
else
    echo "unreachable"
    STATUS=1
fi

echo ""
docker stats --no-stream

exit "$STATUS"
`))

var updateScript = template.Must(template.New("update.sh").Parse(`#!/bin/sh
# Update the Tidegate stack in place. A backup is taken first; a failed
# backup warns but does not block the update.
set -eu

INSTALL_DIR="$(cd "$(dirname "$0")/.." && pwd)"
cd "$INSTALL_DIR"

if ! "$INSTALL_DIR/scripts/backup.sh"; then
    echo "warning: pre-update backup failed, continuing" >&2
fi

{{if .FromSource}}if [ -d "$INSTALL_DIR/source/.git" ]; then
    git -C "$INSTALL_DIR/source" pull --ff-only
fi
docker compose build --pull api
{{else}}docker compose pull
{{end}}docker compose up -d --force-recreate

# Drop image layers the recreate superseded.
docker image prune -f

i=0
while [ "$i" -lt 40 ]; do
    if curl -fsS "http://localhost:{{.Port}}/health" >/dev/null 2>&1; then
        echo "update complete"
        exit 0
    fi
    i=$((i + 1))
    sleep 3
done
echo "warning: stack restarted but the API is not reporting healthy yet" >&2
exit 0
`))

var backupScript = template.Must(template.New("backup.sh").Parse(`#!/bin/sh
# Archive the database, cache snapshot, settings file, and manifest.
# Keeps the newest {{.Retention}} archives.
set -eu

INSTALL_DIR="$(cd "$(dirname "$0")/.." && pwd)"
cd "$INSTALL_DIR"

STAMP="$(date +%Y%m%d-%H%M%S)"
WORK="$(mktemp -d)"
trap 'rm -rf "$WORK"' EXIT

docker compose exec -T postgres pg_dump -U {{.DBUser}} {{.DBName}} > "$WORK/database.sql"

# Force a cache snapshot, then copy it out of the data volume.
docker compose exec -T redis sh -c 'redis-cli -a "$REDIS_PASSWORD" --no-auth-warning bgsave' >/dev/null
sleep 2
cp "$INSTALL_DIR/data/redis/dump.rdb" "$WORK/dump.rdb"

cp "$INSTALL_DIR/.env" "$WORK/env"
cp "$INSTALL_DIR/docker-compose.yml" "$WORK/docker-compose.yml"

ARCHIVE="$INSTALL_DIR/backups/tidegate-$STAMP.tar.gz"
tar -czf "$ARCHIVE" -C "$WORK" .
echo "backup written: $ARCHIVE"

# Prune oldest-first beyond the retention count.
ls -1t "$INSTALL_DIR/backups"/tidegate-*.tar.gz 2>/dev/null | tail -n +$(({{.Retention}} + 1)) | while read -r old; do
    rm -f "$old"
    echo "pruned: $old"
done
`))

var uninstallScript = template.Must(template.New("uninstall.sh").Parse(`#!/bin/sh
# Remove the Tidegate stack: containers, volumes, images, boot unit, and the
# install directory. Backups can be moved aside before anything is deleted.
set -eu

INSTALL_DIR="$(cd "$(dirname "$0")/.." && pwd)"
cd "$INSTALL_DIR"

printf 'Remove the Tidegate stack in %s? [y/N]: ' "$INSTALL_DIR"
read -r answer
case "$answer" in
    y|Y|yes|YES) ;;
    *) echo "aborted"; exit 0 ;;
esac

KEEP_DIR=""
if [ -n "$(ls -A "$INSTALL_DIR/backups" 2>/dev/null)" ]; then
    printf 'Preserve backups before removal? [Y/n]: '
    read -r keep
    case "$keep" in
        n|N|no|NO) ;;
        *)
            KEEP_DIR="$HOME/tidegate-backups-$(date +%Y%m%d-%H%M%S)"
            mkdir -p "$KEEP_DIR"
            mv "$INSTALL_DIR/backups"/* "$KEEP_DIR"/
            echo "backups moved to $KEEP_DIR"
            ;;
    esac
fi

# Containers, volumes, and the images the manifest references.
docker compose down --volumes --remove-orphans --rmi all || true

if [ -f "/etc/systemd/system/{{.ServiceUnit}}" ]; then
    systemctl disable --now {{.ServiceUnit}} || true
    rm -f "/etc/systemd/system/{{.ServiceUnit}}"
    systemctl daemon-reload || true
fi

cd /
rm -rf "$INSTALL_DIR"

echo "uninstalled"
if [ -n "$KEEP_DIR" ]; then
    echo "backups are in $KEEP_DIR"
fi
`))
