package main

/*
Container runtime installation.

The installer moves the runtime through a small state machine: unknown until
probed, then version-checked, then already-satisfied or needs-install. The
OS-specific work is behind PlatformInstaller so the orchestration logic is
shared and each platform only supplies its package-manager commands.
*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/tidegate/tidegatectl/pkg/logging"
)

// Minimum supported engine version. Older engines predate compose v2 and the
// healthcheck semantics the manifest relies on.
const (
	MinDockerMajor = 20
	MinDockerMinor = 10
)

// RuntimeState describes what the probe learned about the container runtime.
type RuntimeState int

const (
	// RuntimeUnknown means the probe has not run yet.
	RuntimeUnknown RuntimeState = iota

	// RuntimeSatisfied means a new-enough engine is already present.
	RuntimeSatisfied

	// RuntimeNeedsInstall means the engine is absent or too old.
	RuntimeNeedsInstall
)

func (s RuntimeState) String() string {
	switch s {
	case RuntimeSatisfied:
		return "satisfied"
	case RuntimeNeedsInstall:
		return "needs-install"
	default:
		return "unknown"
	}
}

// PlatformInstaller supplies the OS-specific package commands.
//
// # Description
//
// One implementation exists per supported platform family. Implementations
// install but never verify; verification is the orchestrator's job and is
// identical everywhere (the daemon must answer `docker info`).
//
// # Limitations
//
// macOS has no unattended install path; DarwinInstaller returns a
// DockerInstallError directing the operator to Docker Desktop.
type PlatformInstaller interface {
	// InstallDocker installs the container engine and starts its daemon.
	InstallDocker(ctx context.Context) error

	// InstallCompose installs the compose v2 plugin.
	InstallCompose(ctx context.Context) error

	// InstallCertbot installs the certificate client.
	InstallCertbot(ctx context.Context) error
}

// PlatformInstallerFor returns the installer for the detected platform.
// Unknown families are the one place detection failure becomes fatal.
func PlatformInstallerFor(p Platform, pm ProcessManager, out io.Writer) (PlatformInstaller, error) {
	switch p.Family {
	case FamilyDebian:
		return &DebianInstaller{pm: pm, out: out}, nil
	case FamilyRedHat:
		return &RedHatInstaller{pm: pm, out: out}, nil
	case FamilyDarwin:
		return &DarwinInstaller{}, nil
	default:
		return nil, UnsupportedPlatformError(string(p.Family), p.Version)
	}
}

// ====== Runtime orchestration ======

// RuntimeInstaller probes, installs, and verifies the container runtime.
type RuntimeInstaller struct {
	pm  ProcessManager
	log *logging.Logger
	out io.Writer
}

// NewRuntimeInstaller creates a runtime installer.
func NewRuntimeInstaller(pm ProcessManager, log *logging.Logger, out io.Writer) *RuntimeInstaller {
	return &RuntimeInstaller{pm: pm, log: log, out: out}
}

// Ensure brings the host to a working engine + compose v2, installing only
// what the probe found missing. Idempotent: a satisfied host performs no
// package operations. Regardless of the path taken, the daemon must answer
// `docker info` before this returns nil.
func (r *RuntimeInstaller) Ensure(ctx context.Context, session *Session) error {
	installer, err := PlatformInstallerFor(session.Platform, r.pm, r.out)
	if err != nil {
		return err
	}

	state := r.probeEngine(ctx)
	r.log.Info("runtime probe", "state", state, "platform", session.Platform.Family)

	if state == RuntimeNeedsInstall {
		// Host mutation begins here when the workspace stage has not run
		// yet. Darwin is exempt: its installer mutates nothing, it only
		// directs the operator to Docker Desktop.
		if session.Platform.Family != FamilyDarwin {
			session.MarkCleanupRequired()
		}
		if err := r.runInstall(ctx, installer.InstallDocker); err != nil {
			return wrapInstallError(err,
				"engine installation failed",
				"inspect the package manager output above, fix the reported problem, and re-run")
		}
		session.RuntimeInstalled = true
	}

	if !r.composeAvailable(ctx) {
		if session.Platform.Family != FamilyDarwin {
			session.MarkCleanupRequired()
		}
		if err := r.runInstall(ctx, installer.InstallCompose); err != nil {
			return wrapInstallError(err,
				"compose plugin installation failed",
				"install the docker compose v2 plugin manually and re-run")
		}
		session.ComposeInstalled = true
	}

	// Install commands exiting zero is necessary but not sufficient. The
	// daemon answering is the only acceptable proof.
	if err := r.verifyDaemon(ctx); err != nil {
		remediation := "start the docker service (systemctl start docker) and re-run"
		if session.Platform.Family == FamilyDarwin {
			remediation = "start Docker Desktop and re-run once the whale icon settles"
		}
		return &DockerInstallError{
			Reason:      "daemon not reachable after install",
			Remediation: remediation,
			Wrapped:     err,
		}
	}
	return nil
}

// runInstall bounds one package-manager operation so a wedged mirror cannot
// hang the pipeline.
func (r *RuntimeInstaller) runInstall(ctx context.Context, install func(context.Context) error) error {
	installCtx, cancel := context.WithTimeout(ctx, DefaultInstallTimeout)
	defer cancel()
	return install(installCtx)
}

// wrapInstallError types a raw install failure. A DockerInstallError from the
// platform installer already carries its own remediation and passes through
// untouched.
func wrapInstallError(err error, reason, remediation string) error {
	var installErr *DockerInstallError
	if errors.As(err, &installErr) {
		return err
	}
	return &DockerInstallError{Reason: reason, Remediation: remediation, Wrapped: err}
}

var dockerVersionPattern = regexp.MustCompile(`(\d+)\.(\d+)`)

// probeEngine classifies the host's engine without mutating anything.
func (r *RuntimeInstaller) probeEngine(ctx context.Context) RuntimeState {
	if _, err := r.pm.LookPath("docker"); err != nil {
		return RuntimeNeedsInstall
	}
	out, err := r.pm.Run(ctx, "docker", "--version")
	if err != nil {
		return RuntimeNeedsInstall
	}
	major, minor, ok := parseEngineVersion(string(out))
	if !ok {
		// Unparseable version strings are treated as too old rather than
		// trusted; reinstalling a current engine is the safe direction.
		return RuntimeNeedsInstall
	}
	if major > MinDockerMajor || (major == MinDockerMajor && minor >= MinDockerMinor) {
		return RuntimeSatisfied
	}
	return RuntimeNeedsInstall
}

// parseEngineVersion extracts major.minor from `docker --version` output.
func parseEngineVersion(s string) (major, minor int, ok bool) {
	m := dockerVersionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	return major, minor, true
}

// composeAvailable reports whether compose v2 answers as a docker subcommand.
func (r *RuntimeInstaller) composeAvailable(ctx context.Context) bool {
	_, err := r.pm.Run(ctx, "docker", "compose", "version")
	return err == nil
}

// verifyDaemon confirms the daemon is reachable.
func (r *RuntimeInstaller) verifyDaemon(ctx context.Context) error {
	if _, err := r.pm.Run(ctx, "docker", "info"); err != nil {
		return err
	}
	return nil
}

// ====== Debian family ======

// DebianInstaller installs the runtime on Debian and Ubuntu derivatives via
// the upstream convenience script, which handles the keyring and apt source
// for every debian-family release it supports.
type DebianInstaller struct {
	pm  ProcessManager
	out io.Writer
}

// conflictingDebianPackages are distro-packaged runtimes that shadow the
// upstream engine.
var conflictingDebianPackages = []string{
	"docker.io", "docker-doc", "docker-compose", "podman-docker", "containerd", "runc",
}

func (d *DebianInstaller) InstallDocker(ctx context.Context) error {
	// Removal of prior runtimes is best-effort: absent packages make
	// apt-get remove exit non-zero and that is fine. The asymmetry is
	// deliberate; only the new install is held to a strict standard.
	args := append([]string{"remove", "-y"}, conflictingDebianPackages...)
	_ = d.pm.RunStreaming(ctx, d.out, "apt-get", args...)

	if err := d.pm.RunStreaming(ctx, d.out, "apt-get", "update"); err != nil {
		return err
	}
	if err := d.pm.RunStreaming(ctx, d.out, "apt-get", "install", "-y", "ca-certificates", "curl"); err != nil {
		return err
	}

	script, err := d.pm.Run(ctx, "curl", "-fsSL", "https://get.docker.com")
	if err != nil {
		return err
	}
	out, err := d.pm.RunWithInput(ctx, "sh", script, "-s", "--")
	if err != nil {
		return err
	}
	_, _ = d.out.Write(out)
	return d.pm.RunStreaming(ctx, d.out, "systemctl", "enable", "--now", "docker")
}

func (d *DebianInstaller) InstallCompose(ctx context.Context) error {
	return d.pm.RunStreaming(ctx, d.out, "apt-get", "install", "-y", "docker-compose-plugin")
}

func (d *DebianInstaller) InstallCertbot(ctx context.Context) error {
	return d.pm.RunStreaming(ctx, d.out, "apt-get", "install", "-y", "certbot")
}

// ====== RedHat family ======

// RedHatInstaller installs the runtime on RHEL, Fedora, CentOS Stream, Rocky,
// and Alma via the upstream dnf repository.
type RedHatInstaller struct {
	pm  ProcessManager
	out io.Writer
}

var conflictingRedHatPackages = []string{
	"docker", "docker-client", "docker-common", "docker-engine", "podman-docker", "runc",
}

func (d *RedHatInstaller) InstallDocker(ctx context.Context) error {
	args := append([]string{"remove", "-y"}, conflictingRedHatPackages...)
	_ = d.pm.RunStreaming(ctx, d.out, "dnf", args...)

	if err := d.pm.RunStreaming(ctx, d.out, "dnf", "-y", "install", "dnf-plugins-core"); err != nil {
		return err
	}
	if err := d.pm.RunStreaming(ctx, d.out, "dnf", "config-manager", "--add-repo",
		"https://download.docker.com/linux/centos/docker-ce.repo"); err != nil {
		return err
	}
	if err := d.pm.RunStreaming(ctx, d.out, "dnf", "-y", "install",
		"docker-ce", "docker-ce-cli", "containerd.io", "docker-buildx-plugin", "docker-compose-plugin"); err != nil {
		return err
	}
	return d.pm.RunStreaming(ctx, d.out, "systemctl", "enable", "--now", "docker")
}

func (d *RedHatInstaller) InstallCompose(ctx context.Context) error {
	return d.pm.RunStreaming(ctx, d.out, "dnf", "-y", "install", "docker-compose-plugin")
}

func (d *RedHatInstaller) InstallCertbot(ctx context.Context) error {
	return d.pm.RunStreaming(ctx, d.out, "dnf", "-y", "install", "certbot")
}

// ====== Darwin ======

// DarwinInstaller has no unattended install path. Docker Desktop bundles the
// engine and compose; the installer only points the operator at it.
type DarwinInstaller struct{}

func (d *DarwinInstaller) InstallDocker(ctx context.Context) error {
	return &DockerInstallError{
		Reason:      "no container engine found",
		Remediation: "install Docker Desktop from https://www.docker.com/products/docker-desktop, start it, and re-run",
	}
}

func (d *DarwinInstaller) InstallCompose(ctx context.Context) error {
	return &DockerInstallError{
		Reason:      "compose v2 not found",
		Remediation: "update Docker Desktop, which bundles compose v2, and re-run",
	}
}

func (d *DarwinInstaller) InstallCertbot(ctx context.Context) error {
	return fmt.Errorf("certbot must be installed manually on macOS (brew install certbot)")
}

var (
	_ PlatformInstaller = (*DebianInstaller)(nil)
	_ PlatformInstaller = (*RedHatInstaller)(nil)
	_ PlatformInstaller = (*DarwinInstaller)(nil)
)
