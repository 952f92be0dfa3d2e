package main

import "time"

// Timeout constants for the installer's external operations. All bounded so a
// wedged package manager or daemon cannot hang the pipeline indefinitely.
const (
	// MinHTTPTimeout is the absolute minimum for any HTTP probe.
	MinHTTPTimeout = 1 * time.Second

	// DefaultHTTPTimeout is the per-request timeout for health probes.
	DefaultHTTPTimeout = 5 * time.Second

	// DefaultProcessTimeout bounds short external commands (version checks,
	// systemctl, directory-level git operations).
	DefaultProcessTimeout = 2 * time.Minute

	// DefaultInstallTimeout bounds package-manager installs.
	DefaultInstallTimeout = 10 * time.Minute

	// DefaultComposeTimeout bounds compose up/pull/build.
	DefaultComposeTimeout = 15 * time.Minute

	// ReadinessProbeInterval is the pause between health probe attempts.
	ReadinessProbeInterval = 3 * time.Second

	// ReadinessProbeAttempts bounds the readiness polling loop.
	ReadinessProbeAttempts = 40
)

// EnforceMinTimeout returns at least the minimum timeout. Zero or negative
// requested values fall back to the minimum, preventing accidental infinite
// hangs from misconfiguration.
func EnforceMinTimeout(requested, minimum time.Duration) time.Duration {
	if requested <= 0 || requested < minimum {
		return minimum
	}
	return requested
}
