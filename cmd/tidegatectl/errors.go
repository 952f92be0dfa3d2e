package main

import (
	"errors"
	"fmt"
)

// Fatal error categories. Each aborts the install pipeline immediately and
// routes through the recovery controller; the recorded stage names the
// component that raised it.
//
// Soft failures (TLS issuance, readiness timeout) are not errors in this
// taxonomy: they are recorded as warnings on the session and the run still
// exits zero.

// ErrUnsupportedPlatform is returned when a stage needs OS-specific dispatch
// and platform detection yielded an unknown family. Detection itself never
// fails; only the dispatch does.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// PrivilegeError indicates the process lacks the rights required to install
// packages or write protected paths. It is always raised before any host
// mutation, so recovery is a no-op when it fires.
type PrivilegeError struct {
	// Detail describes what right was missing.
	Detail string
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("insufficient privileges: %s", e.Detail)
}

// DockerInstallError indicates the container runtime is unusable after an
// install attempt. Install commands reporting success is necessary but not
// sufficient; the daemon must be reachable afterwards.
type DockerInstallError struct {
	// Reason describes the verification that failed.
	Reason string

	// Remediation is an operator-facing hint printed with the diagnosis.
	Remediation string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

func (e *DockerInstallError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("container runtime install failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("container runtime install failed: %s", e.Reason)
}

func (e *DockerInstallError) Unwrap() error {
	return e.Wrapped
}

// ConfigurationValidationError indicates an operator-supplied value failed
// validation after the wizard's re-prompt budget was exhausted (or in
// non-interactive mode, where there is no re-prompt).
type ConfigurationValidationError struct {
	// Field is the configuration field that failed.
	Field string

	// Reason describes why the value was rejected.
	Reason string
}

func (e *ConfigurationValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

// UnsupportedPlatformError wraps ErrUnsupportedPlatform with the detected
// platform for the recovery report.
func UnsupportedPlatformError(family, version string) error {
	if version == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, family)
	}
	return fmt.Errorf("%w: %s %s", ErrUnsupportedPlatform, family, version)
}
