package main

import (
	"sync"

	"github.com/google/uuid"
)

// Stage identifies one named step of the install pipeline. The current stage
// is recorded on the session before each side-effecting action so any fatal
// failure is attributable to a single stage in the recovery report.
type Stage string

const (
	StageDetectPlatform     Stage = "detect-platform"
	StageCheckPrivileges    Stage = "check-privileges"
	StageConfigure          Stage = "configure"
	StageInstallRuntime     Stage = "install-runtime"
	StageProvisionWorkspace Stage = "provision-workspace"
	StageAcquireSource      Stage = "acquire-source"
	StageWriteEnvFile       Stage = "write-env-file"
	StageGenerateManifest   Stage = "generate-manifest"
	StageProvisionTLS       Stage = "provision-tls"
	StageGenerateScripts    Stage = "generate-scripts"
	StageRegisterService    Stage = "register-service"
	StageLaunchStack        Stage = "launch-stack"
	StageSummary            Stage = "summary"
)

// InstallSource selects how the API container image is obtained. Chosen once
// by the wizard and immutable for the rest of the session.
type InstallSource string

const (
	// SourcePrebuiltImage references the published API image.
	SourcePrebuiltImage InstallSource = "prebuilt-image"

	// SourceBuild builds the API image from a cloned source tree.
	SourceBuild InstallSource = "build-from-source"
)

// Session is the central mutable record for one installer run.
//
// # Description
//
// Session carries the pipeline position (Stage), the rollback gate
// (CleanupRequired), the detected platform, the operator's configuration,
// and the idempotency markers for runtime installation. It is passed by
// reference through every stage function; there is no ambient global state.
//
// # Thread Safety
//
// The pipeline is strictly sequential, but the recovery controller reads the
// session from a signal-handling goroutine, so the stage and cleanup fields
// are mutex-guarded.
type Session struct {
	// ID correlates log lines from one run.
	ID string

	// Platform is the detected host platform, immutable after detection.
	Platform Platform

	// Config holds the gathered operator configuration. Populated by the
	// wizard during StageConfigure and immutable afterwards.
	Config *Config

	// RuntimeInstalled is true when this run actually installed the engine
	// (false when it was already satisfied).
	RuntimeInstalled bool

	// ComposeInstalled is true when this run actually installed the
	// orchestration tool.
	ComposeInstalled bool

	// Warnings collects soft-failure messages for the final summary.
	Warnings []string

	mu              sync.Mutex
	stage           Stage
	cleanupRequired bool
}

// NewSession creates a session for a fresh run.
func NewSession() *Session {
	return &Session{
		ID:    uuid.NewString(),
		stage: StageDetectPlatform,
	}
}

// EnterStage records the named stage as current. Called before the stage
// performs any side effect.
func (s *Session) EnterStage(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

// Stage returns the stage most recently entered.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// MarkCleanupRequired flags that a host mutation has occurred. Set by the
// workspace provisioner before its first mkdir; once set it never clears.
func (s *Session) MarkCleanupRequired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupRequired = true
}

// CleanupRequired reports whether any host mutation has occurred, gating
// whether the recovery controller acts on abnormal exit.
func (s *Session) CleanupRequired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupRequired
}

// AddWarning records a soft-failure message for the summary report.
func (s *Session) AddWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}
