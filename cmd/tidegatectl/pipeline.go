package main

/*
Install pipeline.

Execution is strictly sequential: each stage either mutates the session or
the host and returns, or aborts the run. Soft stages (TLS, service
registration) downgrade their errors to session warnings. Everything fatal
unwinds through the recovery controller, which reports, best-effort stops the
stack, and never deletes operator data.
*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidegate/tidegatectl/pkg/logging"
	"github.com/tidegate/tidegatectl/pkg/ux"
)

// Pipeline wires the stages together over shared collaborators.
type Pipeline struct {
	pm       ProcessManager
	prompter UserPrompter
	log      *logging.Logger
	out      io.Writer

	// fileLog is the workspace-backed logger attached once the logs
	// directory exists; closed at the end of the run.
	fileLog *logging.Logger
}

// NewPipeline creates the production pipeline.
func NewPipeline(pm ProcessManager, prompter UserPrompter, log *logging.Logger, out io.Writer) *Pipeline {
	return &Pipeline{pm: pm, prompter: prompter, log: log, out: out}
}

// pipelineStage is one named step. Soft stages record their error as a
// warning and the run continues.
type pipelineStage struct {
	stage Stage
	soft  bool
	run   func(ctx context.Context, session *Session) error
}

// stages returns the ordered stage list. Collaborators are constructed
// inside each stage rather than up front so stages past provision-workspace
// inherit the file-backed logger.
func (p *Pipeline) stages() []pipelineStage {
	return []pipelineStage{
		{stage: StageDetectPlatform, run: func(ctx context.Context, s *Session) error {
			s.Platform = DetectPlatform()
			p.log.Info("platform detected",
				"family", s.Platform.Family, "version", s.Platform.Version, "name", s.Platform.PrettyName)
			return nil
		}},
		{stage: StageCheckPrivileges, run: func(ctx context.Context, s *Session) error {
			return CheckPrivileges(s.Platform)
		}},
		{stage: StageConfigure, run: func(ctx context.Context, s *Session) error {
			cfg, err := NewWizard(NewSecretGenerator(), p.prompter).Gather(ctx)
			if err != nil {
				return err
			}
			s.Config = cfg
			return nil
		}},
		{stage: StageInstallRuntime, run: func(ctx context.Context, s *Session) error {
			return NewRuntimeInstaller(p.pm, p.log, p.out).Ensure(ctx, s)
		}},
		{stage: StageProvisionWorkspace, run: func(ctx context.Context, s *Session) error {
			if err := ProvisionWorkspace(s, p.log); err != nil {
				return err
			}
			p.attachFileLog(s)
			return nil
		}},
		{stage: StageAcquireSource, run: func(ctx context.Context, s *Session) error {
			return NewSourceAcquirer(p.pm, p.log, p.out).Acquire(ctx, s.Config)
		}},
		{stage: StageWriteEnvFile, run: func(ctx context.Context, s *Session) error {
			return WriteEnvFile(s.Config, p.log)
		}},
		{stage: StageGenerateManifest, run: func(ctx context.Context, s *Session) error {
			return WriteManifest(s.Config, p.log)
		}},
		{stage: StageProvisionTLS, soft: true, run: func(ctx context.Context, s *Session) error {
			installer, err := PlatformInstallerFor(s.Platform, p.pm, p.out)
			if err != nil {
				return err
			}
			return NewTLSProvisioner(p.pm, p.log, p.out).Provision(ctx, s, installer)
		}},
		{stage: StageGenerateScripts, run: func(ctx context.Context, s *Session) error {
			return GenerateScripts(s.Config, p.log)
		}},
		{stage: StageRegisterService, soft: true, run: func(ctx context.Context, s *Session) error {
			return NewServiceRegistrar(p.pm, p.log).Register(ctx, s)
		}},
		{stage: StageLaunchStack, run: func(ctx context.Context, s *Session) error {
			return NewStackLauncher(p.pm, p.log, p.out).Launch(ctx, s)
		}},
		{stage: StageSummary, run: func(ctx context.Context, s *Session) error {
			sweep := NewStackLauncher(p.pm, p.log, p.out).HealthSweep(ctx, s.Config)
			PrintSummary(s, sweep)
			return nil
		}},
	}
}

// attachFileLog upgrades diagnostics to also land under the workspace logs
// directory, so a failed install leaves a post-mortem trail. Best-effort:
// stderr logging continues regardless.
func (p *Pipeline) attachFileLog(s *Session) {
	if s.Config == nil {
		return
	}
	p.log = p.log.WithFile(s.Config.LogsDir())
	p.fileLog = p.log
	p.log.Info("file logging enabled", "dir", s.Config.LogsDir(), "session_id", s.ID)
}

// Run executes the pipeline for one session. On fatal failure the recovery
// controller has already reported by the time the error returns; the caller
// only maps it to the exit code.
func (p *Pipeline) Run(ctx context.Context) error {
	session := NewSession()
	p.log.Info("install started", "session_id", session.ID)
	defer func() {
		if p.fileLog != nil {
			_ = p.fileLog.Close()
		}
	}()

	stages := p.stages()
	recovery := NewRecoveryController(p.pm, p.log)

	for i, st := range stages {
		session.EnterStage(st.stage)

		// An interrupt between stages is handled here; one during a stage
		// surfaces as the stage's own context error.
		if err := ctx.Err(); err != nil {
			recovery.Handle(session, stages, i, err)
			return err
		}

		err := st.run(ctx, session)
		if err == nil {
			continue
		}
		if st.soft && ctx.Err() == nil {
			p.log.Warn("stage degraded", "stage", st.stage, "error", err.Error())
			session.AddWarning(fmt.Sprintf("%s: %v", st.stage, err))
			continue
		}
		recovery.Handle(session, stages, i, err)
		return err
	}

	p.log.Info("install finished", "session_id", session.ID, "warnings", len(session.Warnings))
	return nil
}

// ====== Failure recovery ======

// RecoveryController reports fatal failures and performs best-effort
// shutdown of anything the run started.
//
// # Limitations
//
// Recovery never deletes files. Partially written artifacts stay on disk for
// inspection; re-running the installer overwrites them.
type RecoveryController struct {
	pm  ProcessManager
	log *logging.Logger
}

// NewRecoveryController creates a recovery controller.
func NewRecoveryController(pm ProcessManager, log *logging.Logger) *RecoveryController {
	return &RecoveryController{pm: pm, log: log}
}

// Handle reports the failure and, when the run mutated the host, stops any
// containers it may have started. Gated on CleanupRequired: a run that
// failed before its first host mutation exits with just the diagnosis.
func (r *RecoveryController) Handle(session *Session, stages []pipelineStage, failedIdx int, cause error) {
	r.log.Error("install failed", "stage", session.Stage(), "error", cause.Error())

	ux.ErrorBox(fmt.Sprintf("Install failed during %s", session.Stage()), diagnose(cause))
	r.printStageReport(stages, failedIdx)

	if !session.CleanupRequired() {
		ux.Muted("No host changes were made.")
		return
	}

	if session.Config != nil {
		r.stopStack(session.Config)
	}

	ux.Info("What remains on the host:")
	if session.Config != nil {
		ux.Muted(fmt.Sprintf("  %s (kept for inspection; re-running overwrites it)", session.Config.InstallDir))
	}
	if session.RuntimeInstalled || session.ComposeInstalled {
		ux.Muted("  container runtime packages installed by this run (left in place)")
	}
	ux.Info("Fix the reported problem and re-run tidegatectl; completed steps are skipped or safely repeated.")
}

// printStageReport shows how far the run got.
func (r *RecoveryController) printStageReport(stages []pipelineStage, failedIdx int) {
	for i, st := range stages {
		switch {
		case i < failedIdx:
			ux.Step(ux.IconSuccess, string(st.stage), "")
		case i == failedIdx:
			ux.Step(ux.IconError, string(st.stage), "failed")
		default:
			ux.Step(ux.IconPending, string(st.stage), "")
		}
	}
}

// stopStack best-effort stops anything compose may have started. Errors are
// logged and swallowed; recovery must not raise its own failures.
func (r *RecoveryController) stopStack(cfg *Config) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultProcessTimeout)
	defer cancel()

	_, err := r.pm.Run(ctx, "docker", "compose",
		"-f", cfg.ManifestPath(),
		"--project-directory", cfg.InstallDir,
		"down",
	)
	if err != nil {
		r.log.Warn("stack shutdown during recovery failed", "error", err.Error())
		return
	}
	ux.Muted("Stopped containers started by this run.")
}

// diagnose maps the error taxonomy to operator guidance.
func diagnose(err error) string {
	var b strings.Builder
	b.WriteString(err.Error())

	var install *DockerInstallError
	var privilege *PrivilegeError
	switch {
	case errors.As(err, &install):
		if install.Remediation != "" {
			b.WriteString("\n\n" + install.Remediation)
		}
	case errors.As(err, &privilege):
		b.WriteString("\n\nRe-run the installer with sudo.")
	case errors.Is(err, ErrUnsupportedPlatform):
		b.WriteString("\n\nSupported platforms: Debian/Ubuntu, RHEL/Fedora family, macOS with Docker Desktop.")
	}
	if stderr := ExtractStderr(err); stderr != "" {
		b.WriteString("\n\n" + stderr)
	}
	return b.String()
}
