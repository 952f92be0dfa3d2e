package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/tidegate/tidegatectl/pkg/validation"
)

// Wizard gathers the operator configuration.
//
// # Description
//
// For each field the resolution order is: explicit operator input when
// non-empty, else a freshly generated value. The application secret is always
// generated. On a TTY the wizard is a huh form with inline validation; the
// form re-prompts in place until the field validates, so this stage never
// partially commits a field. Without a TTY every prompt accepts its default.
type Wizard struct {
	secrets  *SecretGenerator
	prompter UserPrompter

	// forcePlain skips the form even on a TTY; used by tests.
	forcePlain bool
}

// NewWizard creates a wizard using the given prompter for plain-mode input.
func NewWizard(secrets *SecretGenerator, prompter UserPrompter) *Wizard {
	return &Wizard{secrets: secrets, prompter: prompter}
}

// Gather runs the wizard and returns a fully resolved, validated Config.
func (w *Wizard) Gather(ctx context.Context) (*Config, error) {
	cfg := &Config{
		InstallDir: DefaultInstallDir,
		Source:     SourcePrebuiltImage,
		Port:       DefaultPort,
	}

	var err error
	if w.interactive() {
		err = w.runForm(cfg)
	} else {
		err = w.runPlain(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := w.resolveSecrets(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (w *Wizard) interactive() bool {
	return !w.forcePlain && isatty.IsTerminal(os.Stdin.Fd())
}

// runForm drives the TTY wizard. Credential inputs left empty mean
// "generate for me" and are resolved afterwards.
func (w *Wizard) runForm(cfg *Config) error {
	var (
		source  = string(cfg.Source)
		port    = strconv.Itoa(cfg.Port)
		confirm bool
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Installation source").
				Description("Prebuilt images install faster; building from source tracks the main branch.").
				Options(
					huh.NewOption("Prebuilt image (recommended)", string(SourcePrebuiltImage)),
					huh.NewOption("Build from source", string(SourceBuild)),
				).
				Value(&source),
			huh.NewInput().
				Title("Install directory").
				Validate(validation.InstallDir).
				Value(&cfg.InstallDir),
			huh.NewInput().
				Title("API port").
				Validate(validation.Port).
				Value(&port),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				Description("Leave empty to generate one (tgk_ + 32 characters).").
				EchoMode(huh.EchoModePassword).
				Validate(validation.APIKey).
				Value(&cfg.APIKey),
			huh.NewInput().
				Title("Database password").
				Description("Leave empty to generate one.").
				EchoMode(huh.EchoModePassword).
				Validate(validation.Password).
				Value(&cfg.DBPassword),
			huh.NewInput().
				Title("Cache password").
				Description("Leave empty to generate one.").
				EchoMode(huh.EchoModePassword).
				Validate(validation.Password).
				Value(&cfg.CachePassword),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable HTTPS with an automatically issued certificate?").
				Value(&cfg.EnableTLS),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Domain name").
				Description("Must already resolve to this host.").
				Validate(validation.Domain).
				Value(&cfg.Domain),
			huh.NewInput().
				Title("Contact email for certificate notices").
				Validate(validation.Email).
				Value(&cfg.ContactEmail),
		).WithHideFunc(func() bool { return !cfg.EnableTLS }),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Proceed with installation?").
				Affirmative("Install").
				Negative("Abort").
				Value(&confirm),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("configuration wizard: %w", err)
	}
	if !confirm {
		return fmt.Errorf("installation aborted by operator")
	}

	cfg.Source = InstallSource(source)
	cfg.Port, _ = strconv.Atoi(strings.TrimSpace(port))
	cfg.InstallDir = strings.TrimSpace(cfg.InstallDir)
	return nil
}

// runPlain gathers configuration through the line prompter, accepting the
// default on empty input. Invalid values re-prompt up to three times before
// failing the stage.
func (w *Wizard) runPlain(ctx context.Context, cfg *Config) error {
	srcAns, err := w.askValidated(ctx, "Install source (prebuilt-image/build-from-source)",
		string(SourcePrebuiltImage), func(s string) error {
			switch InstallSource(s) {
			case SourcePrebuiltImage, SourceBuild:
				return nil
			}
			return fmt.Errorf("choose prebuilt-image or build-from-source")
		})
	if err != nil {
		return err
	}
	cfg.Source = InstallSource(srcAns)

	if cfg.InstallDir, err = w.askValidated(ctx, "Install directory", cfg.InstallDir, validation.InstallDir); err != nil {
		return err
	}

	portAns, err := w.askValidated(ctx, "API port", strconv.Itoa(cfg.Port), validation.Port)
	if err != nil {
		return err
	}
	cfg.Port, _ = strconv.Atoi(strings.TrimSpace(portAns))

	if cfg.APIKey, err = w.askValidated(ctx, "API key (empty to generate)", "", validation.APIKey); err != nil {
		return err
	}
	if cfg.DBPassword, err = w.askValidated(ctx, "Database password (empty to generate)", "", validation.Password); err != nil {
		return err
	}
	if cfg.CachePassword, err = w.askValidated(ctx, "Cache password (empty to generate)", "", validation.Password); err != nil {
		return err
	}

	if cfg.EnableTLS, err = w.prompter.Confirm(ctx, "Enable HTTPS with an automatically issued certificate?"); err != nil {
		return err
	}
	if cfg.EnableTLS {
		if cfg.Domain, err = w.askValidated(ctx, "Domain name", "", validation.Domain); err != nil {
			return err
		}
		if cfg.ContactEmail, err = w.askValidated(ctx, "Contact email", "", validation.Email); err != nil {
			return err
		}
	}
	return nil
}

// askValidated re-prompts in place on validation failure; the field is only
// committed once it validates.
func (w *Wizard) askValidated(ctx context.Context, prompt, def string, check func(string) error) (string, error) {
	const attempts = 3
	var lastErr error
	for i := 0; i < attempts; i++ {
		ans, err := w.prompter.Ask(ctx, prompt, def)
		if err != nil {
			return "", err
		}
		ans = strings.TrimSpace(ans)
		if lastErr = check(ans); lastErr == nil {
			return ans, nil
		}
		fmt.Fprintf(os.Stderr, "  %v\n", lastErr)
	}
	return "", &ConfigurationValidationError{Field: prompt, Reason: lastErr.Error()}
}

// resolveSecrets fills every credential field left empty with a freshly
// generated value. Each call draws new randomness; values never repeat
// across fields.
func (w *Wizard) resolveSecrets(cfg *Config) error {
	var err error
	if cfg.APIKey == "" {
		if cfg.APIKey, err = w.secrets.APIKey(); err != nil {
			return err
		}
	}
	if cfg.DBPassword == "" {
		if cfg.DBPassword, err = w.secrets.Password(); err != nil {
			return err
		}
	}
	if cfg.CachePassword == "" {
		if cfg.CachePassword, err = w.secrets.Password(); err != nil {
			return err
		}
	}
	// The application secret is never operator-supplied.
	if cfg.AppSecret, err = w.secrets.Password(); err != nil {
		return err
	}
	return nil
}
