package main

import (
	"fmt"
	"strings"

	"github.com/tidegate/tidegatectl/pkg/ux"
)

// PrintSummary renders the final report: access URL, the API key (shown in
// full exactly once, here), generated artifact locations, the health sweep,
// and any soft-failure warnings collected along the way.
func PrintSummary(session *Session, health []ServiceHealth) {
	cfg := session.Config

	accessURL := cfg.BaseURL()
	if cfg.EnableTLS {
		accessURL = "https://" + cfg.Domain
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL         %s\n", accessURL)
	fmt.Fprintf(&b, "API key     %s\n", cfg.APIKey)
	fmt.Fprintf(&b, "Install dir %s\n", cfg.InstallDir)
	fmt.Fprintf(&b, "Settings    %s\n", cfg.EnvFilePath())
	fmt.Fprintf(&b, "Helpers     %s", cfg.ScriptsDir())
	ux.Box("Tidegate is installed", b.String())

	ux.Muted("The API key is shown only once; it is stored in the settings file.")
	fmt.Println()

	for _, h := range health {
		icon := ux.IconSuccess
		if !h.Healthy {
			icon = ux.IconWarning
		}
		ux.Step(icon, h.Service, h.Detail)
	}
	fmt.Println()

	if len(session.Warnings) > 0 {
		ux.WarningBox("Completed with warnings", strings.Join(session.Warnings, "\n"))
		fmt.Println()
	}

	ux.Info("Smoke test:")
	ux.Muted(fmt.Sprintf("  curl -H 'Authorization: Bearer %s' %s/health", cfg.APIKey, accessURL))
	ux.Info("Manage the stack:")
	ux.Muted(fmt.Sprintf("  %s/status.sh | update.sh | backup.sh | uninstall.sh", cfg.ScriptsDir()))
}
