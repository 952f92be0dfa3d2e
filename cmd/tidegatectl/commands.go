package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tidegate/tidegatectl/pkg/logging"
)

// rootCmd is the installer entry point. Deliberately flagless: every choice
// is gathered interactively by the wizard so a curl-piped invocation and a
// careful one see the same prompts.
var rootCmd = &cobra.Command{
	Use:   "tidegatectl",
	Short: "Install a self-hosted Tidegate stack",
	Long: `tidegatectl installs and launches a self-hosted Tidegate stack on this
host: the API, its database and cache, and optionally a TLS reverse proxy
with an automatically issued certificate.

The installer is idempotent; re-running it repairs or refreshes a previous
install without destroying data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	// An interrupt cancels the context; the pipeline routes it through the
	// recovery controller like any other abort.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "tidegatectl",
	})
	defer log.Close()

	pipeline := NewPipeline(
		NewDefaultProcessManager(),
		NewInteractivePrompter(),
		log,
		os.Stdout,
	)
	return pipeline.Run(ctx)
}
