package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tidegate/tidegatectl/pkg/logging"
)

// StackLauncher starts the composition and probes it into readiness.
type StackLauncher struct {
	pm  ProcessManager
	log *logging.Logger
	out io.Writer

	// client, interval, and attempts are fields so tests can shrink the
	// probe loop; production uses the package defaults.
	client   *http.Client
	interval time.Duration
	attempts int
}

// NewStackLauncher creates a launcher with production probe settings.
func NewStackLauncher(pm ProcessManager, log *logging.Logger, out io.Writer) *StackLauncher {
	return &StackLauncher{
		pm:       pm,
		log:      log,
		out:      out,
		client:   &http.Client{Timeout: EnforceMinTimeout(DefaultHTTPTimeout, MinHTTPTimeout)},
		interval: ReadinessProbeInterval,
		attempts: ReadinessProbeAttempts,
	}
}

// Launch brings the stack up. The compose invocation failing is fatal; the
// API not turning healthy within the probe budget is a warning, because slow
// first-time image pulls and migrations routinely outlast any fixed window.
func (l *StackLauncher) Launch(ctx context.Context, session *Session) error {
	cfg := session.Config

	args := []string{
		"compose",
		"-f", cfg.ManifestPath(),
		"--project-directory", cfg.InstallDir,
		"up", "-d",
	}
	if cfg.Source == SourceBuild {
		args = append(args, "--build")
	}
	// Bounded: a hung pull or build must not wedge the pipeline.
	upCtx, cancel := context.WithTimeout(ctx, DefaultComposeTimeout)
	defer cancel()
	if err := l.pm.RunStreaming(upCtx, l.out, "docker", args...); err != nil {
		return fmt.Errorf("launch stack: %w", err)
	}

	if err := l.awaitReady(ctx, cfg); err != nil {
		session.AddWarning(fmt.Sprintf(
			"the API did not report healthy within %s; it may still be starting — check later with %s/status.sh",
			time.Duration(l.attempts)*l.interval, cfg.ScriptsDir()))
	}
	return nil
}

// awaitReady polls the health endpoint until it answers 200 or the attempt
// budget runs out.
func (l *StackLauncher) awaitReady(ctx context.Context, cfg *Config) error {
	url := cfg.HealthURL()
	for i := 0; i < l.attempts; i++ {
		if l.probeOnce(ctx, url) {
			l.log.Info("API ready", "url", url, "attempts", i+1)
			return nil
		}
		select {
		case <-time.After(l.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("health endpoint %s not ready after %d attempts", url, l.attempts)
}

func (l *StackLauncher) probeOnce(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ServiceHealth is one row of the final health sweep, shown in the summary.
type ServiceHealth struct {
	Service string
	Healthy bool
	Detail  string
}

// HealthSweep checks every service concurrently and reports per-service
// results. Informational only; failures surface in the summary, not as
// pipeline errors.
func (l *StackLauncher) HealthSweep(ctx context.Context, cfg *Config) []ServiceHealth {
	checks := []struct {
		service string
		run     func(context.Context) error
	}{
		{"api", func(ctx context.Context) error {
			if !l.probeOnce(ctx, cfg.HealthURL()) {
				return fmt.Errorf("health endpoint not answering")
			}
			return nil
		}},
		{"postgres", func(ctx context.Context) error {
			_, err := l.compose(ctx, cfg, "exec", "-T", "postgres", "pg_isready", "-U", DBUser, "-d", DBName)
			return err
		}},
		{"redis", func(ctx context.Context) error {
			_, err := l.compose(ctx, cfg, "exec", "-T", "redis",
				"sh", "-c", `redis-cli -a "$REDIS_PASSWORD" --no-auth-warning ping`)
			return err
		}},
	}

	results := make([]ServiceHealth, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			err := c.run(gctx)
			results[i] = ServiceHealth{Service: c.service, Healthy: err == nil}
			if err != nil {
				results[i].Detail = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (l *StackLauncher) compose(ctx context.Context, cfg *Config, args ...string) ([]byte, error) {
	full := append([]string{
		"compose",
		"-f", cfg.ManifestPath(),
		"--project-directory", cfg.InstallDir,
	}, args...)
	return l.pm.Run(ctx, "docker", full...)
}
