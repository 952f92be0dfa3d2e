package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

// healthServer runs a local health endpoint and returns a config whose port
// points at it.
func healthServer(t *testing.T, status int) *Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(status)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	_, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg := testConfig(t)
	cfg.Port = port
	return cfg
}

func fastLauncher(pm ProcessManager) *StackLauncher {
	l := NewStackLauncher(pm, testLogger(), io.Discard)
	l.interval = 10 * time.Millisecond
	l.attempts = 3
	return l
}

func TestLaunchHealthyStack(t *testing.T) {
	mock := okStreamingMock()
	cfg := healthServer(t, http.StatusOK)
	session := debianSession()
	session.Config = cfg

	if err := fastLauncher(mock).Launch(context.Background(), session); err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	if !mock.HasCall("docker", "up -d") {
		t.Error("compose up never ran")
	}
	if mock.HasCall("docker", "--build") {
		t.Error("prebuilt launch passed --build")
	}
	if len(session.Warnings) != 0 {
		t.Errorf("healthy launch produced warnings: %v", session.Warnings)
	}
}

func TestLaunchSourceModePassesBuild(t *testing.T) {
	mock := okStreamingMock()
	cfg := healthServer(t, http.StatusOK)
	cfg.Source = SourceBuild
	session := debianSession()
	session.Config = cfg

	if err := fastLauncher(mock).Launch(context.Background(), session); err != nil {
		t.Fatal(err)
	}
	if !mock.HasCall("docker", "up -d --build") {
		t.Error("source-mode launch missing --build")
	}
}

func TestLaunchComposeFailureIsFatal(t *testing.T) {
	mock := &MockProcessManager{
		RunStreamingFunc: func(ctx context.Context, out io.Writer, name string, args ...string) error {
			return NewCommandError("docker compose up -d", 1, "invalid compose file", nil)
		},
	}
	session := debianSession()
	session.Config = testConfig(t)

	if err := fastLauncher(mock).Launch(context.Background(), session); err == nil {
		t.Fatal("compose failure must be fatal")
	}
}

func TestLaunchUnreadyAPIIsAWarningNotAnError(t *testing.T) {
	mock := okStreamingMock()
	cfg := healthServer(t, http.StatusServiceUnavailable)
	session := debianSession()
	session.Config = cfg

	if err := fastLauncher(mock).Launch(context.Background(), session); err != nil {
		t.Fatalf("readiness timeout must not be fatal: %v", err)
	}
	if len(session.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", session.Warnings)
	}
}

func TestHealthSweepReportsPerService(t *testing.T) {
	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			// postgres answers, redis does not.
			for _, a := range args {
				if a == "redis" {
					return nil, NewCommandError("docker compose exec redis", 1, "NOAUTH", nil)
				}
			}
			return []byte("ok"), nil
		},
	}
	cfg := healthServer(t, http.StatusOK)

	results := fastLauncher(mock).HealthSweep(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("sweep returned %d results", len(results))
	}
	byService := map[string]ServiceHealth{}
	for _, r := range results {
		byService[r.Service] = r
	}
	if !byService["api"].Healthy {
		t.Error("api reported unhealthy against a live endpoint")
	}
	if !byService["postgres"].Healthy {
		t.Error("postgres reported unhealthy")
	}
	if byService["redis"].Healthy {
		t.Error("redis reported healthy despite failing check")
	}
	if byService["redis"].Detail == "" {
		t.Error("failing service carries no detail")
	}
}
