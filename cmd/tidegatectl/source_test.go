package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func okStreamingMock() *MockProcessManager {
	return &MockProcessManager{
		RunStreamingFunc: func(ctx context.Context, out io.Writer, name string, args ...string) error {
			return nil
		},
	}
}

func TestAcquireSkipsPrebuiltInstalls(t *testing.T) {
	mock := okStreamingMock()
	cfg := testConfig(t)

	if err := NewSourceAcquirer(mock, testLogger(), io.Discard).Acquire(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if len(mock.Calls) != 0 {
		t.Errorf("prebuilt install ran %d commands", len(mock.Calls))
	}
}

func TestAcquireClonesWhenGitAvailable(t *testing.T) {
	mock := okStreamingMock()
	cfg := testConfig(t)
	cfg.Source = SourceBuild

	if err := NewSourceAcquirer(mock, testLogger(), io.Discard).Acquire(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if !mock.HasCall("git", "clone --depth 1") {
		t.Error("shallow clone never ran")
	}
	if !mock.HasCall("git", SourceRepoURL) {
		t.Error("clone does not target the source repo")
	}
}

func TestAcquireRefreshesExistingCheckout(t *testing.T) {
	mock := okStreamingMock()
	cfg := testConfig(t)
	cfg.Source = SourceBuild
	if err := os.MkdirAll(filepath.Join(cfg.SourceDir(), ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := NewSourceAcquirer(mock, testLogger(), io.Discard).Acquire(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if !mock.HasCall("git", "pull --ff-only") {
		t.Error("existing checkout not refreshed")
	}
	if mock.HasCall("git", "clone") {
		t.Error("existing checkout re-cloned")
	}
}

func TestAcquireFallsBackToArchiveWithoutGit(t *testing.T) {
	mock := okStreamingMock()
	mock.LookPathFunc = func(name string) (string, error) {
		if name == "git" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	cfg := testConfig(t)
	cfg.Source = SourceBuild
	if err := os.MkdirAll(cfg.SourceDir(), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := NewSourceAcquirer(mock, testLogger(), io.Discard).Acquire(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if !mock.HasCall("curl", SourceArchiveURL) {
		t.Error("archive never downloaded")
	}
	if !mock.HasCall("tar", "--strip-components=1") {
		t.Error("archive not unpacked with the top directory stripped")
	}
}

func TestAcquireRefreshFailureIsNotFatal(t *testing.T) {
	mock := &MockProcessManager{
		RunStreamingFunc: func(ctx context.Context, out io.Writer, name string, args ...string) error {
			return NewCommandError("git pull", 1, "diverged", nil)
		},
	}
	cfg := testConfig(t)
	cfg.Source = SourceBuild
	if err := os.MkdirAll(filepath.Join(cfg.SourceDir(), ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := NewSourceAcquirer(mock, testLogger(), io.Discard).Acquire(context.Background(), cfg); err != nil {
		t.Errorf("a failed refresh of an existing tree must not abort: %v", err)
	}
}
