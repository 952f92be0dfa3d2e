package main

/*
ProcessManager abstracts external process execution.

Every external command the installer runs (apt/dnf, docker, docker compose,
git, certbot, systemctl) goes through this interface so the stage logic can be
unit tested against a mock without touching the host.
*/

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// ProcessManager handles external process operations.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
//
// # Context Handling
//
// All methods accept a context.Context; long-running commands (package
// installs, image pulls) are killed when it is cancelled.
type ProcessManager interface {
	// Run executes a command synchronously and returns its stdout.
	// On failure the returned error wraps a *CommandError carrying the
	// exit code and trimmed stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunWithInput executes a command with data piped to stdin.
	RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)

	// RunStreaming executes a command with stdout/stderr attached to the
	// given writer, for long operations whose progress the operator should
	// see (package installs, image pulls and builds).
	RunStreaming(ctx context.Context, out io.Writer, name string, args ...string) error

	// LookPath reports whether an executable is resolvable on PATH.
	LookPath(name string) (string, error)
}

// DefaultProcessManager implements ProcessManager using os/exec.
type DefaultProcessManager struct{}

// NewDefaultProcessManager creates the production process manager.
func NewDefaultProcessManager() *DefaultProcessManager {
	return &DefaultProcessManager{}
}

// Run executes a command synchronously and returns its stdout.
func (pm *DefaultProcessManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewCommandError(commandLine(name, args), exitCodeOf(err), stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

// RunWithInput executes a command with data piped to stdin.
func (pm *DefaultProcessManager) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewCommandError(commandLine(name, args), exitCodeOf(err), stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

// RunStreaming executes a command with output attached to the given writer.
func (pm *DefaultProcessManager) RunStreaming(ctx context.Context, out io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderrTail bytes.Buffer
	cmd.Stdout = out
	// Tee stderr so the operator sees it live and the error still carries it.
	cmd.Stderr = io.MultiWriter(out, &stderrTail)

	if err := cmd.Run(); err != nil {
		return NewCommandError(commandLine(name, args), exitCodeOf(err), stderrTail.String(), err)
	}
	return nil
}

// LookPath reports whether an executable is resolvable on PATH.
func (pm *DefaultProcessManager) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockProcessManager is a test double for ProcessManager.
//
// Configure the mock by setting function fields before use. If a function
// field is nil and the corresponding method is called, it panics.
type MockProcessManager struct {
	// RunFunc is called when Run is invoked.
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunWithInputFunc is called when RunWithInput is invoked.
	RunWithInputFunc func(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)

	// RunStreamingFunc is called when RunStreaming is invoked.
	RunStreamingFunc func(ctx context.Context, out io.Writer, name string, args ...string) error

	// LookPathFunc is called when LookPath is invoked. When nil, LookPath
	// resolves every name (convenient default for most tests).
	LookPathFunc func(name string) (string, error)

	// Calls records all method invocations for verification.
	Calls []ProcessCall

	mu sync.Mutex
}

// ProcessCall records a single method invocation.
type ProcessCall struct {
	Method string
	Name   string
	Args   []string
}

// Run delegates to RunFunc and records the call.
func (m *MockProcessManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record("Run", name, args)
	if m.RunFunc == nil {
		panic("MockProcessManager.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunWithInput delegates to RunWithInputFunc and records the call.
func (m *MockProcessManager) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	m.record("RunWithInput", name, args)
	if m.RunWithInputFunc == nil {
		panic("MockProcessManager.RunWithInputFunc not set")
	}
	return m.RunWithInputFunc(ctx, name, input, args...)
}

// RunStreaming delegates to RunStreamingFunc and records the call.
func (m *MockProcessManager) RunStreaming(ctx context.Context, out io.Writer, name string, args ...string) error {
	m.record("RunStreaming", name, args)
	if m.RunStreamingFunc == nil {
		panic("MockProcessManager.RunStreamingFunc not set")
	}
	return m.RunStreamingFunc(ctx, out, name, args...)
}

// LookPath delegates to LookPathFunc and records the call.
func (m *MockProcessManager) LookPath(name string) (string, error) {
	m.record("LookPath", name, nil)
	if m.LookPathFunc == nil {
		return "/usr/bin/" + name, nil
	}
	return m.LookPathFunc(name)
}

func (m *MockProcessManager) record(method, name string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ProcessCall{Method: method, Name: name, Args: args})
}

// CallsFor returns recorded invocations of the given executable.
func (m *MockProcessManager) CallsFor(name string) []ProcessCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ProcessCall
	for _, c := range m.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// HasCall reports whether a recorded call matches the executable and a
// substring of its joined arguments.
func (m *MockProcessManager) HasCall(name, argsContain string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Calls {
		if c.Name == name && strings.Contains(strings.Join(c.Args, " "), argsContain) {
			return true
		}
	}
	return false
}

var (
	_ ProcessManager = (*DefaultProcessManager)(nil)
	_ ProcessManager = (*MockProcessManager)(nil)
)
