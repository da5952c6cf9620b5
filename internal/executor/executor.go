// Package executor runs resolved action commands.
//
// Key types:
//   - [Executor] - Interface for running a command string
//   - [ShellExecutor] - Runs commands through a shell subprocess
//   - [MockExecutor] - Records commands without running them
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Executor runs a single resolved command.
//
// Execute returns an error only when the command could not be run at all.
// How a command's own failure is reported is up to the implementation.
type Executor interface {
	Execute(ctx context.Context, command string) error
}

// DefaultShell returns the shell used when none is configured.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "/bin/sh"
}

// ShellExecutor runs commands with "<shell> -c <command>".
//
// A command that exits non-zero is logged as a warning and is not an error:
// actions are fire-and-forget, and the remaining activities of a step still
// run. Failing to start the shell is returned as an error.
type ShellExecutor struct {
	shell  string
	stdout io.Writer
	stderr io.Writer
	logger logrus.FieldLogger
}

// NewShellExecutor creates a [ShellExecutor] that writes command output to
// stdout and stderr. An empty shell uses [DefaultShell]; a nil logger
// discards log output.
func NewShellExecutor(shell string, logger logrus.FieldLogger, stdout, stderr io.Writer) *ShellExecutor {
	if shell == "" {
		shell = DefaultShell()
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &ShellExecutor{
		shell:  shell,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}
}

// Execute runs the command and waits for it to finish.
func (e *ShellExecutor) Execute(ctx context.Context, command string) error {
	flag := "-c"
	if e.shell == "cmd" {
		flag = "/C"
	}

	cmd := exec.CommandContext(ctx, e.shell, flag, command)
	cmd.Stdin = os.Stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr

	e.logger.WithFields(logrus.Fields{"shell": e.shell, "command": command}).Debug("running action")

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		e.logger.WithFields(logrus.Fields{
			"command":   command,
			"exit_code": exitErr.ExitCode(),
		}).Warn("action exited with non-zero status")
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("action %q interrupted: %w", command, ctx.Err())
	}
	return fmt.Errorf("failed to run action %q: %w", command, err)
}

// MockExecutor implements [Executor] for testing.
//
// It records every command passed to Execute. Set Err to make Execute fail,
// optionally only for the command equal to FailOn.
type MockExecutor struct {
	// RecordedCommands holds the commands passed to Execute, in order.
	RecordedCommands []string

	// Err is returned from Execute when set.
	Err error

	// FailOn restricts Err to this command when non-empty.
	FailOn string
}

// Execute records the command.
func (m *MockExecutor) Execute(ctx context.Context, command string) error {
	m.RecordedCommands = append(m.RecordedCommands, command)
	if m.Err != nil && (m.FailOn == "" || m.FailOn == command) {
		return m.Err
	}
	return nil
}
