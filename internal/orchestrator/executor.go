package orchestrator

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/tphakala/birddeck/internal/errors"
)

// ProcessExecutor runs each stage as a child process of Binary: `Binary <stage> Args...`,
// streaming its output
type ProcessExecutor struct {
	Binary string
	Args   []string // flags passed to every stage, e.g. --config
	Stdout io.Writer
	Stderr io.Writer
}

// NewSelfExecutor returns an executor that re-invokes the running binary
func NewSelfExecutor(args []string) (*ProcessExecutor, error) {
	binary, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Component("orchestrator").
			Category(errors.CategoryCommandExecution).
			Context("operation", "resolve_executable").
			Build()
	}
	return &ProcessExecutor{Binary: binary, Args: args, Stdout: os.Stdout, Stderr: os.Stderr}, nil
}

// Run starts the stage process and waits for it
func (e *ProcessExecutor) Run(ctx context.Context, stage string) error {
	args := append([]string{stage}, e.Args...)
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return cmd.Run()
}

// exitCode returns the exit code of a failed child process, or 1 for other errors
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
