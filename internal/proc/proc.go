// Package proc defines the process-execution collaborator used by command
// primitives. The core never spawns processes directly; it talks to a Runner
// so tests can substitute a recording fake.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// Spec describes a single external process invocation.
type Spec struct {
	Argv   []string
	Dir    string
	Env    []string // appended to the inherited environment
	Stdout io.Writer
	Stderr io.Writer
}

// ExitError reports an external program that terminated with a non-zero
// exit code.
type ExitError struct {
	Argv []string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", strings.Join(e.Argv, " "), e.Code)
}

// Runner executes external processes.
type Runner interface {
	// Run starts the process described by spec and waits for it to exit.
	// A non-zero exit is reported as *ExitError; other errors indicate the
	// process could not be started.
	Run(ctx context.Context, spec *Spec) error
}

// OSRunner runs processes on the host via os/exec.
type OSRunner struct{}

// NewOSRunner returns a Runner backed by the host process API.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

// Run implements Runner.
func (r *OSRunner) Run(ctx context.Context, spec *Spec) error {
	if len(spec.Argv) == 0 {
		return fmt.Errorf("empty argv")
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running external process.", "argv", spec.Argv, "dir", spec.Dir)

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Argv: spec.Argv, Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("start %q: %w", spec.Argv[0], err)
}
