package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/proc"
)

// Run executes an external program with templated arguments in the recipe's
// working directory. StdoutTo, when set, redirects the program's standard
// output to a file.
type Run struct {
	Argv     []string
	Env      []string
	StdoutTo string
}

// Validate implements Command.
func (r *Run) Validate() error {
	if len(r.Argv) == 0 {
		return fmt.Errorf("%w: run needs a program", ErrInvalid)
	}
	return nil
}

// Apply implements Command.
func (r *Run) Apply(ctx context.Context, env *Env) error {
	argv, err := env.Scope.ExpandAll(r.Argv)
	if err != nil {
		return err
	}
	environ, err := env.Scope.ExpandAll(r.Env)
	if err != nil {
		return err
	}

	spec := &proc.Spec{Argv: argv, Dir: env.Dir, Env: environ}
	if r.StdoutTo != "" {
		dst, err := resolvePath(env, r.StdoutTo)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return &IOError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
		}
		f, err := os.Create(dst)
		if err != nil {
			return &IOError{Op: "redirect", Path: dst, Err: err}
		}
		defer f.Close()
		spec.Stdout = f
	}

	if err := env.Runner.Run(ctx, spec); err != nil {
		var exitErr *proc.ExitError
		if errors.As(err, &exitErr) {
			return &FailedError{Argv: argv, Code: exitErr.Code}
		}
		return err
	}
	return nil
}

// Line implements Command.
func (r *Run) Line() string {
	line := "run " + strings.Join(r.Argv, " ")
	if len(r.Env) > 0 {
		line += " env=" + strings.Join(r.Env, ",")
	}
	if r.StdoutTo != "" {
		line += " >" + r.StdoutTo
	}
	return line
}
