// Package command implements the primitive vocabulary that recipe command
// lists are composed from: run an external process, copy files and trees,
// move, remove, write literal data, sync a source tree, and a wrapper that
// skips a step on incremental rebuilds.
//
// Every primitive satisfies the same contract: Validate checks the static
// shape, Apply performs the action against an Env, and Line returns a stable
// pre-expansion text used for fingerprinting.
package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/proc"
	"github.com/specialistvlad/buildgrid/internal/scm"
	"github.com/specialistvlad/buildgrid/internal/vars"
)

// IncrementalMarker is the file the executor stamps into a recipe's working
// directory after a successful build. Its presence marks the directory as a
// valid incremental build state.
const IncrementalMarker = ".buildgrid-stamp"

// Env carries everything a primitive needs to apply itself: the recipe's
// variable scope, its working directory, and the external collaborators.
type Env struct {
	Scope  *vars.Scope
	Dir    string
	Runner proc.Runner
	Syncer scm.Syncer
}

// FailedError reports an external step that returned a non-zero exit code.
type FailedError struct {
	Argv []string
	Code int
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d", strings.Join(e.Argv, " "), e.Code)
}

// IOError reports a filesystem operation that failed.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrInvalid reports a primitive whose static shape is malformed.
var ErrInvalid = errors.New("invalid command")

// Command is the uniform contract every primitive satisfies.
type Command interface {
	// Validate checks the primitive's static shape without touching the
	// filesystem.
	Validate() error

	// Apply performs the action. Failures are reported as *FailedError,
	// *IOError, or a collaborator error; the executor only inspects the
	// error kind, never primitive internals.
	Apply(ctx context.Context, env *Env) error

	// Line returns a deterministic, pre-expansion text representation.
	// Fingerprints are computed over these lines, so changing any argument
	// changes the owning recipe's identity.
	Line() string
}

// Lines renders a command list to its fingerprintable form.
func Lines(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Line()
	}
	return out
}

// ValidateAll validates every command in the list, annotating failures with
// the command's position.
func ValidateAll(cmds []Command) error {
	for i, c := range cmds {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("command %d (%s): %w", i, c.Line(), err)
		}
	}
	return nil
}

// resolvePath expands p against the scope and anchors relative results at the
// recipe's working directory.
func resolvePath(env *Env, p string) (string, error) {
	expanded, err := env.Scope.Expand(p)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(env.Dir, expanded)
	}
	return expanded, nil
}
