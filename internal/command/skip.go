package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// SkipForIncremental wraps a command list such that the wrapped steps are
// skipped when the recipe's working directory already holds a valid
// incremental build state. This keeps expensive configure/cmake steps from
// re-running on incremental rebuilds while make still runs every time.
type SkipForIncremental struct {
	Wrapped []Command
}

// Validate implements Command.
func (s *SkipForIncremental) Validate() error {
	if len(s.Wrapped) == 0 {
		return fmt.Errorf("%w: skip_for_incremental wraps nothing", ErrInvalid)
	}
	return ValidateAll(s.Wrapped)
}

// Apply implements Command.
func (s *SkipForIncremental) Apply(ctx context.Context, env *Env) error {
	marker := filepath.Join(env.Dir, IncrementalMarker)
	if _, err := os.Stat(marker); err == nil {
		ctxlog.FromContext(ctx).Debug("Incremental build state present, skipping wrapped steps.",
			"dir", env.Dir, "steps", len(s.Wrapped))
		return nil
	}
	for _, c := range s.Wrapped {
		if err := c.Apply(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// Line implements Command.
func (s *SkipForIncremental) Line() string {
	return "skip_for_incremental{" + strings.Join(Lines(s.Wrapped), "; ") + "}"
}

// Stamp writes the incremental marker into dir, declaring it a valid
// incremental build state for subsequent runs.
func Stamp(dir string) error {
	if err := os.WriteFile(filepath.Join(dir, IncrementalMarker), []byte("ok\n"), 0o644); err != nil {
		return &IOError{Op: "stamp", Path: dir, Err: err}
	}
	return nil
}
