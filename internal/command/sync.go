package command

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/scm"
)

// SyncSource brings a local working copy to exactly the pinned revision of a
// remote repository, delegating transport to the scm collaborator. Safe to
// re-invoke; converges to the same tree state every time.
type SyncSource struct {
	URL      string
	Dest     string
	Revision string
	Clean    bool
	Mirrors  []string
}

// Validate implements Command.
func (s *SyncSource) Validate() error {
	if s.URL == "" || s.Revision == "" {
		return fmt.Errorf("%w: sync needs url and revision", ErrInvalid)
	}
	return nil
}

// Apply implements Command.
func (s *SyncSource) Apply(ctx context.Context, env *Env) error {
	dest := s.Dest
	if dest == "" {
		dest = "%(output)s"
	}
	resolved, err := resolvePath(env, dest)
	if err != nil {
		return err
	}
	return env.Syncer.Sync(ctx, &scm.SyncRequest{
		URL:      s.URL,
		Dest:     resolved,
		Revision: s.Revision,
		Clean:    s.Clean,
		Mirrors:  s.Mirrors,
	})
}

// Line implements Command.
func (s *SyncSource) Line() string {
	return fmt.Sprintf("sync %s@%s clean=%v", s.URL, s.Revision, s.Clean)
}
