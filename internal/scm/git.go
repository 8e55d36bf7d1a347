package scm

import (
	"context"
	"os"
	"path/filepath"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/proc"
)

// GitSyncer implements Syncer by driving the git binary through a
// proc.Runner.
type GitSyncer struct {
	runner proc.Runner
}

// NewGitSyncer returns a Syncer that shells out to git via runner.
func NewGitSyncer(runner proc.Runner) *GitSyncer {
	return &GitSyncer{runner: runner}
}

// Sync implements Syncer. A missing working copy is cloned; an existing one
// is fetched and force-checked-out to the pinned revision. Each network
// operation is attempted against the primary URL first, then each mirror in
// declared order.
func (g *GitSyncer) Sync(ctx context.Context, req *SyncRequest) error {
	logger := ctxlog.FromContext(ctx)
	urls := append([]string{req.URL}, req.Mirrors...)

	if !isWorkingCopy(req.Dest) {
		if err := g.clone(ctx, req, urls); err != nil {
			return err
		}
	} else if err := g.fetch(ctx, req, urls); err != nil {
		return err
	}

	if req.Clean {
		logger.Debug("Discarding local modifications before checkout.", "dest", req.Dest)
		if err := g.git(ctx, req.Dest, "checkout", "-f"); err != nil {
			return err
		}
		if err := g.git(ctx, req.Dest, "clean", "-dffx"); err != nil {
			return err
		}
	}

	// Detached checkout of the pinned revision. Re-running against an
	// already-synced tree is a no-op.
	return g.git(ctx, req.Dest, "checkout", "-f", req.Revision)
}

func (g *GitSyncer) clone(ctx context.Context, req *SyncRequest, urls []string) error {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(filepath.Dir(req.Dest), 0o755); err != nil {
		return &SyncError{Dest: req.Dest, URLs: urls, Err: err}
	}
	var lastErr error
	for _, url := range urls {
		lastErr = g.git(ctx, "", "clone", url, req.Dest)
		if lastErr == nil {
			return nil
		}
		logger.Warn("Clone failed, trying next mirror.", "url", url, "error", lastErr)
	}
	return &SyncError{Dest: req.Dest, URLs: urls, Err: lastErr}
}

func (g *GitSyncer) fetch(ctx context.Context, req *SyncRequest, urls []string) error {
	logger := ctxlog.FromContext(ctx)
	var lastErr error
	for _, url := range urls {
		lastErr = g.git(ctx, req.Dest, "fetch", url)
		if lastErr == nil {
			return nil
		}
		logger.Warn("Fetch failed, trying next mirror.", "url", url, "error", lastErr)
	}
	return &SyncError{Dest: req.Dest, URLs: urls, Err: lastErr}
}

func (g *GitSyncer) git(ctx context.Context, dir string, args ...string) error {
	argv := append([]string{"git"}, args...)
	return g.runner.Run(ctx, &proc.Spec{Argv: argv, Dir: dir})
}

func isWorkingCopy(dest string) bool {
	info, err := os.Stat(filepath.Join(dest, ".git"))
	return err == nil && info.IsDir()
}
