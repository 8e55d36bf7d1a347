// Package scm defines the source-control collaborator that brings local
// working copies to pinned revisions. Network and transport details live in
// the external tool (git); the core only depends on the Sync contract.
package scm

import (
	"context"
	"fmt"
)

// SyncRequest describes one sync operation: bring Dest to exactly Revision of
// the repository at URL. Mirrors are alternate URLs tried in declared order
// after the primary URL fails. Clean discards local modifications first.
type SyncRequest struct {
	URL      string
	Dest     string
	Revision string
	Clean    bool
	Mirrors  []string
}

// SyncError reports a sync that failed against the primary URL and every
// mirror.
type SyncError struct {
	Dest string
	URLs []string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s from %v: %v", e.Dest, e.URLs, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Syncer synchronizes a working copy to a pinned revision. Implementations
// must converge idempotently: syncing twice to the same revision yields an
// identical working tree.
type Syncer interface {
	Sync(ctx context.Context, req *SyncRequest) error
}
