// Package store defines the content-addressed artifact store collaborator:
// fingerprint-keyed get/put of whole output directories. The executor only
// depends on this interface; backends may live on local disk or behind a
// remote blob service.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Error reports a store failure. Lookup failures degrade to a cache miss in
// the executor; a corrupt entry (digest mismatch) is always hard.
type Error struct {
	Fingerprint string
	Corrupt     bool
	Err         error
}

func (e *Error) Error() string {
	if e.Corrupt {
		return fmt.Sprintf("cache store: corrupt entry %s: %v", e.Fingerprint, e.Err)
	}
	return fmt.Sprintf("cache store: %s: %v", e.Fingerprint, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is a store error marking a corrupt entry.
func IsCorrupt(err error) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Corrupt
}

// Store is the content-addressed artifact store. Entries are never mutated,
// only superseded by new fingerprints; writing the same fingerprint twice is
// idempotent, which makes concurrent identical writes safe.
type Store interface {
	// Get materializes the artifact stored under fingerprint into destDir
	// and reports whether it was found. An absent entry is (false, nil).
	Get(ctx context.Context, fingerprint, destDir string) (bool, error)

	// Put stores the contents of srcDir under fingerprint.
	Put(ctx context.Context, fingerprint, srcDir string) error

	// Has reports whether an artifact is stored under fingerprint.
	Has(ctx context.Context, fingerprint string) (bool, error)
}
