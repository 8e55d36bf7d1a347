package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/specialistvlad/buildgrid/internal/command"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/fingerprint"
)

const createTable = `
CREATE TABLE IF NOT EXISTS artifacts (
	fingerprint TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	digest      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);`

// DiskStore is a local content-addressed store. Artifacts live under
// <root>/objects/<key>/ and a SQLite index records each entry's location and
// content digest, which is re-verified on retrieval.
type DiskStore struct {
	root string
	db   *sql.DB
}

// OpenDisk opens (creating if needed) a disk store rooted at root.
func OpenDisk(root string) (*DiskStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "objects"), 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(root, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open store index: %w", err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store index: %w", err)
	}
	return &DiskStore{root: root, db: db}, nil
}

// Close releases the index database.
func (s *DiskStore) Close() error { return s.db.Close() }

// Get implements Store. The entry's recorded digest is recomputed over the
// stored tree before materialization; a mismatch is a hard corrupt-entry
// error, never a silent fallback.
func (s *DiskStore) Get(ctx context.Context, fp, destDir string) (bool, error) {
	var objPath, digest string
	err := s.db.QueryRowContext(ctx,
		`SELECT path, digest FROM artifacts WHERE fingerprint = ?`, fp).
		Scan(&objPath, &digest)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &Error{Fingerprint: fp, Err: err}
	}

	actual, err := fingerprint.Tree(objPath)
	if err != nil {
		return false, &Error{Fingerprint: fp, Corrupt: true, Err: err}
	}
	if actual != digest {
		return false, &Error{Fingerprint: fp, Corrupt: true,
			Err: fmt.Errorf("digest mismatch: recorded %s, stored tree %s", digest, actual)}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return false, &Error{Fingerprint: fp, Err: err}
	}
	if err := command.CopyDir(objPath, destDir); err != nil {
		return false, &Error{Fingerprint: fp, Err: err}
	}
	ctxlog.FromContext(ctx).Debug("Materialized cached artifact.", "fingerprint", fp, "dest", destDir)
	return true, nil
}

// Put implements Store. Writes are keyed by fingerprint: a second write of
// the same fingerprint is a no-op, so concurrent identical writes are safe.
func (s *DiskStore) Put(ctx context.Context, fp, srcDir string) error {
	ok, err := s.Has(ctx, fp)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	objPath := filepath.Join(s.root, "objects", objectKey(fp))
	tmp := objPath + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return &Error{Fingerprint: fp, Err: err}
	}
	if err := command.CopyDir(srcDir, tmp); err != nil {
		return &Error{Fingerprint: fp, Err: err}
	}
	if err := os.Rename(tmp, objPath); err != nil {
		// A concurrent writer won the rename; their copy is identical.
		if _, statErr := os.Stat(objPath); statErr == nil {
			os.RemoveAll(tmp)
		} else {
			return &Error{Fingerprint: fp, Err: err}
		}
	}

	digest, err := fingerprint.Tree(objPath)
	if err != nil {
		return &Error{Fingerprint: fp, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO artifacts (fingerprint, path, digest, created_at) VALUES (?, ?, ?, ?)`,
		fp, objPath, digest, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &Error{Fingerprint: fp, Err: err}
	}
	return nil
}

// Has implements Store.
func (s *DiskStore) Has(ctx context.Context, fp string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM artifacts WHERE fingerprint = ?`, fp).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &Error{Fingerprint: fp, Err: err}
	}
	return true, nil
}

func objectKey(fp string) string {
	return strings.TrimPrefix(fp, fingerprint.Prefix)
}
