package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/command"
)

// MemStore keeps artifacts under a private directory with an in-memory
// index. Used in tests and for throwaway runs where persistence across
// processes is not wanted.
type MemStore struct {
	dir     string
	mu      sync.Mutex
	entries map[string]string
	seq     int
}

// NewMem returns a MemStore that keeps artifact copies under dir.
func NewMem(dir string) *MemStore {
	return &MemStore{dir: dir, entries: make(map[string]string)}
}

// Get implements Store.
func (s *MemStore) Get(ctx context.Context, fp, destDir string) (bool, error) {
	s.mu.Lock()
	src, ok := s.entries[fp]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return false, &Error{Fingerprint: fp, Err: err}
	}
	if err := command.CopyDir(src, destDir); err != nil {
		return false, &Error{Fingerprint: fp, Err: err}
	}
	return true, nil
}

// Put implements Store.
func (s *MemStore) Put(ctx context.Context, fp, srcDir string) error {
	s.mu.Lock()
	if _, ok := s.entries[fp]; ok {
		s.mu.Unlock()
		return nil
	}
	s.seq++
	dst := filepath.Join(s.dir, fmt.Sprintf("obj-%d", s.seq))
	s.mu.Unlock()

	if err := command.CopyDir(srcDir, dst); err != nil {
		return &Error{Fingerprint: fp, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[fp]; !ok {
		s.entries[fp] = dst
	}
	return nil
}

// Has implements Store.
func (s *MemStore) Has(ctx context.Context, fp string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[fp]
	return ok, nil
}
