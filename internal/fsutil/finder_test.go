package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/specialistvlad/buildgrid/internal/fsutil"
)

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"a.hcl", "nested/b.hcl", "nested/c.txt"} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := fsutil.FindFilesByExtension(dir, ".hcl")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.hcl"),
		filepath.Join(dir, "nested", "b.hcl"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestFindFilesByExtension_EmptyExtension(t *testing.T) {
	if _, err := fsutil.FindFilesByExtension(t.TempDir(), ""); err == nil {
		t.Fatal("want error for empty extension")
	}
}
