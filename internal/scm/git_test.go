package scm_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/buildgrid/internal/scm"
	"github.com/specialistvlad/buildgrid/internal/testutil"
)

func TestGitSyncer_CloneThenCheckout(t *testing.T) {
	runner := testutil.NewFakeRunner()
	syncer := scm.NewGitSyncer(runner)
	dest := filepath.Join(t.TempDir(), "llvm")

	err := syncer.Sync(context.Background(), &scm.SyncRequest{
		URL:      "https://example.org/llvm.git",
		Dest:     dest,
		Revision: "deadbeef",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"git clone https://example.org/llvm.git " + dest,
		"git checkout -f deadbeef",
	}
	if diff := cmp.Diff(want, runner.Argvs()); diff != "" {
		t.Errorf("git invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestGitSyncer_FetchWhenWorkingCopyExists(t *testing.T) {
	runner := testutil.NewFakeRunner()
	syncer := scm.NewGitSyncer(runner)
	dest := filepath.Join(t.TempDir(), "llvm")
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := syncer.Sync(context.Background(), &scm.SyncRequest{
		URL:      "https://example.org/llvm.git",
		Dest:     dest,
		Revision: "deadbeef",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"git fetch https://example.org/llvm.git",
		"git checkout -f deadbeef",
	}
	if diff := cmp.Diff(want, runner.Argvs()); diff != "" {
		t.Errorf("git invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestGitSyncer_MirrorFallback(t *testing.T) {
	runner := testutil.NewFakeRunner()
	dest := filepath.Join(t.TempDir(), "llvm")
	runner.Fail["git clone https://primary.example.org/llvm.git "+dest] = 128

	syncer := scm.NewGitSyncer(runner)
	err := syncer.Sync(context.Background(), &scm.SyncRequest{
		URL:      "https://primary.example.org/llvm.git",
		Dest:     dest,
		Revision: "deadbeef",
		Mirrors:  []string{"https://mirror.example.org/llvm.git"},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"git clone https://primary.example.org/llvm.git " + dest,
		"git clone https://mirror.example.org/llvm.git " + dest,
		"git checkout -f deadbeef",
	}
	if diff := cmp.Diff(want, runner.Argvs()); diff != "" {
		t.Errorf("git invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestGitSyncer_AllMirrorsFail(t *testing.T) {
	runner := testutil.NewFakeRunner()
	dest := filepath.Join(t.TempDir(), "llvm")
	runner.Fail["git clone https://a.example.org/x.git "+dest] = 128
	runner.Fail["git clone https://b.example.org/x.git "+dest] = 128

	syncer := scm.NewGitSyncer(runner)
	err := syncer.Sync(context.Background(), &scm.SyncRequest{
		URL:      "https://a.example.org/x.git",
		Dest:     dest,
		Revision: "deadbeef",
		Mirrors:  []string{"https://b.example.org/x.git"},
	})
	if err == nil {
		t.Fatal("want error when every mirror fails")
	}
}

func TestGitSyncer_CleanDiscardsModifications(t *testing.T) {
	runner := testutil.NewFakeRunner()
	syncer := scm.NewGitSyncer(runner)
	dest := filepath.Join(t.TempDir(), "newlib")
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := syncer.Sync(context.Background(), &scm.SyncRequest{
		URL:      "https://example.org/newlib.git",
		Dest:     dest,
		Revision: "cafe",
		Clean:    true,
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"git fetch https://example.org/newlib.git",
		"git checkout -f",
		"git clean -dffx",
		"git checkout -f cafe",
	}
	if diff := cmp.Diff(want, runner.Argvs()); diff != "" {
		t.Errorf("git invocations mismatch (-want +got):\n%s", diff)
	}
}
