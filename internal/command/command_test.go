package command_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/buildgrid/internal/command"
	"github.com/specialistvlad/buildgrid/internal/testutil"
	"github.com/specialistvlad/buildgrid/internal/vars"
)

func newEnv(t *testing.T) (*command.Env, *testutil.FakeRunner) {
	t.Helper()
	runner := testutil.NewFakeRunner()
	return &command.Env{
		Scope:  vars.NewScope(),
		Dir:    t.TempDir(),
		Runner: runner,
		Syncer: &testutil.FakeSyncer{},
	}, runner
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_ExpandsArgvAndReportsFailure(t *testing.T) {
	env, runner := newEnv(t)
	env.Scope.Set("cores", "4")

	run := &command.Run{Argv: []string{"make", "-j%(cores)s"}}
	if err := run.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	want := []string{"make -j4"}
	if diff := cmp.Diff(want, runner.Argvs()); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}

	runner.Fail["make -j4"] = 2
	err := run.Apply(context.Background(), env)
	var failed *command.FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("want FailedError, got %v", err)
	}
	if failed.Code != 2 {
		t.Errorf("exit code = %d, want 2", failed.Code)
	}
}

func TestRun_UnresolvedVariable(t *testing.T) {
	env, _ := newEnv(t)
	run := &command.Run{Argv: []string{"cc", "-I%(nonexistent)s"}}
	err := run.Apply(context.Background(), env)
	var unresolved *vars.UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("want UnresolvedError, got %v", err)
	}
}

func TestCopy_CreatesDestinationDirs(t *testing.T) {
	env, _ := newEnv(t)
	writeFile(t, filepath.Join(env.Dir, "in.txt"), "hello")

	cp := &command.Copy{Src: "in.txt", Dst: "nested/dir/out.txt"}
	if err := cp.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(env.Dir, "nested", "dir", "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("copied content = %q, want %q", got, "hello")
	}
}

func TestCopy_MissingSourceIsIOError(t *testing.T) {
	env, _ := newEnv(t)
	cp := &command.Copy{Src: "absent.txt", Dst: "out.txt"}
	err := cp.Apply(context.Background(), env)
	var ioErr *command.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("want IOError, got %v", err)
	}
}

func TestCopyTree_PreservesStructure(t *testing.T) {
	env, _ := newEnv(t)
	writeFile(t, filepath.Join(env.Dir, "src", "a.txt"), "a")
	writeFile(t, filepath.Join(env.Dir, "src", "sub", "b.txt"), "b")

	ct := &command.CopyTree{Src: "src", Dst: "dst"}
	if err := ct.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"a.txt", filepath.Join("sub", "b.txt")} {
		if _, err := os.Stat(filepath.Join(env.Dir, "dst", rel)); err != nil {
			t.Errorf("missing copied file %s: %v", rel, err)
		}
	}
}

func TestMove(t *testing.T) {
	env, _ := newEnv(t)
	writeFile(t, filepath.Join(env.Dir, "old.txt"), "x")

	mv := &command.Move{Src: "old.txt", Dst: "moved/new.txt"}
	if err := mv.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(env.Dir, "old.txt")); !os.IsNotExist(err) {
		t.Error("source still present after move")
	}
	if _, err := os.Stat(filepath.Join(env.Dir, "moved", "new.txt")); err != nil {
		t.Errorf("destination missing: %v", err)
	}
}

func TestRemove_GlobsAndMissingTargets(t *testing.T) {
	env, _ := newEnv(t)
	writeFile(t, filepath.Join(env.Dir, "a.o"), "")
	writeFile(t, filepath.Join(env.Dir, "b.o"), "")
	writeFile(t, filepath.Join(env.Dir, "keep.c"), "")

	rm := &command.Remove{Globs: []string{"*.o", "no-such-*"}}
	if err := rm.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(env.Dir, "a.o")); !os.IsNotExist(err) {
		t.Error("a.o not removed")
	}
	if _, err := os.Stat(filepath.Join(env.Dir, "keep.c")); err != nil {
		t.Error("keep.c should survive")
	}
}

func TestWriteData_ExpandsScope(t *testing.T) {
	env, _ := newEnv(t)
	env.Scope.Set("rev", "deadbeef")

	w := &command.WriteData{Data: "revision=%(rev)s\n", Dst: "meta/REV"}
	if err := w.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(env.Dir, "meta", "REV"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "revision=deadbeef\n" {
		t.Errorf("wrote %q", got)
	}
}

func TestMkdir(t *testing.T) {
	env, _ := newEnv(t)
	m := &command.Mkdir{Path: "a/b/c", Parents: true}
	if err := m.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(env.Dir, "a", "b", "c"))
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestSyncSource_DefaultsDestToOutput(t *testing.T) {
	env, _ := newEnv(t)
	syncer := &testutil.FakeSyncer{}
	env.Syncer = syncer
	out := filepath.Join(env.Dir, "out")
	env.Scope.Set("output", out)

	s := &command.SyncSource{URL: "https://example.org/r.git", Revision: "cafe"}
	if err := s.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	reqs := syncer.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d sync requests, want 1", len(reqs))
	}
	if reqs[0].Dest != out {
		t.Errorf("dest = %q, want %q", reqs[0].Dest, out)
	}
}

func TestSkipForIncremental(t *testing.T) {
	env, runner := newEnv(t)
	skip := &command.SkipForIncremental{
		Wrapped: []command.Command{&command.Run{Argv: []string{"cmake", "."}}},
	}

	// Fresh directory: the wrapped configure step runs.
	if err := skip.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if got := len(runner.Calls()); got != 1 {
		t.Fatalf("got %d invocations, want 1", got)
	}

	// Stamped directory: the wrapped step is skipped.
	if err := command.Stamp(env.Dir); err != nil {
		t.Fatal(err)
	}
	if err := skip.Apply(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if got := len(runner.Calls()); got != 1 {
		t.Errorf("got %d invocations after stamp, want still 1", got)
	}
}

func TestValidateAll(t *testing.T) {
	err := command.ValidateAll([]command.Command{
		&command.Copy{Src: "a", Dst: "b"},
		&command.Run{},
	})
	if !errors.Is(err, command.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestLine_Deterministic(t *testing.T) {
	a := &command.Run{Argv: []string{"make", "-j%(cores)s"}}
	b := &command.Run{Argv: []string{"make", "-j%(cores)s"}}
	if a.Line() != b.Line() {
		t.Error("identical commands must render identical lines")
	}
	c := &command.Run{Argv: []string{"make", "-j1"}}
	if a.Line() == c.Line() {
		t.Error("different arguments must render different lines")
	}
}
