package manifest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/specialistvlad/buildgrid/internal/command"
	"github.com/specialistvlad/buildgrid/internal/manifest"
	"github.com/specialistvlad/buildgrid/internal/recipe"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FullManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "grid.hcl", `
source "llvm_src" {
  url     = "https://example.com/llvm.git"
  clean   = true
  mirrors = ["https://mirror.example.com/llvm.git"]
}

build "llvm" {
  deps          = ["llvm_src"]
  inputs        = { patches = "patches/llvm" }
  output_subdir = "lib"

  mkdir {
    path    = "obj"
    parents = true
  }
  skip_for_incremental {
    run {
      argv = ["sh", "configure", "--prefix=%(output)s"]
    }
  }
  run {
    argv      = ["make", "-j%(cores)s"]
    stdout_to = "make.log"
  }
  write {
    data = "%(llvm_src)s"
    dst  = "%(output)s/SOURCE"
  }
}

work "driver" {
  deps = ["llvm"]

  copy_tree {
    src = "%(llvm)s"
    dst = "%(output)s"
  }
}

package "toolchain_linux" {
  os      = "linux"
  arch    = "x86-64"
  recipes = ["llvm", "driver"]
}
`)

	lock := &manifest.Lock{Revisions: map[string]string{"llvm_src": "deadbeef"}}
	recipes, packages, err := manifest.NewLoader(lock).Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	wantNames := []string{"llvm_src", "llvm", "driver"}
	if diff := cmp.Diff(wantNames, recipes.Names()); diff != "" {
		t.Errorf("recipe names mismatch (-want +got):\n%s", diff)
	}

	r, _ := recipes.Get("llvm_src")
	src, ok := r.(*recipe.SourceRecipe)
	if !ok {
		t.Fatalf("llvm_src is %T, want SourceRecipe", r)
	}
	if src.Revision != "deadbeef" {
		t.Errorf("revision = %q, want lock value", src.Revision)
	}
	if !src.Clean || len(src.Mirrors) != 1 {
		t.Errorf("source = %+v", src)
	}

	r, _ = recipes.Get("llvm")
	build := r.(*recipe.BuildRecipe)
	if build.OutputSubdir != "lib" || build.Inputs["patches"] != "patches/llvm" {
		t.Errorf("build meta = %+v", build.Meta)
	}
	wantLines := []string{
		"mkdir -p obj",
		`skip_for_incremental{run sh configure --prefix=%(output)s}`,
		`run make -j%(cores)s >make.log`,
		`write "%(llvm_src)s" %(output)s/SOURCE`,
	}
	if diff := cmp.Diff(wantLines, command.Lines(build.Steps)); diff != "" {
		t.Errorf("build steps mismatch (-want +got):\n%s", diff)
	}

	if _, ok := recipes.Get("driver"); !ok {
		t.Error("work recipe not loaded")
	}

	p, ok := packages.Get("toolchain_linux")
	if !ok {
		t.Fatal("package not loaded")
	}
	if p.OS != "linux" || p.Arch != "x86-64" || len(p.Recipes) != 2 {
		t.Errorf("package = %+v", p)
	}

	if err := recipes.Validate(); err != nil {
		t.Errorf("loaded tables should validate: %v", err)
	}
	if err := packages.Validate(recipes); err != nil {
		t.Errorf("loaded packages should validate: %v", err)
	}
}

func TestLoad_ManifestRevisionWithoutLock(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src.hcl", `
source "gcc_src" {
  url      = "https://example.com/gcc.git"
  revision = "cafe0001"
}
`)

	recipes, _, err := manifest.NewLoader(nil).Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	r, _ := recipes.Get("gcc_src")
	if got := r.(*recipe.SourceRecipe).Revision; got != "cafe0001" {
		t.Errorf("revision = %q, want cafe0001", got)
	}
}

func TestLoad_UnpinnedSourceFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src.hcl", `
source "gcc_src" {
  url = "https://example.com/gcc.git"
}
`)

	_, _, err := manifest.NewLoader(nil).Load(context.Background(), dir)
	var cfgErr *recipe.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
}

func TestLoad_UnknownCommandBlockFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.hcl", `
build "b" {
  teleport {
    dst = "elsewhere"
  }
}
`)

	_, _, err := manifest.NewLoader(nil).Load(context.Background(), dir)
	if err == nil {
		t.Fatal("want error for unknown command block")
	}
}

func TestLoad_DuplicateRecipeAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `
work "w" {
  run { argv = ["true"] }
}
`)
	writeFile(t, dir, "b.hcl", `
work "w" {
  run { argv = ["false"] }
}
`)

	_, _, err := manifest.NewLoader(nil).Load(context.Background(), dir)
	var cfgErr *recipe.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError for duplicate recipe, got %v", err)
	}
}

func TestLoadLock(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "revisions.lock.yaml", `
revisions:
  llvm_src: deadbeef
  gcc_src: cafe0001
`)

	lock, err := manifest.LoadLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if rev, ok := lock.Revision("llvm_src"); !ok || rev != "deadbeef" {
		t.Errorf("llvm_src = %q, %v", rev, ok)
	}
	if _, ok := lock.Revision("missing"); ok {
		t.Error("unexpected revision for unknown component")
	}
}
