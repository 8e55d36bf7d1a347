package fingerprint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/command"
	"github.com/specialistvlad/buildgrid/internal/fingerprint"
	"github.com/specialistvlad/buildgrid/internal/recipe"
)

func buildRecipe(name string, argv []string, deps ...string) *recipe.BuildRecipe {
	return &recipe.BuildRecipe{
		Meta:  recipe.Meta{Name: name, Deps: deps},
		Steps: []command.Command{&command.Run{Argv: argv}},
	}
}

func TestCompute_Deterministic(t *testing.T) {
	r := buildRecipe("llvm", []string{"make", "-j%(cores)s"})
	a, err := fingerprint.Compute(r, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := fingerprint.Compute(r, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("fingerprints differ across identical computations: %s vs %s", a, b)
	}
}

func TestCompute_ChangedArgumentChangesFingerprint(t *testing.T) {
	a, err := fingerprint.Compute(buildRecipe("llvm", []string{"make", "-j4"}), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := fingerprint.Compute(buildRecipe("llvm", []string{"make", "-j8"}), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("changing a command argument must change the fingerprint")
	}
}

func TestCompute_DependencyFingerprintPropagates(t *testing.T) {
	r := buildRecipe("driver", []string{"true"}, "llvm")
	a, err := fingerprint.Compute(r, []string{"sha256:aaaa"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := fingerprint.Compute(r, []string{"sha256:bbbb"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("a changed dependency fingerprint must change the dependent's fingerprint")
	}
}

func TestCompute_KindIsPartOfIdentity(t *testing.T) {
	steps := []command.Command{&command.Run{Argv: []string{"true"}}}
	b := &recipe.BuildRecipe{Meta: recipe.Meta{Name: "x"}, Steps: steps}
	w := &recipe.WorkRecipe{Meta: recipe.Meta{Name: "x"}, Steps: steps}

	fb, err := fingerprint.Compute(b, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	fw, err := fingerprint.Compute(w, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fb == fw {
		t.Error("kind must be part of the fingerprint")
	}
}

func TestCompute_MismatchedDepCount(t *testing.T) {
	r := buildRecipe("driver", []string{"true"}, "llvm")
	if _, err := fingerprint.Compute(r, nil, nil); err == nil {
		t.Fatal("want error for missing dependency fingerprints")
	}
}

func TestCompute_InputOrderIndependent(t *testing.T) {
	r := buildRecipe("meta", []string{"true"})
	a, _ := fingerprint.Compute(r, nil, map[string]string{"x": "1", "y": "2"})
	b, _ := fingerprint.Compute(r, nil, map[string]string{"y": "2", "x": "1"})
	if a != b {
		t.Error("input map iteration order leaked into the fingerprint")
	}
}

func TestTree_IdenticalTreesDigestIdentically(t *testing.T) {
	mk := func() string {
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
			t.Fatal(err)
		}
		os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644)
		os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b"), 0o644)
		return dir
	}
	d1, err := fingerprint.Tree(mk())
	if err != nil {
		t.Fatal(err)
	}
	d2, err := fingerprint.Tree(mk())
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("identical trees digest differently: %s vs %s", d1, d2)
	}
}

func TestTree_ContentChangeChangesDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("one"), 0o644)
	d1, err := fingerprint.Tree(dir)
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(path, []byte("two"), 0o644)
	d2, err := fingerprint.Tree(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d1 == d2 {
		t.Error("content change did not change the tree digest")
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	os.WriteFile(path, []byte("data"), 0o644)
	d, err := fingerprint.File(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != len(fingerprint.Prefix)+64 {
		t.Errorf("unexpected digest shape %q", d)
	}
}
