// Package manifest loads recipe and package definitions from HCL files and a
// YAML revision lock, producing the format-agnostic tables the rest of the
// system runs on. The loader is a pure translation layer: everything it emits
// could equally be constructed in code.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/fsutil"
	"github.com/specialistvlad/buildgrid/internal/pack"
	"github.com/specialistvlad/buildgrid/internal/recipe"
)

// Loader reads .hcl manifest files into recipe and package tables.
type Loader struct {
	lock *Lock
}

// NewLoader creates a manifest loader. The lock may be nil when every source
// block carries its own revision.
func NewLoader(lock *Lock) *Loader {
	return &Loader{lock: lock}
}

// Load parses every .hcl file reachable from the given paths and merges the
// declared blocks into fresh tables. Files and directories are accepted;
// paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*recipe.Table, *pack.Table, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findManifestFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered manifest files.", "count", len(files))

	recipes := recipe.NewTable()
	packages := pack.NewTable()
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("parse manifest %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("decode manifest %s: %w", file, diags)
		}

		if err := l.merge(&root, recipes, packages); err != nil {
			return nil, nil, fmt.Errorf("manifest %s: %w", file, err)
		}
	}

	logger.Debug("Manifest loading complete.",
		"recipes", recipes.Len(), "packages", packages.Len())
	return recipes, packages, nil
}

func (l *Loader) merge(root *fileRoot, recipes *recipe.Table, packages *pack.Table) error {
	for _, s := range root.Sources {
		r, err := l.translateSource(s)
		if err != nil {
			return err
		}
		if err := recipes.Add(r); err != nil {
			return err
		}
	}
	for _, b := range root.Builds {
		steps, err := decodeCommands(b.Remain)
		if err != nil {
			return fmt.Errorf("build %q: %w", b.Name, err)
		}
		if err := recipes.Add(&recipe.BuildRecipe{Meta: metaOf(b), Steps: steps}); err != nil {
			return err
		}
	}
	for _, w := range root.Works {
		steps, err := decodeCommands(w.Remain)
		if err != nil {
			return fmt.Errorf("work %q: %w", w.Name, err)
		}
		if err := recipes.Add(&recipe.WorkRecipe{Meta: metaOf(w), Steps: steps}); err != nil {
			return err
		}
	}
	for _, p := range root.Packages {
		err := packages.Add(&pack.Package{
			Name:    p.Name,
			OS:      p.OS,
			Arch:    p.Arch,
			Recipes: p.Recipes,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// translateSource resolves the pinned revision: the lock file wins over the
// manifest, and a source pinned by neither is a configuration error.
func (l *Loader) translateSource(s *sourceBlock) (*recipe.SourceRecipe, error) {
	revision := s.Revision
	if l.lock != nil {
		if rev, ok := l.lock.Revision(s.Name); ok {
			revision = rev
		}
	}
	if revision == "" {
		return nil, &recipe.ConfigError{
			Msg: fmt.Sprintf("source %q has no pinned revision (manifest or lock)", s.Name),
		}
	}
	return &recipe.SourceRecipe{
		Meta:     recipe.Meta{Name: s.Name},
		URL:      s.URL,
		Revision: revision,
		Clean:    s.Clean,
		Mirrors:  s.Mirrors,
	}, nil
}

func metaOf(b *recipeBlock) recipe.Meta {
	return recipe.Meta{
		Name:         b.Name,
		Deps:         b.Deps,
		Inputs:       b.Inputs,
		OutputSubdir: b.OutputSubdir,
	}
}

// findManifestFiles walks all given paths and returns a flat list of all .hcl
// files found.
func findManifestFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, ok := seen[p]; !ok {
			all = append(all, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("access %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return all, nil
}
