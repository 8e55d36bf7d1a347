package pack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/executor"
)

// ManifestEntry records one recipe's contribution to a package.
type ManifestEntry struct {
	Recipe      string `yaml:"recipe"`
	Path        string `yaml:"path"`
	Fingerprint string `yaml:"fingerprint,omitempty"`
}

// Manifest is the assembled description of one package: the output
// directories of every listed recipe, in listed order. Files are not merged
// or deduplicated across recipes; that is the packaging collaborator's job.
type Manifest struct {
	Package string          `yaml:"package"`
	OS      string          `yaml:"os,omitempty"`
	Arch    string          `yaml:"arch,omitempty"`
	Entries []ManifestEntry `yaml:"entries"`
}

// Assemble verifies and collects every declared package after a run.
// Packages are assembled concurrently; one package's failure never aborts
// another's assembly. When manifestDir is non-empty each successful manifest
// is also written there as YAML. The returned error joins every
// IncompleteError.
func Assemble(ctx context.Context, table *Table, g *dag.Graph, result *executor.Result, manifestDir string) ([]*Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	manifests := make([]*Manifest, table.Len())
	var mu sync.Mutex
	var incomplete []error

	grp, ctx := errgroup.WithContext(ctx)
	for i, name := range table.Names() {
		i, name := i, name
		grp.Go(func() error {
			p, _ := table.Get(name)
			m, err := assembleOne(p, g, result)
			if err != nil {
				logger.Warn("Package assembly failed.", "package", name, "error", err)
				mu.Lock()
				incomplete = append(incomplete, err)
				mu.Unlock()
				return nil
			}
			if manifestDir != "" {
				if err := writeManifest(manifestDir, m); err != nil {
					return err
				}
			}
			manifests[i] = m
			logger.Info("Package assembled.", "package", name, "recipes", len(m.Entries))
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	// Drop slots of packages that failed to assemble.
	out := manifests[:0]
	for _, m := range manifests {
		if m != nil {
			out = append(out, m)
		}
	}
	if len(incomplete) > 0 {
		sort.Slice(incomplete, func(i, j int) bool {
			return incomplete[i].Error() < incomplete[j].Error()
		})
		return out, errors.Join(incomplete...)
	}
	return out, nil
}

func assembleOne(p *Package, g *dag.Graph, result *executor.Result) (*Manifest, error) {
	var missing []string
	m := &Manifest{Package: p.Name, OS: p.OS, Arch: p.Arch}
	for _, name := range p.Recipes {
		node, ok := g.Node(name)
		if !ok || !result.Completed(name) {
			missing = append(missing, name)
			continue
		}
		m.Entries = append(m.Entries, ManifestEntry{
			Recipe:      name,
			Path:        node.OutDir,
			Fingerprint: node.Fingerprint,
		})
	}
	if len(missing) > 0 {
		return nil, &IncompleteError{Package: p.Name, Missing: missing}
	}
	return m, nil
}

func writeManifest(dir string, m *Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	bs, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest %q: %w", m.Package, err)
	}
	path := filepath.Join(dir, m.Package+".yaml")
	if err := os.WriteFile(path, bs, 0o644); err != nil {
		return fmt.Errorf("write manifest %q: %w", m.Package, err)
	}
	return nil
}
