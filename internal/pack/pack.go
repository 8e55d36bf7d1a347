// Package pack assembles completed recipe outputs into named, per-target
// packages. A package is only a manifest over recipe outputs; it has no
// storage of its own and no say in the recipe graph.
package pack

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/recipe"
)

// Package names a bundle of recipe outputs for one (host OS, architecture)
// pairing.
type Package struct {
	Name    string
	OS      string
	Arch    string
	Recipes []string
}

// Table is the ordered registry of package definitions.
type Table struct {
	order    []string
	packages map[string]*Package
}

// NewTable returns an empty package table.
func NewTable() *Table {
	return &Table{packages: make(map[string]*Package)}
}

// Add registers a package definition. Duplicate names are a ConfigError.
func (t *Table) Add(p *Package) error {
	if p.Name == "" {
		return &recipe.ConfigError{Msg: "package with empty name"}
	}
	if _, ok := t.packages[p.Name]; ok {
		return &recipe.ConfigError{Msg: fmt.Sprintf("duplicate package %q", p.Name)}
	}
	t.order = append(t.order, p.Name)
	t.packages[p.Name] = p
	return nil
}

// Get returns the package registered under name.
func (t *Table) Get(name string) (*Package, bool) {
	p, ok := t.packages[name]
	return p, ok
}

// Names returns all package names in declaration order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of registered packages.
func (t *Table) Len() int { return len(t.order) }

// Validate checks that every recipe listed by every package exists in the
// recipe table.
func (t *Table) Validate(recipes *recipe.Table) error {
	for _, name := range t.order {
		for _, r := range t.packages[name].Recipes {
			if _, ok := recipes.Get(r); !ok {
				return &recipe.ConfigError{
					Msg: fmt.Sprintf("package %q lists unknown recipe %q", name, r),
				}
			}
		}
	}
	return nil
}

// IncompleteError reports a package whose listed recipes did not all reach a
// successful terminal state.
type IncompleteError struct {
	Package string
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("package %q incomplete: missing %s",
		e.Package, strings.Join(e.Missing, ", "))
}
