// Package vars implements the per-recipe variable scope and the %(name)s
// template expansion applied to command arguments and paths.
package vars

import (
	"path/filepath"
	"sort"
)

// Scope is a per-recipe-invocation mapping from symbolic name to resolved
// string. It is created when a recipe begins execution, populated with the
// recipe's own output path and its dependencies' output paths, and discarded
// when the recipe's commands finish.
type Scope struct {
	values map[string]string
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{values: make(map[string]string)}
}

// Set binds name to value, replacing any previous binding.
func (s *Scope) Set(name, value string) {
	s.values[name] = value
}

// SetPath binds name to a filesystem path and additionally binds "abs_" + name
// to the absolute form of the same path, matching the twin variables recipes
// expect for paths that cross working-directory boundaries.
func (s *Scope) SetPath(name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	s.values[name] = path
	s.values["abs_"+name] = abs
	return nil
}

// Lookup returns the binding for name.
func (s *Scope) Lookup(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns all bound names in sorted order.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
