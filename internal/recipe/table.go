package recipe

import (
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/command"
)

// ConfigError reports a bad recipe table: duplicate or missing names,
// self-dependencies, or a dependency cycle. It is fatal and surfaced before
// any execution begins.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// Table is the ordered registry of recipes. Declaration order is preserved;
// it breaks scheduling ties deterministically.
type Table struct {
	order   []string
	recipes map[string]Recipe
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{recipes: make(map[string]Recipe)}
}

// Add registers a recipe. Duplicate names are a ConfigError.
func (t *Table) Add(r Recipe) error {
	name := r.Common().Name
	if name == "" {
		return &ConfigError{Msg: "recipe with empty name"}
	}
	if _, ok := t.recipes[name]; ok {
		return &ConfigError{Msg: fmt.Sprintf("duplicate recipe %q", name)}
	}
	t.order = append(t.order, name)
	t.recipes[name] = r
	return nil
}

// Get returns the recipe registered under name.
func (t *Table) Get(name string) (Recipe, bool) {
	r, ok := t.recipes[name]
	return r, ok
}

// Names returns all recipe names in declaration order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of registered recipes.
func (t *Table) Len() int { return len(t.order) }

// Validate checks referential integrity: every dependency must name a
// registered recipe, no recipe may depend on itself, and every command must
// pass its static validation. Cycle detection across the whole graph happens
// when the DAG is built.
func (t *Table) Validate() error {
	for _, name := range t.order {
		r := t.recipes[name]
		for _, dep := range r.Common().Deps {
			if dep == name {
				return &ConfigError{Msg: fmt.Sprintf("recipe %q depends on itself", name)}
			}
			if _, ok := t.recipes[dep]; !ok {
				return &ConfigError{Msg: fmt.Sprintf("recipe %q depends on unknown recipe %q", name, dep)}
			}
		}
		if err := command.ValidateAll(r.Commands()); err != nil {
			return &ConfigError{Msg: fmt.Sprintf("recipe %q: %v", name, err)}
		}
	}
	return nil
}
