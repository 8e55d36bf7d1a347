package app

import (
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/pack"
	"github.com/specialistvlad/buildgrid/internal/recipe"
)

// selectPackages narrows the tables to the named packages and the recipes
// they transitively require. Declaration order is preserved in both narrowed
// tables.
func selectPackages(recipes *recipe.Table, packages *pack.Table, names []string) (*recipe.Table, *pack.Table, error) {
	selected := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := packages.Get(name); !ok {
			return nil, nil, &recipe.ConfigError{Msg: fmt.Sprintf("unknown package %q", name)}
		}
		selected[name] = true
	}

	required := make(map[string]bool)
	var walk func(name string) error
	walk = func(name string) error {
		if required[name] {
			return nil
		}
		r, ok := recipes.Get(name)
		if !ok {
			return &recipe.ConfigError{Msg: fmt.Sprintf("unknown recipe %q", name)}
		}
		required[name] = true
		for _, dep := range r.Common().Deps {
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	narrowedPacks := pack.NewTable()
	for _, name := range packages.Names() {
		if !selected[name] {
			continue
		}
		p, _ := packages.Get(name)
		if err := narrowedPacks.Add(p); err != nil {
			return nil, nil, err
		}
		for _, rec := range p.Recipes {
			if err := walk(rec); err != nil {
				return nil, nil, err
			}
		}
	}

	narrowedRecipes := recipe.NewTable()
	for _, name := range recipes.Names() {
		if !required[name] {
			continue
		}
		r, _ := recipes.Get(name)
		if err := narrowedRecipes.Add(r); err != nil {
			return nil, nil, err
		}
	}
	return narrowedRecipes, narrowedPacks, nil
}
