package dag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/buildgrid/internal/command"
	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/recipe"
)

func table(t *testing.T, recipes ...recipe.Recipe) *recipe.Table {
	t.Helper()
	tbl := recipe.NewTable()
	for _, r := range recipes {
		if err := tbl.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return tbl
}

func build(name string, deps ...string) *recipe.BuildRecipe {
	return &recipe.BuildRecipe{
		Meta:  recipe.Meta{Name: name, Deps: deps},
		Steps: []command.Command{&command.Run{Argv: []string{"true"}}},
	}
}

func TestTopoSort_DependenciesFirst(t *testing.T) {
	tbl := table(t,
		build("c", "b"),
		build("b", "a"),
		build("a"),
		build("d", "a"),
	)
	g, err := dag.Build(context.Background(), tbl)
	if err != nil {
		t.Fatal(err)
	}

	order := g.TopoSort()
	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	for _, n := range g.Nodes() {
		for _, dep := range n.Recipe.Common().Deps {
			if pos[dep] >= pos[n.ID()] {
				t.Errorf("%s (pos %d) ordered before dependency %s (pos %d)",
					n.ID(), pos[n.ID()], dep, pos[dep])
			}
		}
	}
}

func TestTopoSort_DeterministicTieBreak(t *testing.T) {
	// z, m, a are mutually independent; declaration order must win.
	tbl := table(t, build("z"), build("m"), build("a"))
	g, err := dag.Build(context.Background(), tbl)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"z", "m", "a"}, g.TopoSort()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CycleRejectedWithPath(t *testing.T) {
	tbl := table(t, build("a", "b"), build("b", "a"))
	_, err := dag.Build(context.Background(), tbl)

	var cfgErr *recipe.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
	if !strings.Contains(cfgErr.Msg, "a") || !strings.Contains(cfgErr.Msg, "b") {
		t.Errorf("cycle error %q does not name both recipes", cfgErr.Msg)
	}
}

func TestBuild_LongerCycle(t *testing.T) {
	tbl := table(t, build("a", "c"), build("b", "a"), build("c", "b"))
	_, err := dag.Build(context.Background(), tbl)
	if err == nil {
		t.Fatal("want cycle error")
	}
}

func TestDependentsAndDependencies(t *testing.T) {
	tbl := table(t, build("a"), build("b", "a"), build("c", "a"))
	g, err := dag.Build(context.Background(), tbl)
	if err != nil {
		t.Fatal(err)
	}

	var depNames []string
	for _, n := range g.Dependents("a") {
		depNames = append(depNames, n.ID())
	}
	if diff := cmp.Diff([]string{"b", "c"}, depNames); diff != "" {
		t.Errorf("dependents mismatch (-want +got):\n%s", diff)
	}

	deps := g.Dependencies("b")
	if len(deps) != 1 || deps[0].ID() != "a" {
		t.Errorf("dependencies of b = %v", deps)
	}
}

func TestInitialCounters(t *testing.T) {
	tbl := table(t, build("a"), build("b", "a"))
	g, err := dag.Build(context.Background(), tbl)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := g.Node("a")
	b, _ := g.Node("b")
	if a.DepCount() != 0 || b.DepCount() != 1 {
		t.Errorf("counters a=%d b=%d, want 0 and 1", a.DepCount(), b.DepCount())
	}
}
