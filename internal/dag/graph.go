// Package dag builds and orders the recipe dependency graph: node and edge
// construction from a validated recipe table, cycle detection with the
// offending path in the error, and a deterministic topological order used by
// the executor and the fingerprint pass.
package dag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/recipe"
)

// Graph is the dependency DAG over a recipe table. Nodes and edges are fixed
// after Build; only per-node runtime state mutates during execution.
type Graph struct {
	nodes map[string]*Node
	order []string // declaration order from the recipe table
}

// Build constructs a complete, validated dependency graph from a recipe
// table. The table must already pass its own Validate; Build adds edge
// construction, cycle detection, and counter initialization.
func Build(ctx context.Context, table *recipe.Table) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)

	g := &Graph{nodes: make(map[string]*Node), order: table.Names()}
	for _, name := range g.order {
		r, _ := table.Get(name)
		g.nodes[name] = &Node{
			Recipe:     r,
			deps:       make(map[string]*Node),
			dependents: make(map[string]*Node),
		}
	}

	for _, name := range g.order {
		node := g.nodes[name]
		for _, dep := range node.Recipe.Common().Deps {
			depNode, ok := g.nodes[dep]
			if !ok {
				return nil, &recipe.ConfigError{
					Msg: fmt.Sprintf("recipe %q depends on unknown recipe %q", name, dep),
				}
			}
			node.deps[dep] = depNode
			depNode.dependents[name] = node
		}
	}
	logger.Debug("Graph edges linked.", "node_count", len(g.nodes))

	if err := g.detectCycles(); err != nil {
		return nil, err
	}

	for _, node := range g.nodes {
		node.SetInitialCounters()
	}
	logger.Debug("Graph construction successful.")
	return g, nil
}

// Node returns the node registered under name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Dependencies returns the nodes that name depends on, in the recipe's
// declared order.
func (g *Graph) Dependencies(name string) []*Node {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(n.deps))
	for _, dep := range n.Recipe.Common().Deps {
		out = append(out, n.deps[dep])
	}
	return out
}

// Dependents returns the nodes that depend on name, sorted for determinism.
func (g *Graph) Dependents(name string) []*Node {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(n.dependents))
	for depName := range n.dependents {
		names = append(names, depName)
	}
	sort.Strings(names)
	out := make([]*Node, 0, len(names))
	for _, depName := range names {
		out = append(out, n.dependents[depName])
	}
	return out
}

// TopoSort returns a topological order of all recipe names: every recipe
// appears after all of its dependencies. Ties among independent recipes are
// broken by declaration order, so the result is deterministic across runs.
func (g *Graph) TopoSort() []string {
	indegree := make(map[string]int, len(g.nodes))
	for name, n := range g.nodes {
		indegree[name] = len(n.deps)
	}

	// ready is kept in declaration order; pulling from the front realizes
	// the deterministic tie break.
	var ready []string
	for _, name := range g.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	pos := make(map[string]int, len(g.order))
	for i, name := range g.order {
		pos[name] = i
	}

	out := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)

		unlocked := make([]string, 0, len(g.nodes[name].dependents))
		for depName := range g.nodes[name].dependents {
			indegree[depName]--
			if indegree[depName] == 0 {
				unlocked = append(unlocked, depName)
			}
		}
		sort.Slice(unlocked, func(i, j int) bool { return pos[unlocked[i]] < pos[unlocked[j]] })
		ready = append(ready, unlocked...)
		sort.Slice(ready, func(i, j int) bool { return pos[ready[i]] < pos[ready[j]] })
	}
	return out
}

// detectCycles runs a depth-first search with three-color marking. On
// failure the error names the full cycle path.
func (g *Graph) detectCycles() error {
	const (
		white = iota // unvisited
		grey         // in the current recursion stack
		black        // fully explored
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = grey
		stack = append(stack, name)

		node := g.nodes[name]
		for _, dep := range node.Recipe.Common().Deps {
			switch color[dep] {
			case grey:
				// Trim the stack to the start of the cycle for the report.
				start := 0
				for i, s := range stack {
					if s == dep {
						start = i
						break
					}
				}
				path := append(append([]string(nil), stack[start:]...), dep)
				return &recipe.ConfigError{
					Msg: "dependency cycle: " + strings.Join(path, " -> "),
				}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for _, name := range g.order {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}
