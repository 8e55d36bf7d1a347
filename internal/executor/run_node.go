package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/specialistvlad/buildgrid/internal/command"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/events"
	"github.com/specialistvlad/buildgrid/internal/fingerprint"
	"github.com/specialistvlad/buildgrid/internal/recipe"
	"github.com/specialistvlad/buildgrid/internal/store"
	"github.com/specialistvlad/buildgrid/internal/vars"
)

// fingerprintPass allocates output directories and computes every node's
// fingerprint in topological order, so each node sees its dependencies'
// fingerprints. A failure here is fatal and precedes all execution.
func (e *Executor) fingerprintPass(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	for _, name := range e.graph.TopoSort() {
		n, _ := e.graph.Node(name)
		meta := n.Recipe.Common()

		outDir := filepath.Join(e.cfg.OutRoot, name)
		if meta.OutputSubdir != "" {
			outDir = filepath.Join(outDir, meta.OutputSubdir)
		}
		n.OutDir = outDir

		depFPs := make([]string, 0, len(meta.Deps))
		for _, dep := range meta.Deps {
			depNode, _ := e.graph.Node(dep)
			depFPs = append(depFPs, depNode.Fingerprint)
		}

		inputDigests := make(map[string]string, len(meta.Inputs))
		for binding, path := range meta.Inputs {
			digest, err := fingerprint.Tree(path)
			if err != nil {
				return fmt.Errorf("recipe %q: fingerprint input %q (%s): %w", name, binding, path, err)
			}
			inputDigests[binding] = digest
		}

		fp, err := fingerprint.Compute(n.Recipe, depFPs, inputDigests)
		if err != nil {
			return err
		}
		n.Fingerprint = fp
	}
	logger.Debug("Fingerprint pass complete.", "node_count", e.graph.Len())
	return nil
}

// runNode executes a single recipe according to its kind and returns its
// outcome and duration.
func (e *Executor) runNode(ctx context.Context, n *dag.Node) (events.Outcome, time.Duration, error) {
	start := time.Now()
	outcome, err := e.runNodeKind(ctx, n)
	return outcome, time.Since(start), err
}

func (e *Executor) runNodeKind(ctx context.Context, n *dag.Node) (events.Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	workDir := filepath.Join(e.cfg.WorkRoot, n.ID())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return events.OutcomeFailed, &command.IOError{Op: "mkdir", Path: workDir, Err: err}
	}

	scope, err := e.buildScope(n)
	if err != nil {
		return events.OutcomeFailed, err
	}
	env := &command.Env{Scope: scope, Dir: workDir, Runner: e.runner, Syncer: e.syncer}

	switch n.Recipe.Kind() {
	case recipe.KindSource:
		// Sources converge to the pinned revision in place; their output
		// directory persists across runs.
		if err := os.MkdirAll(filepath.Dir(n.OutDir), 0o755); err != nil {
			return events.OutcomeFailed, &command.IOError{Op: "mkdir", Path: n.OutDir, Err: err}
		}
		if err := e.applyCommands(ctx, n, env); err != nil {
			return events.OutcomeFailed, err
		}
		return events.OutcomeSynced, nil

	case recipe.KindBuild:
		if err := e.freshOutput(n.OutDir); err != nil {
			return events.OutcomeFailed, err
		}
		found, err := e.store.Get(ctx, n.Fingerprint, n.OutDir)
		if err != nil {
			if store.IsCorrupt(err) {
				return events.OutcomeFailed, err
			}
			logger.Warn("Cache lookup failed, treating as miss.", "recipe", n.ID(), "error", err)
			// The failed materialization may have left partial content in
			// the output directory; the rebuild must not run over it.
			if err := e.freshOutput(n.OutDir); err != nil {
				return events.OutcomeFailed, err
			}
		} else if found {
			return events.OutcomeCacheHit, nil
		}
		if err := e.applyCommands(ctx, n, env); err != nil {
			return events.OutcomeFailed, err
		}
		if err := command.Stamp(workDir); err != nil {
			return events.OutcomeFailed, err
		}
		if err := e.store.Put(ctx, n.Fingerprint, n.OutDir); err != nil {
			// A store write failure costs a rebuild next run, not this
			// run's output.
			logger.Warn("Cache store write failed.", "recipe", n.ID(), "error", err)
		}
		return events.OutcomeBuilt, nil

	case recipe.KindWork:
		if err := e.freshOutput(n.OutDir); err != nil {
			return events.OutcomeFailed, err
		}
		if err := e.applyCommands(ctx, n, env); err != nil {
			return events.OutcomeFailed, err
		}
		if err := command.Stamp(workDir); err != nil {
			return events.OutcomeFailed, err
		}
		return events.OutcomeBuilt, nil
	}
	return events.OutcomeFailed, fmt.Errorf("recipe %q: unknown kind %v", n.ID(), n.Recipe.Kind())
}

func (e *Executor) applyCommands(ctx context.Context, n *dag.Node, env *command.Env) error {
	for i, c := range n.Recipe.Commands() {
		if err := c.Apply(ctx, env); err != nil {
			return fmt.Errorf("recipe %q command %d (%s): %w", n.ID(), i, c.Line(), err)
		}
	}
	return nil
}

// freshOutput clears and recreates a recipe's output directory so cached
// materializations and fresh builds both start from an empty tree.
func (e *Executor) freshOutput(outDir string) error {
	if err := os.RemoveAll(outDir); err != nil {
		return &command.IOError{Op: "remove", Path: outDir, Err: err}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return &command.IOError{Op: "mkdir", Path: outDir, Err: err}
	}
	return nil
}

// buildScope populates the per-invocation variable scope: global constants,
// the recipe's own output directory, its declared inputs, and every
// dependency's output directory under the dependency's name.
func (e *Executor) buildScope(n *dag.Node) (*vars.Scope, error) {
	scope := vars.NewScope()
	scope.Set("cores", strconv.Itoa(e.cfg.Cores))
	if err := scope.SetPath("output", n.OutDir); err != nil {
		return nil, err
	}
	meta := n.Recipe.Common()
	for binding, path := range meta.Inputs {
		if err := scope.SetPath(binding, path); err != nil {
			return nil, err
		}
	}
	for _, dep := range meta.Deps {
		depNode, _ := e.graph.Node(dep)
		if err := scope.SetPath(dep, depNode.OutDir); err != nil {
			return nil, err
		}
	}
	return scope, nil
}
