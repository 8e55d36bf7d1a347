package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/events"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/pack"
)

// Run executes the full pipeline: graph construction, recipe execution, and
// package assembly. Assembly runs even when some recipes failed, so every
// package that can complete does.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	a.logger.Debug("Building dependency graph from recipe table...")
	graph, err := dag.Build(ctx, a.recipes)
	if err != nil {
		return fmt.Errorf("build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", graph.Len())

	exec := executor.New(graph, executor.Config{
		Workers:       a.cfg.Workers,
		Cores:         a.cfg.Cores,
		WorkRoot:      a.cfg.WorkDir,
		OutRoot:       a.cfg.OutDir,
		StopOnFailure: a.cfg.StopOnFailure,
	}, a.store, a.runner, a.syncer, events.NewLogReporter(a.logger))

	a.logger.Info("Starting recipe execution.",
		"recipes", graph.Len(), "workers", a.cfg.Workers)
	result, runErr := exec.Run(ctx)
	if result == nil {
		// Fingerprinting failed before any recipe started.
		return runErr
	}
	if runErr != nil {
		a.logger.Error("Recipe execution finished with failures.",
			"failed", result.Failed, "skipped", result.Skipped)
	} else {
		a.logger.Info("Recipe execution finished.")
	}

	manifests, asmErr := pack.Assemble(ctx, a.packages, graph, result, a.cfg.ManifestDir)
	for _, m := range manifests {
		a.logger.Info("Package complete.", "package", m.Package, "recipes", len(m.Entries))
	}

	return errors.Join(runErr, asmErr)
}
