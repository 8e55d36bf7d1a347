// Package app wires the manifest loader, recipe graph, executor, artifact
// store, and package aggregator into one runnable unit behind a validated
// Config.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/manifest"
	"github.com/specialistvlad/buildgrid/internal/pack"
	"github.com/specialistvlad/buildgrid/internal/proc"
	"github.com/specialistvlad/buildgrid/internal/recipe"
	"github.com/specialistvlad/buildgrid/internal/scm"
	"github.com/specialistvlad/buildgrid/internal/store"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	recipes  *recipe.Table
	packages *pack.Table
	store    *store.DiskStore
	runner   proc.Runner
	syncer   scm.Syncer
}

// NewApp constructs the application: it configures the logger, loads the
// revision lock and manifests, validates the tables, applies the package
// selection, and opens the artifact store.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var lock *manifest.Lock
	if cfg.LockPath != "" {
		var err error
		lock, err = manifest.LoadLock(cfg.LockPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("Revision lock loaded.", "components", len(lock.Revisions))
	}

	recipes, packages, err := manifest.NewLoader(lock).Load(ctx, cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifests: %w", err)
	}
	if err := recipes.Validate(); err != nil {
		return nil, err
	}
	if err := packages.Validate(recipes); err != nil {
		return nil, err
	}
	logger.Debug("Manifests loaded and validated.",
		"recipes", recipes.Len(), "packages", packages.Len())

	if len(cfg.Packages) > 0 {
		recipes, packages, err = selectPackages(recipes, packages, cfg.Packages)
		if err != nil {
			return nil, err
		}
		logger.Debug("Package selection applied.",
			"recipes", recipes.Len(), "packages", packages.Len())
	}

	st, err := store.OpenDisk(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	runner := proc.NewOSRunner()
	return &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		recipes:  recipes,
		packages: packages,
		store:    st,
		runner:   runner,
		syncer:   scm.NewGitSyncer(runner),
	}, nil
}

// Recipes returns the loaded recipe table. This is primarily for testing.
func (a *App) Recipes() *recipe.Table { return a.recipes }

// Packages returns the loaded package table. This is primarily for testing.
func (a *App) Packages() *pack.Table { return a.packages }

// Close releases the artifact store.
func (a *App) Close() error { return a.store.Close() }
