// Package executor drives the recipe DAG to completion: it computes
// fingerprints, consults the artifact store, and runs recipe commands on a
// bounded worker pool while honoring dependency order.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/events"
	"github.com/specialistvlad/buildgrid/internal/proc"
	"github.com/specialistvlad/buildgrid/internal/scm"
	"github.com/specialistvlad/buildgrid/internal/store"
)

// Config tunes one executor run.
type Config struct {
	// Workers bounds concurrent recipe execution. Defaults to the host
	// core count.
	Workers int
	// Cores is exposed to recipes as %(cores)s. Defaults to the host core
	// count.
	Cores int
	// WorkRoot holds per-recipe working directories, kept between runs
	// for incremental builds.
	WorkRoot string
	// OutRoot holds per-recipe output directories.
	OutRoot string
	// StopOnFailure refuses to start new recipes after the first failure.
	// In-flight recipes finish naturally either way.
	StopOnFailure bool
}

// Executor orchestrates one run over a built graph.
type Executor struct {
	graph    *dag.Graph
	cfg      Config
	store    store.Store
	runner   proc.Runner
	syncer   scm.Syncer
	reporter events.Reporter

	wg sync.WaitGroup
	// outcomes records how each successful node finished (built, cache-hit,
	// synced), keyed by recipe name.
	outcomes sync.Map
	// stopped blocks new recipes from starting after a failure when
	// StopOnFailure is set. In-flight recipes are never interrupted; the
	// run context is not cancelled.
	stopped atomic.Bool
}

// New returns an executor over graph. Zero config fields are defaulted.
func New(graph *dag.Graph, cfg Config, st store.Store, runner proc.Runner, syncer scm.Syncer, reporter events.Reporter) *Executor {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Cores <= 0 {
		cfg.Cores = runtime.NumCPU()
	}
	return &Executor{
		graph:    graph,
		cfg:      cfg,
		store:    st,
		runner:   runner,
		syncer:   syncer,
		reporter: reporter,
	}
}

// Result summarizes a run: the terminal outcome of every recipe plus the
// failed and consequently-skipped sets.
type Result struct {
	Outcomes map[string]events.Outcome
	Failed   []string
	Skipped  []string
}

// Completed reports whether the named recipe reached a successful terminal
// state in this run.
func (r *Result) Completed(name string) bool {
	switch r.Outcomes[name] {
	case events.OutcomeBuilt, events.OutcomeCacheHit, events.OutcomeSynced:
		return true
	}
	return false
}

// Run executes the graph. It returns the per-recipe result and a non-nil
// error if any recipe failed or was skipped; the error names the failing
// recipes and their root causes.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := e.fingerprintPass(ctx); err != nil {
		return nil, err
	}

	nodes := e.graph.Nodes()
	e.wg.Add(len(nodes))

	readyChan := make(chan *dag.Node, len(nodes))
	for _, n := range nodes {
		if n.DepCount() == 0 {
			readyChan <- n
		}
	}

	for i := 0; i < e.cfg.Workers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All recipes reached a terminal state.")

	return e.collect()
}

// worker is the processing loop for one concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for n := range readyChan {
		if n.State() == dag.Skipped {
			continue
		}
		if ctx.Err() != nil {
			if n.Skip(ctx.Err(), &e.wg) {
				e.reporter.Report(events.Event{Recipe: n.ID(), Outcome: events.OutcomeSkipped, Err: ctx.Err()})
				e.skipDependents(n)
			}
			continue
		}
		if e.stopped.Load() {
			cause := errors.New("stop requested after earlier failure")
			if n.Skip(cause, &e.wg) {
				e.reporter.Report(events.Event{Recipe: n.ID(), Outcome: events.OutcomeSkipped, Err: cause})
				e.skipDependents(n)
			}
			continue
		}

		workerLogger := logger.With("workerID", workerID, "recipe", n.ID())
		workerLogger.Debug("Worker picked up recipe.")
		n.SetState(dag.Running)

		outcome, duration, err := e.runNode(ctx, n)
		if err != nil {
			workerLogger.Error("Recipe execution failed.", "error", err)
			n.SetState(dag.Failed)
			n.Err = err
			e.reporter.Report(events.Event{Recipe: n.ID(), Outcome: events.OutcomeFailed, Duration: duration, Err: err})
			if e.cfg.StopOnFailure {
				e.stopped.Store(true)
			}
			e.skipDependents(n)
			e.wg.Done()
			continue
		}

		e.outcomes.Store(n.ID(), outcome)
		n.SetState(dag.Done)
		e.reporter.Report(events.Event{Recipe: n.ID(), Outcome: outcome, Duration: duration})

		for _, dependent := range e.graph.Dependents(n.ID()) {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent recipe.", "dependent", dependent.ID())
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// skipDependents marks every transitive dependent of n as skipped. Skipped
// nodes never enter the ready channel because their dependency counters
// never reach zero.
func (e *Executor) skipDependents(n *dag.Node) {
	for _, dependent := range e.graph.Dependents(n.ID()) {
		cause := fmt.Errorf("dependency %q did not complete", n.ID())
		if dependent.Skip(cause, &e.wg) {
			e.reporter.Report(events.Event{Recipe: dependent.ID(), Outcome: events.OutcomeSkipped, Err: cause})
			e.skipDependents(dependent)
		}
	}
}

// collect assembles the Result after every node reached a terminal state.
func (e *Executor) collect() (*Result, error) {
	result := &Result{Outcomes: make(map[string]events.Outcome)}
	var errs []error
	for _, n := range e.graph.Nodes() {
		switch n.State() {
		case dag.Done:
			outcome := events.OutcomeBuilt
			if o, ok := e.outcomes.Load(n.ID()); ok {
				outcome = o.(events.Outcome)
			}
			result.Outcomes[n.ID()] = outcome
		case dag.Failed:
			result.Outcomes[n.ID()] = events.OutcomeFailed
			result.Failed = append(result.Failed, n.ID())
			errs = append(errs, fmt.Errorf("recipe %q: %w", n.ID(), n.Err))
		case dag.Skipped:
			result.Outcomes[n.ID()] = events.OutcomeSkipped
			result.Skipped = append(result.Skipped, n.ID())
		default:
			// Unreachable once wg.Wait returned; kept as a guard.
			errs = append(errs, fmt.Errorf("recipe %q ended in state %s", n.ID(), n.State()))
		}
	}
	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}
	return result, nil
}
