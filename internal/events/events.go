// Package events defines the structured per-recipe reporting contract: one
// event per recipe with its outcome and duration. No interactive output
// format is mandated; the default reporter logs through slog.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Outcome is the terminal classification of one recipe in a run.
type Outcome string

const (
	// OutcomeCacheHit means a matching cached artifact was materialized
	// and no commands ran.
	OutcomeCacheHit Outcome = "cache-hit"
	// OutcomeBuilt means the recipe's commands ran to completion.
	OutcomeBuilt Outcome = "built"
	// OutcomeSynced means a source recipe converged to its pinned revision.
	OutcomeSynced Outcome = "synced"
	// OutcomeFailed means a command failed and the recipe terminated.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the recipe never started because a dependency
	// failed or a stop was requested.
	OutcomeSkipped Outcome = "skipped"
)

// Event is one structured per-recipe report.
type Event struct {
	Recipe   string
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Reporter receives one event per recipe as it reaches a terminal state.
// Implementations must be safe for concurrent use.
type Reporter interface {
	Report(e Event)
}

// LogReporter reports events through a slog.Logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a Reporter that writes structured log lines.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report implements Reporter.
func (r *LogReporter) Report(e Event) {
	attrs := []any{"recipe", e.Recipe, "outcome", string(e.Outcome), "duration", e.Duration}
	switch e.Outcome {
	case OutcomeFailed:
		r.logger.Error("Recipe failed.", append(attrs, "error", e.Err)...)
	case OutcomeSkipped:
		r.logger.Warn("Recipe skipped.", append(attrs, "error", e.Err)...)
	default:
		r.logger.Info("Recipe finished.", attrs...)
	}
}

// Recorder collects events in memory; used in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Report implements Reporter.
func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Outcome returns the recorded outcome for a recipe, or the empty string.
func (r *Recorder) Outcome(name string) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Recipe == name {
			return e.Outcome
		}
	}
	return ""
}
