// Package testutil provides recording fakes for the executor's external
// collaborators, shared across package tests.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/proc"
	"github.com/specialistvlad/buildgrid/internal/scm"
)

// FakeRunner records every process invocation instead of spawning anything.
// Fail maps a command line (joined with spaces) to the exit code it should
// report.
type FakeRunner struct {
	mu    sync.Mutex
	calls []proc.Spec
	Fail  map[string]int
	// OnRun, when set, is invoked for every call after recording.
	OnRun func(spec *proc.Spec) error
}

// NewFakeRunner returns an empty recording runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Fail: make(map[string]int)}
}

// Run implements proc.Runner.
func (r *FakeRunner) Run(ctx context.Context, spec *proc.Spec) error {
	r.mu.Lock()
	r.calls = append(r.calls, *spec)
	r.mu.Unlock()

	if code, ok := r.Fail[strings.Join(spec.Argv, " ")]; ok {
		return &proc.ExitError{Argv: spec.Argv, Code: code}
	}
	if r.OnRun != nil {
		return r.OnRun(spec)
	}
	return nil
}

// Calls returns a copy of all recorded invocations.
func (r *FakeRunner) Calls() []proc.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]proc.Spec(nil), r.calls...)
}

// Argvs returns the recorded command lines, one per invocation.
func (r *FakeRunner) Argvs() []string {
	var out []string
	for _, c := range r.Calls() {
		out = append(out, strings.Join(c.Argv, " "))
	}
	return out
}

// FakeSyncer records sync requests. OnSync, when set, runs after recording
// and may populate the destination or return an error.
type FakeSyncer struct {
	mu       sync.Mutex
	requests []scm.SyncRequest
	OnSync   func(req *scm.SyncRequest) error
}

// Sync implements scm.Syncer.
func (s *FakeSyncer) Sync(ctx context.Context, req *scm.SyncRequest) error {
	s.mu.Lock()
	s.requests = append(s.requests, *req)
	s.mu.Unlock()
	if s.OnSync != nil {
		return s.OnSync(req)
	}
	return nil
}

// Requests returns a copy of all recorded sync requests.
func (s *FakeSyncer) Requests() []scm.SyncRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scm.SyncRequest(nil), s.requests...)
}
