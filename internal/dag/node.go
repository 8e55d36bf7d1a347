package dag

import (
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/buildgrid/internal/recipe"
)

// State is the execution state of a node in the graph.
type State int32

const (
	// Pending indicates the node is waiting for its dependencies.
	Pending State = iota
	// Running indicates a worker is currently executing the node.
	Running
	// Done indicates the node reached a successful terminal state, either
	// by executing its commands or by a cache hit.
	Done
	// Failed indicates the node's execution failed.
	Failed
	// Skipped indicates the node never started because a dependency
	// failed or a stop was requested.
	Skipped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Node is a single vertex in the execution graph: one recipe plus its
// runtime state.
type Node struct {
	Recipe recipe.Recipe

	// Err stores the failure that terminated this node, if any.
	Err error
	// Fingerprint is the node's computed cache identity, filled in by the
	// executor before scheduling.
	Fingerprint string
	// OutDir is the node's allocated output directory.
	OutDir string

	deps       map[string]*Node
	dependents map[string]*Node

	// depCount counts unmet dependencies; a node becomes eligible when it
	// reaches zero.
	depCount atomic.Int32
	state    atomic.Int32
	skipOnce sync.Once
}

// ID returns the node's recipe name.
func (n *Node) ID() string { return n.Recipe.Common().Name }

// State atomically retrieves the node's execution state.
func (n *Node) State() State { return State(n.state.Load()) }

// SetState atomically sets the node's execution state.
func (n *Node) SetState(s State) { n.state.Store(int32(s)) }

// DepCount atomically returns the number of unmet dependencies.
func (n *Node) DepCount() int32 { return n.depCount.Load() }

// DecrementDepCount atomically decrements the dependency counter and returns
// the new value.
func (n *Node) DecrementDepCount() int32 { return n.depCount.Add(-1) }

// SetInitialCounters seeds the dependency counter from the graph edges.
func (n *Node) SetInitialCounters() { n.depCount.Store(int32(len(n.deps))) }

// Skip marks the node as skipped exactly once, recording the causing error
// and releasing one WaitGroup slot. It reports whether this call was the one
// that performed the skip.
func (n *Node) Skip(err error, wg *sync.WaitGroup) bool {
	skipped := false
	n.skipOnce.Do(func() {
		n.SetState(Skipped)
		n.Err = err
		wg.Done()
		skipped = true
	})
	return skipped
}
