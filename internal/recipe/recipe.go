// Package recipe defines the unit of build work: a named, cacheable-or-not
// set of commands with declared dependencies, inputs, and an output
// directory. Recipes form a closed set of tagged variants (source, build,
// work) sharing one interface, so downstream code never probes for
// optional fields.
package recipe

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/command"
)

// Kind tags the three recipe variants.
type Kind int

const (
	// KindSource fetches or syncs external content. Idempotent, never
	// cache-skipped; its pinned revision feeds downstream fingerprints.
	KindSource Kind = iota
	// KindBuild produces deterministic output from its inputs and is
	// eligible for cache-skip.
	KindBuild
	// KindWork produces output but is intentionally never memoized.
	KindWork
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindBuild:
		return "build"
	case KindWork:
		return "work"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Meta holds the fields common to every recipe variant.
type Meta struct {
	// Name is the unique, stable key of the recipe. Cache identity
	// depends on it.
	Name string
	// Deps names the recipes this one depends on, in declared order.
	Deps []string
	// Inputs binds symbolic names to host-filesystem paths, exposed to
	// templating as variables (with abs_ twins).
	Inputs map[string]string
	// OutputSubdir optionally nests the recipe's output under its
	// allocated output directory.
	OutputSubdir string
}

// Common returns the shared fields; promoted into every variant by
// embedding. The embedded field itself would shadow a method named Meta, so
// the accessor carries its own name.
func (m *Meta) Common() *Meta { return m }

// Recipe is the interface shared by the three variants.
type Recipe interface {
	Common() *Meta
	Kind() Kind
	Commands() []command.Command
}

// SourceRecipe syncs a version-controlled tree to a pinned revision.
type SourceRecipe struct {
	Meta
	URL      string
	Revision string
	Clean    bool
	Mirrors  []string
}

// Kind implements Recipe.
func (r *SourceRecipe) Kind() Kind { return KindSource }

// Commands implements Recipe. A source recipe's single command syncs its
// output directory to the pinned revision.
func (r *SourceRecipe) Commands() []command.Command {
	return []command.Command{&command.SyncSource{
		URL:      r.URL,
		Dest:     "%(output)s",
		Revision: r.Revision,
		Clean:    r.Clean,
		Mirrors:  r.Mirrors,
	}}
}

// BuildRecipe produces deterministic output and may be cache-skipped.
type BuildRecipe struct {
	Meta
	Steps []command.Command
}

// Kind implements Recipe.
func (r *BuildRecipe) Kind() Kind { return KindBuild }

// Commands implements Recipe.
func (r *BuildRecipe) Commands() []command.Command { return r.Steps }

// WorkRecipe runs every time; used for non-canonical or per-host variants
// whose output should never be served from the cache.
type WorkRecipe struct {
	Meta
	Steps []command.Command
}

// Kind implements Recipe.
func (r *WorkRecipe) Kind() Kind { return KindWork }

// Commands implements Recipe.
func (r *WorkRecipe) Commands() []command.Command { return r.Steps }

// LegalizeName lowers a platform or architecture descriptor into the
// character set safe for recipe and package names.
func LegalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// WithHost derives the fanned-out recipe name for one host triple. Building
// the same recipe shape once per host is expressed through this naming
// convention rather than ad-hoc string concatenation.
func WithHost(base, triple string) string {
	return base + "_" + LegalizeName(triple)
}
