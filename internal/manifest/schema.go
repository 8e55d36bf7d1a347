package manifest

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all possible top-level blocks from any
// manifest file.
type fileRoot struct {
	Sources  []*sourceBlock  `hcl:"source,block"`
	Builds   []*recipeBlock  `hcl:"build,block"`
	Works    []*recipeBlock  `hcl:"work,block"`
	Packages []*packageBlock `hcl:"package,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

// sourceBlock represents a `source "name" {}` block. The revision may be left
// out of the manifest and supplied by the lock file instead.
type sourceBlock struct {
	Name     string   `hcl:"name,label"`
	URL      string   `hcl:"url"`
	Revision string   `hcl:"revision,optional"`
	Clean    bool     `hcl:"clean,optional"`
	Mirrors  []string `hcl:"mirrors,optional"`
}

// recipeBlock represents a `build "name" {}` or `work "name" {}` block. The
// command steps live in Remain so their declaration order survives decoding.
type recipeBlock struct {
	Name         string            `hcl:"name,label"`
	Deps         []string          `hcl:"deps,optional"`
	Inputs       map[string]string `hcl:"inputs,optional"`
	OutputSubdir string            `hcl:"output_subdir,optional"`
	Remain       hcl.Body          `hcl:",remain"`
}

// packageBlock represents a `package "name" {}` block.
type packageBlock struct {
	Name    string   `hcl:"name,label"`
	OS      string   `hcl:"os,optional"`
	Arch    string   `hcl:"arch,optional"`
	Recipes []string `hcl:"recipes"`
}

// --- Command step schemas ---

type runBlock struct {
	Argv     []string `hcl:"argv"`
	Env      []string `hcl:"env,optional"`
	StdoutTo string   `hcl:"stdout_to,optional"`
}

type copyBlock struct {
	Src string `hcl:"src"`
	Dst string `hcl:"dst"`
}

type removeBlock struct {
	Globs []string `hcl:"globs"`
}

type mkdirBlock struct {
	Path    string `hcl:"path"`
	Parents bool   `hcl:"parents,optional"`
}

type writeBlock struct {
	Data string `hcl:"data,optional"`
	Dst  string `hcl:"dst"`
}
