package app

import (
	"errors"
	"path/filepath"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string // .hcl file or directory of .hcl files
	LockPath     string // optional YAML revision lock

	// StateDir is the root for all run state. The per-concern directories
	// below default to subdirectories of it when left empty.
	StateDir    string
	WorkDir     string // per-recipe working directories, kept across runs
	OutDir      string // per-recipe output directories
	CacheDir    string // content-addressed artifact store
	ManifestDir string // assembled package manifests (YAML)

	// Packages restricts the run to the named packages and the recipes they
	// transitively require. Empty means everything.
	Packages []string

	LogFormat     string
	LogLevel      string
	Workers       int
	Cores         int
	StopOnFailure bool
}

// NewConfig validates a Config and fills directory defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if cfg.StateDir == "" {
		cfg.StateDir = ".buildgrid"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(cfg.StateDir, "work")
	}
	if cfg.OutDir == "" {
		cfg.OutDir = filepath.Join(cfg.StateDir, "out")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.StateDir, "cache")
	}
	if cfg.ManifestDir == "" {
		cfg.ManifestDir = filepath.Join(cfg.StateDir, "manifests")
	}
	return &cfg, nil
}
