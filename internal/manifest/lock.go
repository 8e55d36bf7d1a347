package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lock pins source components to exact revisions, separate from the manifest
// so revision bumps are one-line diffs in one file.
type Lock struct {
	Revisions map[string]string `yaml:"revisions"`
}

// LoadLock reads a YAML lock file.
func LoadLock(path string) (*Lock, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lock file %s: %w", path, err)
	}
	var lock Lock
	if err := yaml.Unmarshal(bs, &lock); err != nil {
		return nil, fmt.Errorf("parse lock file %s: %w", path, err)
	}
	return &lock, nil
}

// Revision returns the pinned revision for a source component.
func (l *Lock) Revision(name string) (string, bool) {
	rev, ok := l.Revisions[name]
	return rev, ok
}
