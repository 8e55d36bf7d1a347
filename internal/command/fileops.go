package command

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Copy copies a single file to a destination path, creating destination
// directories as needed.
type Copy struct {
	Src string
	Dst string
}

// Validate implements Command.
func (c *Copy) Validate() error {
	if c.Src == "" || c.Dst == "" {
		return fmt.Errorf("%w: copy needs src and dst", ErrInvalid)
	}
	return nil
}

// Apply implements Command.
func (c *Copy) Apply(ctx context.Context, env *Env) error {
	src, err := resolvePath(env, c.Src)
	if err != nil {
		return err
	}
	dst, err := resolvePath(env, c.Dst)
	if err != nil {
		return err
	}
	return copyFile(src, dst)
}

// Line implements Command.
func (c *Copy) Line() string { return fmt.Sprintf("copy %s %s", c.Src, c.Dst) }

// CopyTree recursively copies a directory tree, preserving structure.
type CopyTree struct {
	Src string
	Dst string
}

// Validate implements Command.
func (c *CopyTree) Validate() error {
	if c.Src == "" || c.Dst == "" {
		return fmt.Errorf("%w: copy_tree needs src and dst", ErrInvalid)
	}
	return nil
}

// Apply implements Command.
func (c *CopyTree) Apply(ctx context.Context, env *Env) error {
	src, err := resolvePath(env, c.Src)
	if err != nil {
		return err
	}
	dst, err := resolvePath(env, c.Dst)
	if err != nil {
		return err
	}
	return CopyDir(src, dst)
}

// Line implements Command.
func (c *CopyTree) Line() string { return fmt.Sprintf("copy_tree %s %s", c.Src, c.Dst) }

// Move renames a file or directory.
type Move struct {
	Src string
	Dst string
}

// Validate implements Command.
func (m *Move) Validate() error {
	if m.Src == "" || m.Dst == "" {
		return fmt.Errorf("%w: move needs src and dst", ErrInvalid)
	}
	return nil
}

// Apply implements Command.
func (m *Move) Apply(ctx context.Context, env *Env) error {
	src, err := resolvePath(env, m.Src)
	if err != nil {
		return err
	}
	dst, err := resolvePath(env, m.Dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
	}
	if err := os.Rename(src, dst); err != nil {
		return &IOError{Op: "move", Path: src, Err: err}
	}
	return nil
}

// Line implements Command.
func (m *Move) Line() string { return fmt.Sprintf("move %s %s", m.Src, m.Dst) }

// Remove deletes the files and directories matched by each glob pattern.
// Patterns that match nothing are not an error.
type Remove struct {
	Globs []string
}

// Validate implements Command.
func (r *Remove) Validate() error {
	if len(r.Globs) == 0 {
		return fmt.Errorf("%w: remove needs at least one pattern", ErrInvalid)
	}
	return nil
}

// Apply implements Command.
func (r *Remove) Apply(ctx context.Context, env *Env) error {
	for _, glob := range r.Globs {
		pattern, err := resolvePath(env, glob)
		if err != nil {
			return err
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return &IOError{Op: "glob", Path: pattern, Err: err}
		}
		for _, m := range matches {
			if err := os.RemoveAll(m); err != nil {
				return &IOError{Op: "remove", Path: m, Err: err}
			}
		}
	}
	return nil
}

// Line implements Command.
func (r *Remove) Line() string { return "remove " + strings.Join(r.Globs, " ") }

// Mkdir creates a directory. With Parents set, missing ancestors are created
// and an existing directory is not an error.
type Mkdir struct {
	Path    string
	Parents bool
}

// Validate implements Command.
func (m *Mkdir) Validate() error {
	if m.Path == "" {
		return fmt.Errorf("%w: mkdir needs a path", ErrInvalid)
	}
	return nil
}

// Apply implements Command.
func (m *Mkdir) Apply(ctx context.Context, env *Env) error {
	path, err := resolvePath(env, m.Path)
	if err != nil {
		return err
	}
	if m.Parents {
		err = os.MkdirAll(path, 0o755)
	} else {
		err = os.Mkdir(path, 0o755)
	}
	if err != nil {
		return &IOError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// Line implements Command.
func (m *Mkdir) Line() string {
	if m.Parents {
		return fmt.Sprintf("mkdir -p %s", m.Path)
	}
	return fmt.Sprintf("mkdir %s", m.Path)
}

// WriteData writes a literal string to a destination path. Used for metadata
// stamping (version files, revision records).
type WriteData struct {
	Data string
	Dst  string
}

// Validate implements Command.
func (w *WriteData) Validate() error {
	if w.Dst == "" {
		return fmt.Errorf("%w: write needs a destination", ErrInvalid)
	}
	return nil
}

// Apply implements Command.
func (w *WriteData) Apply(ctx context.Context, env *Env) error {
	dst, err := resolvePath(env, w.Dst)
	if err != nil {
		return err
	}
	data, err := env.Scope.Expand(w.Data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
	}
	if err := os.WriteFile(dst, []byte(data), 0o644); err != nil {
		return &IOError{Op: "write", Path: dst, Err: err}
	}
	return nil
}

// Line implements Command.
func (w *WriteData) Line() string { return fmt.Sprintf("write %q %s", w.Data, w.Dst) }

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &IOError{Op: "copy", Path: src, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return &IOError{Op: "copy", Path: src, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return &IOError{Op: "copy", Path: dst, Err: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return &IOError{Op: "copy", Path: dst, Err: err}
	}
	return out.Close()
}

// CopyDir recursively copies the tree rooted at src into dst, preserving
// relative structure and file modes. It is shared with the artifact store,
// which materializes cached outputs the same way.
func CopyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return &IOError{Op: "copy_tree", Path: src, Err: err}
	}
	if !info.IsDir() {
		return &IOError{Op: "copy_tree", Path: src, Err: fmt.Errorf("not a directory")}
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &IOError{Op: "copy_tree", Path: path, Err: err}
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return &IOError{Op: "copy_tree", Path: path, Err: err}
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &IOError{Op: "mkdir", Path: target, Err: err}
			}
			return nil
		}
		return copyFile(path, target)
	})
}
