// Package fingerprint computes the cache identity of recipes and the content
// digests of files and trees.
//
// A recipe's fingerprint is the sha256 digest of a canonical JSON document
// holding its name, kind, command lines (pre-expansion), its dependencies'
// fingerprints in declared order, and the content digests of its declared
// file inputs sorted by binding name. Collisions are assumed negligible given
// the digest strength.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/command"
	"github.com/specialistvlad/buildgrid/internal/recipe"
)

// Prefix identifies the digest algorithm in rendered fingerprints.
const Prefix = "sha256:"

type inputDigest struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
}

// action is the canonical serialization a fingerprint is computed over.
type action struct {
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Commands []string      `json:"commands"`
	Deps     []string      `json:"deps,omitempty"`
	Inputs   []inputDigest `json:"inputs,omitempty"`
}

// Compute returns the fingerprint of r. depFingerprints must hold the
// fingerprints of r's dependencies in declared order; inputDigests maps each
// declared input binding to the digest of its current content.
func Compute(r recipe.Recipe, depFingerprints []string, inputDigests map[string]string) (string, error) {
	meta := r.Common()
	if len(depFingerprints) != len(meta.Deps) {
		return "", fmt.Errorf("recipe %q: %d dependency fingerprints for %d dependencies",
			meta.Name, len(depFingerprints), len(meta.Deps))
	}

	a := &action{
		Name:     meta.Name,
		Kind:     r.Kind().String(),
		Commands: command.Lines(r.Commands()),
		Deps:     depFingerprints,
	}
	// Bindings sorted by name; map iteration order must not leak into the
	// digest.
	names := make([]string, 0, len(inputDigests))
	for name := range inputDigests {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.Inputs = append(a.Inputs, inputDigest{Name: name, Digest: inputDigests[name]})
	}

	bs, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshal action for %q: %w", meta.Name, err)
	}
	sum := sha256.Sum256(bs)
	return Prefix + hex.EncodeToString(sum[:]), nil
}

// File returns the content digest of a single file.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return Prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Tree returns the content digest of a file or directory tree. For
// directories, every regular file's relative path and content contribute in
// lexical walk order, so two trees with identical structure and bytes digest
// identically.
func Tree(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return File(path)
	}

	h := sha256.New()
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00", filepath.ToSlash(rel))
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(h, f); err != nil {
			return err
		}
		fmt.Fprint(h, "\x00")
		return nil
	})
	if err != nil {
		return "", err
	}
	return Prefix + hex.EncodeToString(h.Sum(nil)), nil
}
