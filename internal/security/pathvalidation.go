// Package security guards filesystem paths taken from flags and config
// against traversal outside the directories a run is allowed to touch.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports whether path stays inside dir after
// resolving relative components and symlinks. Paths that do not exist yet
// are resolved through their nearest existing ancestor, so a symlinked
// parent cannot smuggle a new file outside dir.
func ValidatePathWithinDirectory(path, dir string) error {
	canonical, err := canonicalize(path)
	if err != nil {
		return err
	}
	canonicalDir, err := canonicalize(dir)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(canonicalDir, canonical)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// ValidateExportPath checks that an artifact destination stays within the
// working directory or the system temp directory, the two places run
// output is allowed to land.
func ValidateExportPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}
	for _, dir := range []string{cwd, os.TempDir()} {
		if ValidatePathWithinDirectory(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("export path %s must stay under %s or %s", path, cwd, os.TempDir())
}

// canonicalize resolves path to an absolute, symlink-free form. When the
// path does not exist, the nearest existing ancestor is resolved and the
// remaining components are appended unchanged.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for parent := filepath.Dir(abs); ; parent = filepath.Dir(parent) {
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, err := filepath.Rel(parent, abs)
			if err != nil {
				return abs, nil
			}
			return filepath.Join(resolved, rel), nil
		}
		if parent == filepath.Dir(parent) {
			return abs, nil
		}
	}
}
