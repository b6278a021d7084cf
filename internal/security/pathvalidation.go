// Package security validates the file paths the server and tools accept on
// the command line, so a capture, rig, or export path cannot escape the
// directories it is allowed to touch.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// canonicalPath returns the absolute, symlink-free form of path. A path that
// does not exist yet is resolved through its deepest existing ancestor, so
// /tmp/link/new.json is caught when link points outside the safe directory.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, err := filepath.Rel(dir, abs)
			if err != nil {
				return "", fmt.Errorf("failed to resolve path: %w", err)
			}
			return filepath.Join(resolved, rel), nil
		}
		if parent := filepath.Dir(dir); parent == dir {
			return abs, nil
		}
	}
}

// ValidatePathWithinDirectory reports an error unless filePath, after
// resolving . and .. and any symlinks, lies within safeDir.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	target, err := canonicalPath(filePath)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}
	dir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidatePathWithinAllowedDirs accepts filePath if it lies within any of
// allowedDirs.
func ValidatePathWithinAllowedDirs(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range allowedDirs {
		if ValidatePathWithinDirectory(filePath, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("path must be within one of the allowed directories: %v", allowedDirs)
}

func workingDirs() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return []string{os.TempDir(), cwd}, nil
}

// ValidateInputPath checks a file the process will read (tuning config, rig
// description, packet capture). It must exist, be a regular file, and lie
// within the working directory, the temp directory, or one of extraDirs.
func ValidateInputPath(filePath string, extraDirs ...string) error {
	dirs, err := workingDirs()
	if err != nil {
		return err
	}
	if err := ValidatePathWithinAllowedDirs(filePath, append(dirs, extraDirs...)); err != nil {
		return err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat input file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("input path %s is not a regular file", filePath)
	}
	return nil
}

// ValidateExportPath checks a file the process will write (plots, database
// backups). It must lie within the temp directory or the working directory.
func ValidateExportPath(filePath string) error {
	dirs, err := workingDirs()
	if err != nil {
		return err
	}
	return ValidatePathWithinAllowedDirs(filePath, dirs)
}

// SanitizeFilename makes a safe filename from an arbitrary string such as a
// session label. Runs of characters other than ASCII letters, digits, dot,
// underscore or dash become one underscore; the result is capped at 128
// bytes and never empty.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
