// Package security guards the files the tools write: output paths must stay
// inside the working or temp directory and carry the expected extension.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// canonical resolves symlinks in path. When path does not exist yet, the
// nearest existing parent is resolved and the rest re-attached, so a new
// file below a symlinked directory is judged by where it will really land.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rel), nil
		}
		if parent := filepath.Dir(dir); parent == dir {
			return abs, nil
		}
	}
}

// WithinDirectory returns an error unless path resolves to a location
// inside dir.
func WithinDirectory(path, dir string) error {
	target, err := canonical(path)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	root, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// ValidateOutputPath accepts path when it lies inside the temp directory,
// the working directory or one of extraDirs.
func ValidateOutputPath(path string, extraDirs ...string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	allowed := append([]string{os.TempDir(), cwd}, extraDirs...)
	for _, dir := range allowed {
		if WithinDirectory(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("output path %s must be within one of %v", path, allowed)
}

// CheckExtension requires path to end in one of exts (case-insensitive).
func CheckExtension(path string, exts ...string) error {
	got := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if got == strings.ToLower(e) {
			return nil
		}
	}
	return fmt.Errorf("file %s must have extension %s", path, strings.Join(exts, " or "))
}

// SanitizeFilename turns an arbitrary string into a safe file name stem:
// anything other than ASCII letters, digits, dot, underscore or dash
// becomes a single underscore, and the result is capped at 128 bytes.
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
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
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

// DefaultOutput derives an output file name next to source, replacing its
// extension with ext and sanitizing the stem.
func DefaultOutput(source, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), SanitizeFilename(stem)+ext)
}
