// Package fileset expands query file globs and reads the matched files.
package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Source resolves glob patterns to paths and reads the files behind them.
// Paths returned by Resolve are accepted by ReadFile.
type Source interface {
	Resolve(patterns []string) ([]string, error)
	ReadFile(path string) ([]byte, error)
}

// Resolver resolves glob patterns against an fs.FS and rewrites the discovered
// paths using a join function for deterministic, de-duplicated results.
type Resolver struct {
	fsys fs.FS
	join func(name string) string
	read func(path string) ([]byte, error)
	// absolute patterns bypass fsys when set
	osGlob bool
}

var _ Source = Resolver{}

// ErrNoPatterns indicates that Resolve was invoked without any glob patterns.
var ErrNoPatterns = errors.New("fileset: no patterns provided")

// PatternError wraps syntax issues reported while evaluating a glob pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e PatternError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q: %v", e.Pattern, e.Err)
}

func (e PatternError) Unwrap() error { return e.Err }

// NoMatchError describes which patterns failed to yield any results.
type NoMatchError struct {
	Patterns []string
}

func (e NoMatchError) Error() string {
	return "patterns matched no files: " + strings.Join(e.Patterns, ", ")
}

// NewResolver constructs a Resolver against the provided filesystem without any
// path rewriting, preserving the original match names. Useful for tests.
func NewResolver(fsys fs.FS) Resolver {
	return Resolver{
		fsys: fsys,
		join: func(name string) string { return name },
		read: func(name string) ([]byte, error) { return fs.ReadFile(fsys, name) },
	}
}

// NewOSResolver constructs a Resolver rooted at base. Matches are joined onto
// base as given, so a relative base yields relative paths.
func NewOSResolver(base string) (Resolver, error) {
	if base == "" {
		base = "."
	}
	info, err := os.Stat(base)
	if err != nil {
		return Resolver{}, fmt.Errorf("stat base %q: %w", base, err)
	}
	if !info.IsDir() {
		return Resolver{}, fmt.Errorf("base %q is not a directory", base)
	}

	cleaned := filepath.Clean(base)
	return Resolver{
		fsys: os.DirFS(cleaned),
		join: func(name string) string {
			return filepath.Join(cleaned, filepath.FromSlash(name))
		},
		read: func(path string) ([]byte, error) {
			return os.ReadFile(filepath.Clean(path))
		},
		osGlob: true,
	}, nil
}

// Resolve evaluates each glob pattern, accumulating matches, and returns a
// deterministically sorted list of de-duplicated paths.
func (r Resolver) Resolve(patterns []string) ([]string, error) {
	if r.fsys == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}

	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	joinFn := r.join
	if joinFn == nil {
		joinFn = func(name string) string { return name }
	}

	combined := make([]string, 0)
	missing := make([]string, 0)

	for _, pattern := range patterns {
		var (
			matches []string
			err     error
		)
		if r.osGlob && filepath.IsAbs(pattern) {
			matches, err = filepath.Glob(pattern)
		} else {
			matches, err = fs.Glob(r.fsys, filepath.ToSlash(pattern))
			for i, m := range matches {
				matches[i] = joinFn(m)
			}
		}
		if err != nil {
			return nil, PatternError{Pattern: pattern, Err: err}
		}

		matches = slices.DeleteFunc(matches, r.isDir)
		if len(matches) == 0 {
			missing = append(missing, pattern)
			continue
		}
		combined = append(combined, matches...)
	}

	if len(missing) > 0 {
		return nil, NoMatchError{Patterns: missing}
	}

	slices.Sort(combined)
	return slices.Compact(combined), nil
}

// ReadFile reads a path returned by Resolve.
func (r Resolver) ReadFile(path string) ([]byte, error) {
	if r.read == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}
	return r.read(path)
}

func (r Resolver) isDir(path string) bool {
	var (
		info fs.FileInfo
		err  error
	)
	if r.osGlob {
		info, err = os.Stat(path)
	} else {
		info, err = fs.Stat(r.fsys, path)
	}
	return err == nil && info.IsDir()
}
