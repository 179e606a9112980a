package fileset

import (
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"sync"
)

// MemoryResolver is a mutable in-memory Source. Patterns use path.Match
// syntax against slash-separated names.
type MemoryResolver struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var _ Source = (*MemoryResolver)(nil)

// NewMemoryResolver creates a new MemoryResolver with a copy of files.
func NewMemoryResolver(files map[string][]byte) *MemoryResolver {
	m := &MemoryResolver{files: make(map[string][]byte, len(files))}
	maps.Copy(m.files, files)
	return m
}

// Resolve matches patterns against the stored file names.
func (m *MemoryResolver) Resolve(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	names := slices.Sorted(maps.Keys(m.files))
	var (
		results []string
		missing []string
	)
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, PatternError{Pattern: pattern, Err: err}
		}
		matched := false
		for _, name := range names {
			// Match cannot fail once the pattern has been validated.
			if ok, _ := path.Match(pattern, name); ok {
				results = append(results, name)
				matched = true
			}
		}
		if !matched {
			missing = append(missing, pattern)
		}
	}

	if len(missing) > 0 {
		return nil, NoMatchError{Patterns: missing}
	}

	slices.Sort(results)
	return slices.Compact(results), nil
}

// ReadFile returns the content of an in-memory file.
func (m *MemoryResolver) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if content, ok := m.files[name]; ok {
		return slices.Clone(content), nil
	}
	return nil, fmt.Errorf("open %s: %w", name, fs.ErrNotExist)
}

// AddFile adds or replaces a file.
func (m *MemoryResolver) AddFile(name string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = content
}

// RemoveFile removes a file from the resolver.
func (m *MemoryResolver) RemoveFile(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, name)
}

// FileCount returns the number of files.
func (m *MemoryResolver) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.files)
}
