package pipeline

import (
	"bytes"
	"sync"
)

// MemoryWriter keeps written files in memory.
type MemoryWriter struct {
	mu     sync.RWMutex
	Files  map[string][]byte
	writes int
}

// WriteFile stores data in memory.
func (m *MemoryWriter) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Files == nil {
		m.Files = make(map[string][]byte)
	}
	m.Files[path] = bytes.Clone(data)
	m.writes++
	return nil
}

// Matches reports whether path already holds data.
func (m *MemoryWriter) Matches(path string, data []byte) (bool, error) {
	existing, ok := m.GetFile(path)
	return ok && bytes.Equal(existing, data), nil
}

// Writes returns how many times WriteFile was called.
func (m *MemoryWriter) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.writes
}

// GetFile retrieves a file's content.
func (m *MemoryWriter) GetFile(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.Files[path]
	return data, ok
}

// HasFile checks if a file exists.
func (m *MemoryWriter) HasFile(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.Files[path]
	return ok
}

// Clear removes all files.
func (m *MemoryWriter) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Files = make(map[string][]byte)
}

// FileCount returns the number of files.
func (m *MemoryWriter) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.Files)
}

var (
	_ Writer         = (*MemoryWriter)(nil)
	_ contentMatcher = (*MemoryWriter)(nil)
)
