package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Writer writes command output to persistent storage.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// contentMatcher is implemented by writers that can tell whether path
// already holds data.
type contentMatcher interface {
	Matches(path string, data []byte) (bool, error)
}

// WriteError wraps failures encountered while writing output files.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteIfChanged writes data unless path already holds it. It reports
// whether a write happened.
func WriteIfChanged(w Writer, path string, data []byte) (bool, error) {
	if m, ok := w.(contentMatcher); ok {
		same, err := m.Matches(path, data)
		if err != nil {
			return false, &WriteError{Path: path, Err: err}
		}
		if same {
			return false, nil
		}
	}
	if err := w.WriteFile(path, data); err != nil {
		return false, &WriteError{Path: path, Err: err}
	}
	return true, nil
}

// NewOSWriter returns a Writer that performs atomic writes on the local filesystem.
func NewOSWriter() Writer {
	return &osWriter{perm: 0o644}
}

type osWriter struct {
	perm fs.FileMode
}

func (w *osWriter) WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("pipeline: empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".sqlmod-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
		_ = tmp.Close()
	}()
	if w.perm != 0 {
		if err := tmp.Chmod(w.perm); err != nil {
			return fmt.Errorf("chmod temp file: %w", err)
		}
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

func (w *osWriter) Matches(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(existing, data), nil
}
