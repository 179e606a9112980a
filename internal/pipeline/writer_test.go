package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type plainWriter struct {
	writes int
	err    error
}

func (w *plainWriter) WriteFile(string, []byte) error {
	w.writes++
	return w.err
}

func TestWriteIfChanged(t *testing.T) {
	w := &MemoryWriter{}

	wrote, err := WriteIfChanged(w, "out.yaml", []byte("a"))
	if err != nil || !wrote {
		t.Fatalf("first write = %v, %v; want true, nil", wrote, err)
	}
	wrote, err = WriteIfChanged(w, "out.yaml", []byte("a"))
	if err != nil || wrote {
		t.Fatalf("identical write = %v, %v; want false, nil", wrote, err)
	}
	wrote, err = WriteIfChanged(w, "out.yaml", []byte("b"))
	if err != nil || !wrote {
		t.Fatalf("changed write = %v, %v; want true, nil", wrote, err)
	}
	if w.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", w.Writes())
	}
}

func TestWriteIfChangedWithoutMatcher(t *testing.T) {
	w := &plainWriter{}
	for range 2 {
		if _, err := WriteIfChanged(w, "out.yaml", []byte("a")); err != nil {
			t.Fatal(err)
		}
	}
	if w.writes != 2 {
		t.Errorf("writes = %d, want 2", w.writes)
	}

	boom := errors.New("disk full")
	_, err := WriteIfChanged(&plainWriter{err: boom}, "out.yaml", nil)
	var werr *WriteError
	if !errors.As(err, &werr) || werr.Path != "out.yaml" || !errors.Is(err, boom) {
		t.Fatalf("expected WriteError wrapping %v, got %v", boom, err)
	}
}

func TestOSWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalogue.yaml")
	w := NewOSWriter()

	wrote, err := WriteIfChanged(w, path, []byte("queries: []\n"))
	if err != nil || !wrote {
		t.Fatalf("first write = %v, %v; want true, nil", wrote, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "queries: []\n" {
		t.Errorf("content = %q", data)
	}

	wrote, err = WriteIfChanged(w, path, []byte("queries: []\n"))
	if err != nil || wrote {
		t.Fatalf("identical write = %v, %v; want false, nil", wrote, err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the output file", len(entries))
	}

	if err := w.WriteFile("", nil); err == nil {
		t.Error("expected error for an empty path")
	}
}
