package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"github.com/electwix/sqlmod/internal/fileset"
)

// TestPipelineCases runs each testdata/cases archive. Query files become an
// in-memory source, an optional sqlmod.toml is written to disk, and the
// "want" section lists the expected diagnostics as "CODE path:line:col".
func TestPipelineCases(t *testing.T) {
	archives, err := filepath.Glob(filepath.Join("testdata", "cases", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) == 0 {
		t.Fatal("no cases found")
	}

	for _, path := range archives {
		name := strings.TrimSuffix(filepath.Base(path), ".txtar")
		t.Run(name, func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			if err != nil {
				t.Fatal(err)
			}

			files := make(map[string][]byte)
			var (
				config string
				want   []string
			)
			for _, f := range ar.Files {
				switch {
				case f.Name == "want":
					want = nonEmptyLines(string(f.Data))
				case f.Name == "sqlmod.toml":
					config = string(f.Data)
				default:
					files[f.Name] = f.Data
				}
			}

			opts := RunOptions{LookupEnv: noEnv}
			if config != "" {
				opts.ConfigPath = writeConfig(t, config)
			} else {
				opts.ConfigPath = missingConfig(t)
				opts.Queries = []string{"*.sql"}
			}

			p := Pipeline{Env: Environment{Source: fileset.NewMemoryResolver(files)}}
			summary, _ := p.Run(context.Background(), opts)

			got := make([]string, 0, len(summary.Diagnostics))
			for _, d := range summary.Diagnostics {
				got = append(got, fmt.Sprintf("%s %s:%d:%d", d.Code, d.Location.Path, d.Location.Line, d.Location.Column))
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s\ndiagnostics mismatch (-want +got):\n%s", strings.TrimSpace(string(ar.Comment)), diff)
			}
		})
	}
}

func nonEmptyLines(s string) []string {
	out := []string{}
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
