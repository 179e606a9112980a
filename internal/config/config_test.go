package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/electwix/sqlmod/internal/fileset"
	"github.com/electwix/sqlmod/internal/query/analyzer"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadSuccess(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, `
queries = ["queries/*.sql", "reports/*.sql"]
strict_references = true
param_suffix = "Args"
row_suffix = "Row"
`)

	result, err := Load(configPath, LoadOptions{LookupEnv: noEnv})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}

	want := Plan{
		Path:             configPath,
		BaseDir:          tempDir,
		Queries:          []string{"queries/*.sql", "reports/*.sql"},
		StrictReferences: true,
		ParamSuffix:      "Args",
		RowSuffix:        "Row",
	}
	if diff := cmp.Diff(want, result.Plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}

	opts := result.Plan.AnalyzerOptions()
	if opts != (analyzer.Options{ParamSuffix: "Args", RowSuffix: "Row", StrictReferences: true}) {
		t.Fatalf("unexpected analyzer options %+v", opts)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, `queries = ["*.sql"]`)

	result, err := Load(configPath, LoadOptions{LookupEnv: noEnv})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if result.Plan.ParamSuffix != DefaultParamSuffix || result.Plan.RowSuffix != "" || result.Plan.StrictReferences {
		t.Fatalf("unexpected defaults %+v", result.Plan)
	}
}

func TestLoadExplicitEmptySuffix(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), `param_suffix = ""`)

	result, err := Load(configPath, LoadOptions{LookupEnv: noEnv})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if result.Plan.ParamSuffix != "" {
		t.Fatalf("ParamSuffix = %q, want empty", result.Plan.ParamSuffix)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "sqlmod.toml")

	if _, err := Load(path, LoadOptions{LookupEnv: noEnv}); err == nil {
		t.Fatal("expected error for a missing file")
	}

	result, err := Load(path, LoadOptions{AllowMissing: true, LookupEnv: noEnv})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if diff := cmp.Diff(Default(tempDir), result.Plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSyntaxErrorPosition(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), `
queries = ["queries/*.sql"]
strict_references = maybe
`)

	_, err := Load(configPath, LoadOptions{LookupEnv: noEnv})
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if cerr.Path != configPath || cerr.Line != 2 || cerr.Column < 1 {
		t.Fatalf("unexpected error position %+v", cerr)
	}
	if !strings.HasPrefix(err.Error(), configPath+":2:") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLoadTypeMismatch(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), `queries = "queries/*.sql"`)

	_, err := Load(configPath, LoadOptions{LookupEnv: noEnv})
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
}

func TestLoadStrictUnknownKeys(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), `
queries = ["*.sql"]
out = "gen"
schemas = ["schema.sql"]
`)

	_, err := Load(configPath, LoadOptions{Strict: true, LookupEnv: noEnv})
	var unknown *UnknownKeysError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownKeysError, got %T: %v", err, err)
	}
	if diff := cmp.Diff([]string{"out", "schemas"}, unknown.Keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), "unknown configuration keys: out, schemas") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLoadNonStrictUnknownKeysWarning(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), `
queries = ["*.sql"]
package = "db"
`)

	result, err := Load(configPath, LoadOptions{LookupEnv: noEnv})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	warning := result.Warnings[0]
	if !strings.Contains(warning, "unknown configuration keys") || !strings.Contains(warning, "package") {
		t.Fatalf("warning should mention offending key, got: %q", warning)
	}
	if diff := cmp.Diff([]string{"*.sql"}, result.Plan.Queries); diff != "" {
		t.Fatalf("known keys must still load (-want +got):\n%s", diff)
	}
}

func TestLoadInvalidSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"param suffix", `param_suffix = "Params!"`},
		{"row suffix", `row_suffix = "Row Type"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(configPath, LoadOptions{LookupEnv: noEnv})
			var cerr *Error
			if !errors.As(err, &cerr) || !strings.Contains(err.Error(), "letters, digits and underscores") {
				t.Fatalf("expected suffix error, got %v", err)
			}
		})
	}
}

func TestLoadInvalidPattern(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), `queries = ["queries/[.sql"]`)
	_, err := Load(configPath, LoadOptions{LookupEnv: noEnv})
	if !errors.Is(err, filepath.ErrBadPattern) {
		t.Fatalf("expected ErrBadPattern, got %v", err)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), `
queries = ["queries/*.sql"]
row_suffix = "Row"
`)

	env := mapEnv(map[string]string{
		EnvQueries:          " a/*.sql, ,b/*.sql ",
		EnvStrictReferences: "true",
		EnvParamSuffix:      "Input",
		EnvRowSuffix:        "",
	})
	result, err := Load(configPath, LoadOptions{LookupEnv: env})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	plan := result.Plan
	if diff := cmp.Diff([]string{"a/*.sql", "b/*.sql"}, plan.Queries); diff != "" {
		t.Fatalf("queries mismatch (-want +got):\n%s", diff)
	}
	if !plan.StrictReferences || plan.ParamSuffix != "Input" || plan.RowSuffix != "" {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestLoadInvalidEnvironmentBoolean(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, t.TempDir(), `queries = ["*.sql"]`)
	_, err := Load(configPath, LoadOptions{LookupEnv: mapEnv(map[string]string{EnvStrictReferences: "sometimes"})})
	if err == nil || !strings.Contains(err.Error(), EnvStrictReferences) {
		t.Fatalf("expected env error, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, `queries = ["queries/*.sql"]`)
	dotenv := "SQLMOD_QUERIES=dotenv/*.sql\nSQLMOD_ROW_SUFFIX=Record\n"
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatal(err)
	}

	result, err := Load(configPath, LoadOptions{LookupEnv: mapEnv(map[string]string{EnvRowSuffix: "Out"})})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"dotenv/*.sql"}, result.Plan.Queries); diff != "" {
		t.Fatalf("queries mismatch (-want +got):\n%s", diff)
	}
	if result.Plan.RowSuffix != "Out" {
		t.Fatalf("process environment must win over .env, got %q", result.Plan.RowSuffix)
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff([]string{"a", "b"}, SplitList(" a ,,b,")); diff != "" {
		t.Fatalf("SplitList mismatch (-want +got):\n%s", diff)
	}
	if got := SplitList(""); len(got) != 0 {
		t.Fatalf("SplitList(\"\") = %v, want empty", got)
	}
}

func TestResolveQueries(t *testing.T) {
	t.Parallel()

	src := fileset.NewResolver(fstest.MapFS{
		"queries/users.sql": &fstest.MapFile{},
		"queries/posts.sql": &fstest.MapFile{},
	})

	paths, err := ResolveQueries(src, []string{"queries/*.sql"})
	if err != nil {
		t.Fatalf("ResolveQueries returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"queries/posts.sql", "queries/users.sql"}, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name     string
		patterns []string
		want     string
	}{
		{"no patterns", nil, "queries must include at least one pattern"},
		{"no match", []string{"reports/*.sql"}, "queries patterns matched no files: reports/*.sql"},
		{"bad pattern", []string{"["}, `queries: invalid glob pattern "["`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveQueries(src, tt.patterns)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func writeConfig(tb testing.TB, dir, contents string) string {
	tb.Helper()

	path := filepath.Join(dir, "sqlmod.toml")
	clean := strings.TrimSpace(contents) + "\n"
	if err := os.WriteFile(path, []byte(clean), 0o600); err != nil {
		tb.Fatalf("write config: %v", err)
	}
	return path
}
