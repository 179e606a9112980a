package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/electwix/sqlmod/internal/diagnostics"
)

const fixtureConfig = "testdata/sqlmod.toml"

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(context.Background(), args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func writeQueries(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.sql")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCheck(t *testing.T) {
	code, stdout, stderr := runCmd(t, "check", "--config", fixtureConfig)
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	if stderr != "" {
		t.Fatalf("unexpected stderr output: %q", stderr)
	}
	if stdout != "ok: 1 files, 2 queries\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRunCheckReportsDiagnostics(t *testing.T) {
	path := writeQueries(t, "--! broken (id\nSELECT 1;\n\n--! open\nSELECT :id\n")

	code, stdout, stderr := runCmd(t, "check", "--no-color", path)
	if code != exitFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	for _, want := range []string{
		path + ":1:15: error:",
		"[E201]",
		path + ":5:1: error:",
		"[E202]",
		"2 error(s)",
	} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
	if strings.HasPrefix(stderr, "error:") {
		t.Errorf("diagnostics error printed as a plain error:\n%s", stderr)
	}
}

func TestRunCheckJSON(t *testing.T) {
	path := writeQueries(t, "--! q : Missing\nSELECT 1;\n")

	code, stdout, _ := runCmd(t, "check", "--strict", "--format", "json", "-q", path)
	if code != exitFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}

	var diags []diagnostics.Diagnostic
	if err := json.Unmarshal([]byte(stdout), &diags); err != nil {
		t.Fatalf("stdout is not a JSON array: %v\n%s", err, stdout)
	}
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v, want one", diags)
	}
	d := diags[0]
	if d.Code != diagnostics.ErrQueryUnresolvedType || d.Severity != diagnostics.SeverityError {
		t.Errorf("diagnostic = %+v, want E203 error", d)
	}
	if d.Location.Line != 1 || d.Location.Column != 9 {
		t.Errorf("location = %+v, want 1:9", d.Location)
	}
}

func TestRunCheckInvalidFormat(t *testing.T) {
	code, _, stderr := runCmd(t, "check", "--config", fixtureConfig, "--format", "yaml")
	if code != exitFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, `unsupported format "yaml" (want text or json)`) {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestRunInspect(t *testing.T) {
	code, stdout, stderr := runCmd(t, "inspect", "--config", fixtureConfig)
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}

	var got catalogue
	if err := yaml.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not YAML: %v\n%s", err, stdout)
	}
	if len(got.Files) != 1 || len(got.Files[0].Queries) != 2 {
		t.Fatalf("catalogue = %+v", got)
	}

	rename := got.Files[0].Queries[1]
	if rename.SQL != "UPDATE authors SET name = $2 WHERE id = $1" {
		t.Errorf("SQL = %q", rename.SQL)
	}
	if diff := cmp.Diff([]string{"id", "name"}, rename.BindParams); diff != "" {
		t.Errorf("bind params mismatch (-want +got):\n%s", diff)
	}
	if rename.Param.Name != "RenameAuthorParams" || rename.Row.Name != "RenameAuthorRow" {
		t.Errorf("struct names = %q, %q", rename.Param.Name, rename.Row.Name)
	}

	author := got.Files[0].Types[0]
	if author.Name != "Author" || len(author.Fields) != 3 || !author.Fields[2].Nullable {
		t.Errorf("type = %+v", author)
	}
}

func TestRunInspectJSON(t *testing.T) {
	code, stdout, stderr := runCmd(t, "inspect", "--config", fixtureConfig, "-f", "json")
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	var got catalogue
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if got.Files[0].Queries[0].Name != "get_author" {
		t.Errorf("first query = %q", got.Files[0].Queries[0].Name)
	}
}

func TestRunInspectOut(t *testing.T) {
	out := filepath.Join(t.TempDir(), "catalogue.yaml")

	code, stdout, stderr := runCmd(t, "inspect", "--config", fixtureConfig, "--out", out)
	if code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	if stdout != "wrote "+out+"\n" {
		t.Fatalf("stdout = %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "name: get_author") {
		t.Errorf("catalogue missing query:\n%s", data)
	}

	_, stdout, _ = runCmd(t, "inspect", "--config", fixtureConfig, "--out", out)
	if stdout != out+" is up to date\n" {
		t.Fatalf("second stdout = %q", stdout)
	}
}

func TestRunInspectWithErrorsWritesNothing(t *testing.T) {
	path := writeQueries(t, "--! q\nSELECT 1")
	out := filepath.Join(t.TempDir(), "catalogue.yaml")

	code, stdout, _ := runCmd(t, "inspect", "--no-color", "-q", path, "--out", out)
	if code != exitFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written despite errors: %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCmd(t, "version")
	if code != exitOK || !strings.HasPrefix(stdout, "sqlmod ") {
		t.Fatalf("version = %d, %q", code, stdout)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	code, _, stderr := runCmd(t, "check", "--bogus")
	if code != exitFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "unknown flag: --bogus") || !strings.Contains(stderr, "--format") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestRunMissingConfig(t *testing.T) {
	code, _, stderr := runCmd(t, "check", "--no-color", "--config", filepath.Join(t.TempDir(), "sqlmod.toml"))
	if code != exitFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "[E301]") {
		t.Fatalf("stderr = %q", stderr)
	}
}
