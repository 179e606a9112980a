package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScanBinds(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		binds      []string
		positional []string
		sql        string
	}{
		{name: "single quoted", body: "SELECT 'x:foo'", sql: "SELECT 'x:foo'"},
		{name: "dollar quoted", body: "SELECT $tag$:foo$tag$", sql: "SELECT $tag$:foo$tag$"},
		{name: "empty dollar tag", body: "SELECT $$ :a ' $$, :b", binds: []string{"b"}, sql: "SELECT $$ :a ' $$, $1"},
		{name: "dollar tag mismatch", body: "SELECT $a$ :x $b$ $a$, :y", binds: []string{"y"}, sql: "SELECT $a$ :x $b$ $a$, $1"},
		{name: "c style", body: "SELECT E'a:foo'", sql: "SELECT E'a:foo'"},
		{name: "c style lower", body: "SELECT e'a:foo', :x", binds: []string{"x"}, sql: "SELECT e'a:foo', $1"},
		{name: "c style escapes", body: `SELECT E'it\'s :x '' :y', :z`, binds: []string{"z"}, sql: `SELECT E'it\'s :x '' :y', $1`},
		{name: "double quoted", body: `SELECT "a:b" FROM t WHERE a = :a`, binds: []string{"a"}, sql: `SELECT "a:b" FROM t WHERE a = $1`},
		{name: "doubled single quote", body: "SELECT 'it''s', :y", binds: []string{"y"}, sql: "SELECT 'it''s', $1"},
		{name: "bare e", body: "SELECT Elem FROM t WHERE e = :e", binds: []string{"e"}, sql: "SELECT Elem FROM t WHERE e = $1"},
		{name: "cast", body: "SELECT x::int, :a::text", binds: []string{"a"}, sql: "SELECT x::int, $1::text"},
		{name: "leading and trailing", body: ":a + :b", binds: []string{"a", "b"}, sql: "$1 + $2"},
		{name: "adjacent", body: ":a:b", binds: []string{"a"}, sql: "$1:b"},
		{name: "positional dollar", body: "WHERE id = $1 AND name = :name", binds: []string{"name"}, positional: []string{"$1"}, sql: "WHERE id = $1 AND name = $1"},
		{name: "positional only", body: "WHERE a = $1 AND b = $12", positional: []string{"$1", "$12"}, sql: "WHERE a = $1 AND b = $12"},
		{name: "positional quoted", body: "SELECT '$1', \"$2\", $q$ $3 $q$, :a", binds: []string{"a"}, sql: "SELECT '$1', \"$2\", $q$ $3 $q$, $1"},
		{name: "slice bound", body: "SELECT arr[1:2], :c", binds: []string{"c"}, sql: "SELECT arr[1:2], $1"},
		{name: "unterminated literal", body: "SELECT :a, 'abc :x", binds: []string{"a"}, sql: "SELECT $1, 'abc :x"},
		{name: "identifier chars", body: "SELECT :user_id2, :user_id2x", binds: []string{"user_id2", "user_id2x"}, sql: "SELECT $1, $2"},
		{name: "sorted not first seen", body: "SELECT :zeta, :alpha, :mid, :alpha", binds: []string{"zeta", "alpha", "mid", "alpha"}, sql: "SELECT $3, $1, $2, $1"},
		{name: "multibyte text", body: "SELECT 'é:x', :é, :y", binds: []string{"y"}, sql: "SELECT 'é:x', :é, $1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const offset = 100
			binds, positional := scanBinds(tt.body, offset)
			got := make([]string, 0, len(binds))
			for _, b := range binds {
				got = append(got, b.Value)
				if tt.body[b.Start-offset-1] != ':' || tt.body[b.Start-offset:b.End-offset] != b.Value {
					t.Errorf("span %d..%d does not cover %q", b.Start, b.End, b.Value)
				}
			}
			if tt.binds == nil {
				tt.binds = []string{}
			}
			if diff := cmp.Diff(tt.binds, got); diff != "" {
				t.Errorf("binds mismatch (-want +got):\n%s", diff)
			}
			gotPositional := make([]string, 0, len(positional))
			for _, p := range positional {
				gotPositional = append(gotPositional, p.Value)
				if tt.body[p.Start-offset:p.End-offset] != p.Value {
					t.Errorf("span %d..%d does not cover %q", p.Start, p.End, p.Value)
				}
			}
			if tt.positional == nil {
				tt.positional = []string{}
			}
			if diff := cmp.Diff(tt.positional, gotPositional); diff != "" {
				t.Errorf("positional mismatch (-want +got):\n%s", diff)
			}
			if sql := rewriteBinds(tt.body, offset, binds); sql != tt.sql {
				t.Errorf("rewrite = %q, want %q", sql, tt.sql)
			}
		})
	}
}

func TestQuerySQLStopsAtFirstSemicolon(t *testing.T) {
	mod, err := ParseModule("q.sql", "--! a\nSELECT :x;\n--! b\nSELECT :y, :x;")
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(mod.Queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(mod.Queries))
	}
	if got := mod.Queries[1].SQL.SQL; got != "SELECT $2, $1" {
		t.Errorf("unexpected sql %q", got)
	}
	if diff := cmp.Diff([]string{"x", "y"}, mod.Queries[1].SQL.BindNames()); diff != "" {
		t.Errorf("bind names mismatch (-want +got):\n%s", diff)
	}
}

func TestQuerySQLSemicolonInsideLiteral(t *testing.T) {
	_, err := ParseModule("q.sql", "--! a\nSELECT ';';")
	if err == nil {
		t.Fatal("expected the statement to end at the quoted ';' and leave unparsed input")
	}
}
