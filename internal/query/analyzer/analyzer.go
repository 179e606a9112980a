// Package analyzer resolves the parameter and row structs of parsed query
// modules and reports mistakes the grammar alone cannot catch.
package analyzer

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/electwix/sqlmod/internal/query/parser"
)

// Options controls struct naming and how strictly references are checked.
type Options struct {
	ParamSuffix string
	RowSuffix   string
	// StrictReferences turns unresolved type references into errors.
	StrictReferences bool
}

// DefaultOptions mirrors the naming of the configuration defaults.
func DefaultOptions() Options {
	return Options{ParamSuffix: "Params"}
}

// Analyzer resolves modules. It holds no per-module state and is safe for
// concurrent use.
type Analyzer struct {
	opts Options
}

// New creates a new Analyzer with the given options.
func New(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Field is a resolved struct field.
type Field struct {
	Name          string `yaml:"name" json:"name"`
	Nullable      bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	InnerNullable bool   `yaml:"inner_nullable,omitempty" json:"inner_nullable,omitempty"`
}

// Struct is the resolved parameter or row shape of a query.
type Struct struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`
	// Named is set when the struct refers to a declared type.
	Named bool `yaml:"named,omitempty" json:"named,omitempty"`
	// Resolved is false for a reference to a type that was never declared.
	Resolved bool `yaml:"resolved" json:"resolved"`
}

// ResolvedType is a declared record type.
type ResolvedType struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// ResolvedQuery is a query with its structs resolved.
type ResolvedQuery struct {
	Name string `yaml:"name" json:"name"`
	SQL  string `yaml:"sql" json:"sql"`
	// BindParams lists the distinct bind names; the name at index i is
	// written as $(i+1) in SQL.
	BindParams []string `yaml:"bind_params" json:"bind_params"`
	Param      Struct   `yaml:"param" json:"param"`
	Row        Struct   `yaml:"row" json:"row"`
}

// Result contains the analysis result for a single file.
type Result struct {
	Path        string          `yaml:"path" json:"path"`
	Types       []ResolvedType  `yaml:"types" json:"types"`
	Queries     []ResolvedQuery `yaml:"queries" json:"queries"`
	Diagnostics []Diagnostic    `yaml:"-" json:"-"`
}

// HasErrors reports whether any diagnostic is an error.
func (r Result) HasErrors() bool {
	return slices.ContainsFunc(r.Diagnostics, func(d Diagnostic) bool {
		return d.Severity == SeverityError
	})
}

// Analyze resolves every query of mod and validates the module.
func (a *Analyzer) Analyze(path string, mod parser.ParsedModule) Result {
	res := Result{
		Path:    path,
		Types:   make([]ResolvedType, 0, len(mod.Types)),
		Queries: make([]ResolvedQuery, 0, len(mod.Queries)),
	}
	c := &checker{path: path}

	for _, typ := range mod.Types {
		res.Types = append(res.Types, ResolvedType{Name: typ.Name.Value, Fields: convertFields(typ.Fields)})
	}
	c.duplicateTypes(mod.Types)
	for _, typ := range mod.Types {
		c.duplicateFields(typ.Fields, fmt.Sprintf("type %s", typ.Name.Value))
	}
	c.duplicateQueries(mod.Queries)

	used := make(map[string]struct{}, len(mod.Types))
	for _, q := range mod.Queries {
		ann := q.Annotation
		param := a.resolve(c, mod.Types, ann, ann.Param, a.opts.ParamSuffix, used)
		row := a.resolve(c, mod.Types, ann, ann.Row, a.opts.RowSuffix, used)
		binds := q.SQL.BindNames()
		c.unusedParamFields(ann, param, binds)
		c.embeddedAnnotations(q)
		c.positionalPlaceholders(q, binds)

		res.Queries = append(res.Queries, ResolvedQuery{
			Name:       ann.Name.Value,
			SQL:        q.SQL.SQL,
			BindParams: binds,
			Param:      param,
			Row:        row,
		})
	}
	c.unusedTypes(mod.Types, used)

	slices.SortStableFunc(c.diags, func(x, y Diagnostic) int {
		return cmp.Compare(x.Start, y.Start)
	})
	res.Diagnostics = c.diags
	return res
}

func (a *Analyzer) resolve(c *checker, types []parser.TypeAnnotation, ann parser.QueryAnnotation, ds parser.QueryDataStruct, suffix string, used map[string]struct{}) Struct {
	fields, name, ok := ds.NameAndFields(types, ann.Name, suffix)
	st := Struct{Name: name.Value, Fields: convertFields(fields), Resolved: ok}
	switch ds := ds.(type) {
	case parser.NamedStruct:
		st.Named = true
		used[ds.Name.Value] = struct{}{}
		if !ok {
			c.unresolved(ds.Name, ann, a.opts.StrictReferences)
		}
	case parser.ImplicitStruct:
		c.duplicateFields(ds.Fields, fmt.Sprintf("query %s", ann.Name.Value))
	}
	return st
}

func convertFields(fields []parser.NullableIdent) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, Field{Name: f.Name.Value, Nullable: f.Nullable, InnerNullable: f.InnerNullable})
	}
	return out
}

type checker struct {
	path  string
	diags []Diagnostic
}

func (c *checker) add(kind Kind, severity Severity, span parser.Parsed[string], format string, args ...any) *Diagnostic {
	c.diags = append(c.diags, Diagnostic{
		Path:     c.path,
		Start:    span.Start,
		End:      span.End,
		Kind:     kind,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
	return &c.diags[len(c.diags)-1]
}

func (c *checker) unresolved(name parser.Parsed[string], ann parser.QueryAnnotation, strict bool) {
	severity := SeverityWarning
	if strict {
		severity = SeverityError
	}
	c.add(KindUnresolvedType, severity, name,
		"query %s references undeclared type %s; it resolves to an empty struct", ann.Name.Value, name.Value)
}

func (c *checker) duplicateTypes(types []parser.TypeAnnotation) {
	seen := make(map[string]parser.Parsed[string], len(types))
	for _, typ := range types {
		if prev, ok := seen[typ.Name.Value]; ok {
			d := c.add(KindDuplicateType, SeverityError, typ.Name, "type %s is declared more than once", typ.Name.Value)
			d.Related = append(d.Related, Related{Start: prev.Start, End: prev.End, Message: "first declared here"})
			continue
		}
		seen[typ.Name.Value] = typ.Name
	}
}

func (c *checker) duplicateQueries(queries []parser.Query) {
	seen := make(map[string]parser.Parsed[string], len(queries))
	for _, q := range queries {
		name := q.Annotation.Name
		if prev, ok := seen[name.Value]; ok {
			d := c.add(KindDuplicateQuery, SeverityError, name, "query %s is declared more than once", name.Value)
			d.Related = append(d.Related, Related{Start: prev.Start, End: prev.End, Message: "first declared here"})
			continue
		}
		seen[name.Value] = name
	}
}

func (c *checker) duplicateFields(fields []parser.NullableIdent, owner string) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f.Name.Value]; ok {
			c.add(KindDuplicateField, SeverityError, f.Name, "field %s is listed more than once in %s", f.Name.Value, owner)
			continue
		}
		seen[f.Name.Value] = struct{}{}
	}
}

// unusedParamFields flags param fields no bind refers to. The field list of
// a param struct only annotates binds, so every entry should match one.
func (c *checker) unusedParamFields(ann parser.QueryAnnotation, param Struct, binds []string) {
	var spans map[string]parser.Parsed[string]
	switch ds := ann.Param.(type) {
	case parser.ImplicitStruct:
		spans = fieldSpans(ds.Fields)
	case parser.NamedStruct:
		if !param.Resolved {
			return
		}
		spans = make(map[string]parser.Parsed[string], len(param.Fields))
		for _, f := range param.Fields {
			spans[f.Name] = ds.Name
		}
	}
	for _, f := range param.Fields {
		if _, ok := slices.BinarySearch(binds, f.Name); ok {
			continue
		}
		c.add(KindUnusedParamField, SeverityWarning, spans[f.Name],
			"param field %s of query %s is not used as a bind parameter", f.Name, ann.Name.Value)
	}
}

func fieldSpans(fields []parser.NullableIdent) map[string]parser.Parsed[string] {
	spans := make(map[string]parser.Parsed[string], len(fields))
	for _, f := range fields {
		if _, ok := spans[f.Name.Value]; !ok {
			spans[f.Name.Value] = f.Name
		}
	}
	return spans
}

// embeddedAnnotations flags statement bodies that swallowed a following
// declaration because a ';' was missing.
func (c *checker) embeddedAnnotations(q parser.Query) {
	sql := q.SQL.SQL
	for line := range strings.Lines(sql) {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "--!") || strings.HasPrefix(trimmed, "--:") {
			c.add(KindEmbeddedAnnotation, SeverityWarning, q.Annotation.Name,
				"body of query %s contains an annotation line %q; is a ';' missing?", q.Annotation.Name.Value, strings.TrimRight(trimmed, "\r\n"))
			return
		}
	}
}

// positionalPlaceholders flags "$N" written next to named binds. Binds are
// numbered from $1, so the two schemes share placeholders.
func (c *checker) positionalPlaceholders(q parser.Query, binds []string) {
	if len(binds) == 0 {
		return
	}
	for _, p := range q.SQL.Positional {
		n, err := strconv.Atoi(p.Value[1:])
		if err == nil && n >= 1 && n <= len(binds) {
			c.add(KindPositionalPlaceholder, SeverityError, p,
				"query %s uses positional placeholder %s, which is also assigned to bind :%s", q.Annotation.Name.Value, p.Value, binds[n-1])
			continue
		}
		c.add(KindPositionalPlaceholder, SeverityError, p,
			"query %s mixes positional placeholder %s with named binds", q.Annotation.Name.Value, p.Value)
	}
}

func (c *checker) unusedTypes(types []parser.TypeAnnotation, used map[string]struct{}) {
	for _, typ := range types {
		if _, ok := used[typ.Name.Value]; ok {
			continue
		}
		c.add(KindUnusedType, SeverityWarning, typ.Name, "type %s is never referenced by a query", typ.Name.Value)
	}
}
