// Package diagnostics turns parser failures and analyzer findings into
// located, coded messages. It captures file positions, source context with a
// caret, suggestions and severity levels.
package diagnostics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Severity indicates the seriousness of a diagnostic.
type Severity int

const (
	// SeverityInfo indicates an informational message.
	SeverityInfo Severity = iota
	// SeverityWarning indicates a potential issue that doesn't fail a check.
	SeverityWarning
	// SeverityError indicates an issue that fails a check.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name; unknown names read as warnings.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "info":
		*s = SeverityInfo
	case "error", "err":
		*s = SeverityError
	default:
		*s = SeverityWarning
	}
	return nil
}

// Location is a position in a source file. Line and Column are 1-based and
// Column counts runes; Offset is the byte offset.
type Location struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Offset int    `json:"offset"`
}

// Span represents a range of locations in a source file.
type Span struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// Suggestion represents a suggested fix for a diagnostic.
type Suggestion struct {
	Message     string `json:"message"`
	Replacement string `json:"replacement,omitempty"`
}

// RelatedInfo represents related context for a diagnostic.
type RelatedInfo struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

// Diagnostic represents a rich diagnostic message with context.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`

	Location Location `json:"location"`
	Span     *Span    `json:"span,omitempty"`

	// Context is the source snippet with a caret under the location.
	Context string `json:"context,omitempty"`

	Suggestions []Suggestion  `json:"suggestions,omitempty"`
	Notes       []string      `json:"notes,omitempty"`
	Related     []RelatedInfo `json:"related,omitempty"`

	// Source names the component that produced the diagnostic.
	Source string `json:"source,omitempty"`
}

// HasLocation returns true if the diagnostic has a valid location.
func (d Diagnostic) HasLocation() bool {
	return d.Location.Path != "" && d.Location.Line > 0
}

// HasSpan returns true if the diagnostic has a valid span.
func (d Diagnostic) HasSpan() bool {
	return d.Span != nil && d.Span.Start.Path != ""
}

func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

func (d Diagnostic) IsWarning() bool {
	return d.Severity == SeverityWarning
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Code != "" {
		return fmt.Sprintf("%s:%d:%d: [%s] %s: %s",
			d.Location.Path, d.Location.Line, d.Location.Column,
			d.Code, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		d.Location.Path, d.Location.Line, d.Location.Column,
		d.Severity, d.Message)
}

// String returns a human-readable, uncoloured rendering of the diagnostic.
func (d Diagnostic) String() string {
	var b strings.Builder

	if d.HasLocation() {
		fmt.Fprintf(&b, "%s:%d:%d: ", d.Location.Path, d.Location.Line, d.Location.Column)
	}
	fmt.Fprintf(&b, "%s: %s", d.Severity, d.Message)
	if d.Code != "" {
		fmt.Fprintf(&b, " [%s]", d.Code)
	}
	if d.Source != "" {
		fmt.Fprintf(&b, " (%s)", d.Source)
	}
	if d.Context != "" {
		fmt.Fprintf(&b, "\n%s", strings.TrimRight(d.Context, "\n"))
	}
	for _, sugg := range d.Suggestions {
		fmt.Fprintf(&b, "\n  suggestion: %s", sugg.Message)
		if sugg.Replacement != "" {
			fmt.Fprintf(&b, "\n    replace with: %s", sugg.Replacement)
		}
	}
	for _, note := range d.Notes {
		fmt.Fprintf(&b, "\n  note: %s", note)
	}
	for _, rel := range d.Related {
		fmt.Fprintf(&b, "\n  related: %s:%d:%d: %s",
			rel.Location.Path, rel.Location.Line, rel.Location.Column, rel.Message)
	}
	return b.String()
}

// Builder provides a fluent API for constructing diagnostics.
type Builder struct {
	diag Diagnostic
}

// NewBuilder creates a new diagnostic builder with the given severity and message.
func NewBuilder(severity Severity, message string) *Builder {
	return &Builder{diag: Diagnostic{Severity: severity, Message: message}}
}

// Error creates a builder for an error-level diagnostic.
func Error(message string) *Builder {
	return NewBuilder(SeverityError, message)
}

// Warning creates a builder for a warning-level diagnostic.
func Warning(message string) *Builder {
	return NewBuilder(SeverityWarning, message)
}

func (b *Builder) WithCode(code string) *Builder {
	b.diag.Code = code
	return b
}

// At sets the location.
func (b *Builder) At(path string, line, column int) *Builder {
	b.diag.Location = Location{Path: path, Line: line, Column: column}
	return b
}

// AtLocation sets the location from a Location struct.
func (b *Builder) AtLocation(loc Location) *Builder {
	b.diag.Location = loc
	return b
}

func (b *Builder) WithSpan(start, end Location) *Builder {
	b.diag.Span = &Span{Start: start, End: end}
	return b
}

func (b *Builder) WithContext(context string) *Builder {
	b.diag.Context = context
	return b
}

func (b *Builder) WithSource(source string) *Builder {
	b.diag.Source = source
	return b
}

func (b *Builder) WithSuggestion(message, replacement string) *Builder {
	b.diag.Suggestions = append(b.diag.Suggestions, Suggestion{Message: message, Replacement: replacement})
	return b
}

func (b *Builder) WithNote(note string) *Builder {
	b.diag.Notes = append(b.diag.Notes, note)
	return b
}

// WithRelated adds a related location.
func (b *Builder) WithRelated(loc Location, message string) *Builder {
	b.diag.Related = append(b.diag.Related, RelatedInfo{Location: loc, Message: message})
	return b
}

// Build returns the constructed diagnostic.
func (b *Builder) Build() Diagnostic {
	return b.diag
}

// Collection holds a set of diagnostics.
type Collection struct {
	diagnostics []Diagnostic
}

// NewCollection creates a new empty diagnostic collection.
func NewCollection(diags ...Diagnostic) *Collection {
	c := &Collection{diagnostics: make([]Diagnostic, 0, len(diags))}
	c.diagnostics = append(c.diagnostics, diags...)
	return c
}

func (c *Collection) Add(ds ...Diagnostic) {
	c.diagnostics = append(c.diagnostics, ds...)
}

// HasErrors returns true if the collection contains any errors.
func (c *Collection) HasErrors() bool {
	return slices.ContainsFunc(c.diagnostics, Diagnostic.IsError)
}

// Errors returns all error-level diagnostics.
func (c *Collection) Errors() []Diagnostic {
	return c.Filter(Diagnostic.IsError)
}

// Warnings returns all warning-level diagnostics.
func (c *Collection) Warnings() []Diagnostic {
	return c.Filter(Diagnostic.IsWarning)
}

// All returns a copy of all diagnostics.
func (c *Collection) All() []Diagnostic {
	return slices.Clone(c.diagnostics)
}

func (c *Collection) Len() int {
	return len(c.diagnostics)
}

// Filter returns diagnostics matching the given predicate.
func (c *Collection) Filter(predicate func(Diagnostic) bool) []Diagnostic {
	var result []Diagnostic
	for _, d := range c.diagnostics {
		if predicate(d) {
			result = append(result, d)
		}
	}
	return result
}

// SortByLocation sorts diagnostics by path, line and column. Diagnostics at
// the same location keep their relative order.
func (c *Collection) SortByLocation() {
	slices.SortStableFunc(c.diagnostics, func(a, b Diagnostic) int {
		return compareLocation(a.Location, b.Location)
	})
}

func compareLocation(a, b Location) int {
	return cmp.Or(
		cmp.Compare(a.Path, b.Path),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
	)
}

// Summary provides a quick overview of diagnostics.
type Summary struct {
	Total    int
	Errors   int
	Warnings int
	Infos    int
}

// Summary returns a summary of the diagnostics collection.
func (c *Collection) Summary() Summary {
	s := Summary{Total: len(c.diagnostics)}
	for _, d := range c.diagnostics {
		switch d.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Infos++
		}
	}
	return s
}

// Diagnostic codes. E2xx are query file errors, E3xx configuration errors,
// W1xx warnings. E203 is reported as a warning unless references are strict.
const (
	ErrQueryParseError     = "E201"
	ErrQueryUnterminated   = "E202"
	ErrQueryUnresolvedType = "E203"
	ErrQueryDuplicateQuery = "E204"
	ErrQueryDuplicateType  = "E205"
	ErrQueryDuplicateField = "E206"
	ErrQueryReadFailed     = "E207"
	ErrQueryPositional     = "E208"

	ErrConfigInvalid    = "E301"
	ErrConfigUnknownKey = "E305"

	WarnUnusedParam        = "W104"
	WarnUnusedType         = "W106"
	WarnEmbeddedAnnotation = "W107"
	WarnConfigUnknownKey   = "W108"
)

// Components named in Diagnostic.Source.
const (
	SourceQueryParser   = "query-parser"
	SourceQueryAnalyzer = "query-analyzer"
	SourceConfigLoader  = "config-loader"
	SourceQueryFiles    = "query-files"
)

var codeDescriptions = map[string]string{
	ErrQueryParseError:     "Query file does not match the annotation grammar",
	ErrQueryUnterminated:   "Query body is missing its ';' terminator",
	ErrQueryUnresolvedType: "Reference to an undeclared type",
	ErrQueryDuplicateQuery: "Duplicate query name",
	ErrQueryDuplicateType:  "Duplicate type name",
	ErrQueryDuplicateField: "Duplicate field in a field list",
	ErrQueryReadFailed:     "Query file could not be read",
	ErrQueryPositional:     "Positional placeholder mixed with named binds",
	ErrConfigInvalid:       "Invalid configuration",
	ErrConfigUnknownKey:    "Unknown configuration key",
	WarnUnusedParam:        "Param field not used as a bind parameter",
	WarnUnusedType:         "Declared type never referenced",
	WarnEmbeddedAnnotation: "Annotation line inside a query body",
	WarnConfigUnknownKey:   "Unknown configuration key",
}

// CodeDescription returns a human-readable description for a code.
func CodeDescription(code string) string {
	if desc, ok := codeDescriptions[code]; ok {
		return desc
	}
	return "Unknown diagnostic code"
}

// CategorizedSummary groups diagnostics by category based on their codes.
type CategorizedSummary struct {
	QueryErrors   []Diagnostic
	ConfigErrors  []Diagnostic
	Warnings      []Diagnostic
	Uncategorized []Diagnostic
}

// Categorize groups diagnostics by their code category. A warning-level
// diagnostic always lands in Warnings, whatever its code.
func (c *Collection) Categorize() CategorizedSummary {
	var result CategorizedSummary
	for _, d := range c.diagnostics {
		switch {
		case d.Severity != SeverityError:
			result.Warnings = append(result.Warnings, d)
		case strings.HasPrefix(d.Code, "E2"):
			result.QueryErrors = append(result.QueryErrors, d)
		case strings.HasPrefix(d.Code, "E3"):
			result.ConfigErrors = append(result.ConfigErrors, d)
		default:
			result.Uncategorized = append(result.Uncategorized, d)
		}
	}
	return result
}
