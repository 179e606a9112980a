package diagnostics

import (
	"errors"
	"fmt"
	"io"

	"github.com/electwix/sqlmod/internal/query/analyzer"
	"github.com/electwix/sqlmod/internal/query/parser"
)

// FromParseError converts every failure of a parse error. src must hold the
// text that was parsed.
func FromParseError(src *Source, err *parser.Error) []Diagnostic {
	if err == nil {
		return nil
	}
	out := make([]Diagnostic, 0, len(err.Failures))
	for _, f := range err.Failures {
		out = append(out, FromParseFailure(src, f))
	}
	return out
}

// FromParseFailure converts a single grammar failure.
func FromParseFailure(src *Source, f parser.Failure) Diagnostic {
	code := ErrQueryParseError
	if f.Label == parser.LabelQueryBody && f.Found == "" {
		code = ErrQueryUnterminated
	}
	d := located(src, Error(f.Message()), f.Start, f.End).
		WithCode(code).
		WithSource(SourceQueryParser).
		Build()
	return addSuggestions(d, f.Label)
}

// FromAnalyzer converts an analyzer diagnostic.
func FromAnalyzer(src *Source, d analyzer.Diagnostic) Diagnostic {
	severity := SeverityWarning
	if d.Severity == analyzer.SeverityError {
		severity = SeverityError
	}
	b := located(src, NewBuilder(severity, d.Message), d.Start, d.End).
		WithCode(analyzerCode(d.Kind)).
		WithSource(SourceQueryAnalyzer)
	for _, rel := range d.Related {
		b.WithRelated(src.Location(rel.Start), rel.Message)
	}
	return addSuggestions(b.Build(), "")
}

// FromAnalyzerResult converts all diagnostics of an analysis.
func FromAnalyzerResult(src *Source, res analyzer.Result) []Diagnostic {
	out := make([]Diagnostic, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		out = append(out, FromAnalyzer(src, d))
	}
	return out
}

// FromError converts a failure that has no position, such as an unreadable
// file. A *parser.Error is expanded through FromParseError when src is set.
func FromError(src *Source, path string, err error) []Diagnostic {
	var perr *parser.Error
	if src != nil && errors.As(err, &perr) {
		return FromParseError(src, perr)
	}
	d := Error(err.Error()).
		AtLocation(Location{Path: path}).
		WithCode(ErrQueryReadFailed).
		WithSource(SourceQueryFiles).
		Build()
	return []Diagnostic{d}
}

func located(src *Source, b *Builder, start, end int) *Builder {
	span := src.Span(start, end)
	b.AtLocation(span.Start).WithSpan(span.Start, span.End)
	if ctx := src.Context(span.Start, defaultContextLines); !ctx.IsEmpty() {
		b.WithContext(ctx.Format())
	}
	return b
}

const defaultContextLines = 1

func analyzerCode(kind analyzer.Kind) string {
	switch kind {
	case analyzer.KindUnresolvedType:
		return ErrQueryUnresolvedType
	case analyzer.KindDuplicateQuery:
		return ErrQueryDuplicateQuery
	case analyzer.KindDuplicateType:
		return ErrQueryDuplicateType
	case analyzer.KindDuplicateField:
		return ErrQueryDuplicateField
	case analyzer.KindUnusedParamField:
		return WarnUnusedParam
	case analyzer.KindUnusedType:
		return WarnUnusedType
	case analyzer.KindEmbeddedAnnotation:
		return WarnEmbeddedAnnotation
	case analyzer.KindPositionalPlaceholder:
		return ErrQueryPositional
	default:
		return ""
	}
}

func addSuggestions(d Diagnostic, label string) Diagnostic {
	switch d.Code {
	case ErrQueryUnterminated:
		d.Suggestions = append(d.Suggestions, Suggestion{Message: "Terminate the statement with ';'", Replacement: ";"})
	case ErrQueryParseError:
		switch label {
		case parser.LabelFieldList:
			d.Notes = append(d.Notes, "Field lists look like (a, b?, c[?]); '?' marks a nullable field and '[?]' nullable array elements")
		case parser.LabelQueryAnnotation:
			d.Notes = append(d.Notes, "Query headers look like '--! name (params) : Row' followed by a line break")
		case parser.LabelTypeAnnotation:
			d.Notes = append(d.Notes, "Type declarations look like '--: Name(a, b?)'")
		case parser.LabelModule:
			d.Notes = append(d.Notes, "Between statements only blank lines, '--' comments and '--:' or '--!' annotations are allowed")
			d.Suggestions = append(d.Suggestions, Suggestion{Message: "Did the previous statement end early at a ';' inside a literal?"})
		}
	case ErrQueryUnresolvedType:
		d.Suggestions = append(d.Suggestions, Suggestion{Message: "Declare the type with '--: Name(fields)' or fix the reference"})
		if d.Severity != SeverityError {
			d.Notes = append(d.Notes, "The reference resolves to an empty struct; enable strict_references to make this an error")
		}
	case ErrQueryDuplicateQuery, ErrQueryDuplicateType:
		d.Suggestions = append(d.Suggestions, Suggestion{Message: "Rename or remove one of the declarations"})
	case ErrQueryDuplicateField:
		d.Suggestions = append(d.Suggestions, Suggestion{Message: "Remove the repeated field"})
	case WarnUnusedParam:
		d.Notes = append(d.Notes, "Param fields annotate bind parameters written as :name in the query body")
	case ErrQueryPositional:
		d.Suggestions = append(d.Suggestions, Suggestion{Message: "Replace the placeholder with a named bind such as :id"})
	case WarnEmbeddedAnnotation:
		d.Suggestions = append(d.Suggestions, Suggestion{Message: "Terminate the statement with ';' before the next annotation", Replacement: ";"})
	}
	return d
}

// CreateConfigError creates a diagnostic for configuration errors.
func CreateConfigError(path string, line, column int, message string) Diagnostic {
	return Error(message).
		WithCode(ErrConfigInvalid).
		At(path, line, column).
		WithSource(SourceConfigLoader).
		Build()
}

// CreateConfigWarning creates a diagnostic for a configuration warning, such
// as an unknown key.
func CreateConfigWarning(path, message string) Diagnostic {
	return Warning(message).
		WithCode(WarnConfigUnknownKey).
		AtLocation(Location{Path: path}).
		WithSource(SourceConfigLoader).
		Build()
}

// terminalFormatter hides notes and related locations unless verbose.
func terminalFormatter(verbose, colorize bool) *Formatter {
	var formatter *Formatter
	if verbose {
		formatter = NewVerboseFormatter()
	} else {
		formatter = NewFormatter()
		formatter.ShowNotes = false
		formatter.ShowRelated = false
	}
	formatter.Colorize = colorize
	return formatter
}

// PrintToWriter prints formatted diagnostics to a writer.
func PrintToWriter(w io.Writer, c *Collection, verbose, colorize bool) error {
	if c.Len() == 0 {
		return nil
	}
	if err := terminalFormatter(verbose, colorize).WriteAll(w, c); err != nil {
		return fmt.Errorf("write diagnostics: %w", err)
	}
	return nil
}
