package diagnostics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Formatter formats diagnostics for display.
type Formatter struct {
	// ShowContext controls whether to display code snippets.
	ShowContext bool
	// ShowSuggestions controls whether to display suggestions.
	ShowSuggestions bool
	// ShowNotes controls whether to display notes.
	ShowNotes bool
	// ShowRelated controls whether to display related information.
	ShowRelated bool
	// ShowSource controls whether to display the source component.
	ShowSource bool
	// ShowCode controls whether to display codes.
	ShowCode bool
	// ShowCodeDescription controls whether to display code descriptions.
	ShowCodeDescription bool
	// Colorize forces colour on regardless of terminal detection.
	Colorize bool
}

// NewFormatter creates a new formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowContext:     true,
		ShowSuggestions: true,
		ShowNotes:       true,
		ShowRelated:     true,
		ShowCode:        true,
	}
}

// NewVerboseFormatter creates a formatter with every section enabled.
func NewVerboseFormatter() *Formatter {
	return &Formatter{
		ShowContext:         true,
		ShowSuggestions:     true,
		ShowNotes:           true,
		ShowRelated:         true,
		ShowSource:          true,
		ShowCode:            true,
		ShowCodeDescription: true,
	}
}

// Format formats a single diagnostic as a string.
func (f *Formatter) Format(d Diagnostic) string {
	var b strings.Builder
	f.formatDiagnostic(&b, d)
	return b.String()
}

// FormatAll formats all diagnostics in a collection.
func (f *Formatter) FormatAll(c *Collection) string {
	var b strings.Builder
	for i, d := range c.All() {
		if i > 0 {
			b.WriteString("\n")
		}
		f.formatDiagnostic(&b, d)
	}
	return b.String()
}

// WriteAll writes all diagnostics in a collection to the writer.
func (f *Formatter) WriteAll(w io.Writer, c *Collection) error {
	_, err := fmt.Fprint(w, f.FormatAll(c))
	return err
}

// PrintSummary prints a one-line count of errors and warnings. Errors are
// broken down by the category of their code.
func (f *Formatter) PrintSummary(w io.Writer, c *Collection) {
	summary := c.Summary()
	if summary.Total == 0 {
		return
	}

	parts := make([]string, 0, 3)
	if summary.Errors > 0 {
		text := fmt.Sprintf("%d error(s)", summary.Errors)
		if detail := errorBreakdown(c.Categorize()); detail != "" {
			text += " (" + detail + ")"
		}
		parts = append(parts, f.paint(text, color.FgRed, color.Bold))
	}
	if summary.Warnings > 0 {
		parts = append(parts, f.paint(fmt.Sprintf("%d warning(s)", summary.Warnings), color.FgYellow))
	}
	if summary.Infos > 0 {
		parts = append(parts, f.paint(fmt.Sprintf("%d info(s)", summary.Infos), color.FgBlue))
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", strings.Join(parts, ", "))
}

func errorBreakdown(cs CategorizedSummary) string {
	var parts []string
	if n := len(cs.QueryErrors); n > 0 {
		parts = append(parts, fmt.Sprintf("%d in query files", n))
	}
	if n := len(cs.ConfigErrors); n > 0 {
		parts = append(parts, fmt.Sprintf("%d in configuration", n))
	}
	if n := len(cs.Uncategorized); n > 0 {
		parts = append(parts, fmt.Sprintf("%d other", n))
	}
	return strings.Join(parts, ", ")
}

func (f *Formatter) formatDiagnostic(b *strings.Builder, d Diagnostic) {
	switch {
	case d.HasLocation():
		location := fmt.Sprintf("%s:%d:%d", d.Location.Path, d.Location.Line, d.Location.Column)
		fmt.Fprintf(b, "%s: ", f.paint(location, color.FgCyan))
	case d.Location.Path != "":
		fmt.Fprintf(b, "%s: ", f.paint(d.Location.Path, color.FgCyan))
	}

	fmt.Fprintf(b, "%s: %s", f.paint(d.Severity.String(), f.severityAttrs(d.Severity)...), d.Message)

	if f.ShowCode && d.Code != "" {
		fmt.Fprintf(b, " %s", f.paint("["+d.Code+"]", color.FgMagenta))
		if f.ShowCodeDescription {
			if desc := CodeDescription(d.Code); desc != CodeDescription("") {
				fmt.Fprintf(b, " (%s)", desc)
			}
		}
	}
	if f.ShowSource && d.Source != "" {
		fmt.Fprintf(b, " (%s)", d.Source)
	}
	b.WriteString("\n")

	if f.ShowContext && d.Context != "" {
		for line := range strings.Lines(d.Context) {
			fmt.Fprintf(b, "  %s", f.paintCaret(line))
		}
	}
	if f.ShowSuggestions {
		for _, sugg := range d.Suggestions {
			fmt.Fprintf(b, "  %s %s\n", f.paint("help:", color.FgGreen), sugg.Message)
			if sugg.Replacement != "" {
				fmt.Fprintf(b, "    %s %s\n", f.paint("=>", color.FgGreen), sugg.Replacement)
			}
		}
	}
	if f.ShowNotes {
		for _, note := range d.Notes {
			fmt.Fprintf(b, "  %s %s\n", f.paint("note:", color.FgBlue), note)
		}
	}
	if f.ShowRelated {
		for _, rel := range d.Related {
			location := fmt.Sprintf("%s:%d:%d", rel.Location.Path, rel.Location.Line, rel.Location.Column)
			fmt.Fprintf(b, "  %s %s: %s\n", f.paint("related:", color.FgMagenta), f.paint(location, color.FgCyan), rel.Message)
		}
	}
}

// paintCaret colours the caret of a context line.
func (f *Formatter) paintCaret(line string) string {
	trimmed := strings.TrimRight(line, "\n")
	if strings.HasSuffix(trimmed, "^") && strings.TrimLeft(trimmed, " \t|") == "^" {
		return strings.TrimSuffix(trimmed, "^") + f.paint("^", color.FgRed, color.Bold) + "\n"
	}
	return trimmed + "\n"
}

func (f *Formatter) severityAttrs(s Severity) []color.Attribute {
	switch s {
	case SeverityError:
		return []color.Attribute{color.FgRed, color.Bold}
	case SeverityWarning:
		return []color.Attribute{color.FgYellow, color.Bold}
	default:
		return []color.Attribute{color.FgBlue}
	}
}

func (f *Formatter) paint(s string, attrs ...color.Attribute) string {
	if !f.Colorize {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// JSONFormatter formats diagnostics as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatCollection encodes an entire collection as a JSON array.
func (f JSONFormatter) FormatCollection(c *Collection) (string, error) {
	all := c.All()
	if all == nil {
		all = []Diagnostic{}
	}
	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(all, "", "  ")
	} else {
		data, err = json.Marshal(all)
	}
	if err != nil {
		return "", fmt.Errorf("encode diagnostics: %w", err)
	}
	return string(data), nil
}
