package diagnostics

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Source indexes the text of one file so byte offsets can be turned into
// line and column positions. Only '\n' ends a line; a trailing '\r' is kept
// out of the line text.
type Source struct {
	Path        string
	Text        string
	lineOffsets []int
}

// NewSource builds the line index for text.
func NewSource(path, text string) *Source {
	offsets := make([]int, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return &Source{Path: path, Text: text, lineOffsets: offsets}
}

// LineCount returns the number of lines, counting a final unterminated one.
func (s *Source) LineCount() int {
	return len(s.lineOffsets)
}

// Location converts a byte offset, clamped to the text, into a position.
func (s *Source) Location(offset int) Location {
	offset = max(0, min(offset, len(s.Text)))
	idx, found := slices.BinarySearch(s.lineOffsets, offset)
	if !found {
		idx--
	}
	start := s.lineOffsets[idx]
	return Location{
		Path:   s.Path,
		Line:   idx + 1,
		Column: utf8.RuneCountInString(s.Text[start:offset]) + 1,
		Offset: offset,
	}
}

// Span converts a byte range into a Span.
func (s *Source) Span(start, end int) Span {
	return Span{Start: s.Location(start), End: s.Location(end)}
}

// Line returns line n (1-based) without its terminator.
func (s *Source) Line(n int) string {
	if n < 1 || n > len(s.lineOffsets) {
		return ""
	}
	start := s.lineOffsets[n-1]
	end := len(s.Text)
	if n < len(s.lineOffsets) {
		end = s.lineOffsets[n] - 1
	}
	return strings.TrimSuffix(s.Text[start:end], "\r")
}

// Context extracts the lines around loc, contextLines before and after.
func (s *Source) Context(loc Location, contextLines int) Context {
	if loc.Line < 1 || loc.Line > s.LineCount() {
		return Context{}
	}
	startLine := max(1, loc.Line-contextLines)
	endLine := min(s.LineCount(), loc.Line+contextLines)

	lines := make([]string, 0, endLine-startLine+1)
	for i := startLine; i <= endLine; i++ {
		lines = append(lines, s.Line(i))
	}
	return Context{
		Lines:       lines,
		StartLine:   startLine,
		ErrorLine:   loc.Line,
		ErrorColumn: loc.Column,
	}
}

// Context represents extracted code context.
type Context struct {
	Lines       []string
	StartLine   int
	ErrorLine   int
	ErrorColumn int
}

// IsEmpty returns true if the context has no lines.
func (c Context) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Format formats the context for display with line numbers and a caret
// under the error column.
func (c Context) Format() string {
	if c.IsEmpty() {
		return ""
	}

	var b strings.Builder
	maxLineNum := c.StartLine + len(c.Lines) - 1
	lineNumWidth := len(fmt.Sprintf("%d", maxLineNum))

	for i, line := range c.Lines {
		lineNum := c.StartLine + i
		isErrorLine := lineNum == c.ErrorLine

		if isErrorLine {
			fmt.Fprintf(&b, "> %*d | ", lineNumWidth, lineNum)
		} else {
			fmt.Fprintf(&b, "  %*d | ", lineNumWidth, lineNum)
		}
		b.WriteString(line)
		b.WriteString("\n")

		if isErrorLine && c.ErrorColumn > 0 {
			b.WriteString(strings.Repeat(" ", lineNumWidth+2))
			b.WriteString(" | ")
			col := 1
			for _, r := range line {
				if col >= c.ErrorColumn {
					break
				}
				if r == '\t' {
					b.WriteByte('\t')
				} else {
					b.WriteByte(' ')
				}
				col++
			}
			b.WriteString("^\n")
		}
	}
	return b.String()
}

// String returns the context lines joined without decoration.
func (c Context) String() string {
	return strings.Join(c.Lines, "\n")
}
