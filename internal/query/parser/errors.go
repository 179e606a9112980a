package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Failure is one grammar failure located by byte offsets into the file.
type Failure struct {
	Start    int
	End      int
	Expected []string
	// Found is the offending input; empty at end of input.
	Found string
	// Label names the construct being parsed, e.g. "field list".
	Label string
}

// Message renders the failure without its position.
func (f Failure) Message() string {
	var b strings.Builder
	if f.Found == "" {
		b.WriteString("unexpected end of input")
	} else {
		b.WriteString("unexpected ")
		b.WriteString(strconv.Quote(f.Found))
	}
	if f.Label != "" {
		fmt.Fprintf(&b, " while parsing %s", f.Label)
	}
	if len(f.Expected) > 0 {
		b.WriteString(", expected ")
		b.WriteString(joinExpected(f.Expected))
	}
	return b.String()
}

func joinExpected(items []string) string {
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " or " + items[len(items)-1]
	}
}

// Error aggregates every failure found in one file. A file either parses
// completely or yields an Error; no partial module accompanies it.
type Error struct {
	Path     string
	Failures []Failure
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "error while parsing queries [path: %q]:", e.Path)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %d..%d: %s", f.Start, f.End, f.Message())
	}
	return b.String()
}
