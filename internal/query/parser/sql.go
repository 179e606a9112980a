package parser

import (
	"slices"
	"strconv"
	"strings"
)

// QuerySQL is a statement body with every ":name" bind rewritten to "$N".
// N is the 1-based position of name in the sorted, deduplicated bind names.
// BindParams keeps every original occurrence in order, duplicates included,
// with spans into the file. Positional lists "$N" placeholders already present
// outside quotes; they are left as written.
type QuerySQL struct {
	SQL        string
	BindParams []Parsed[string]
	Positional []Parsed[string]
}

// BindNames returns the distinct bind names in placeholder order: the name
// at index i is written as $(i+1).
func (q QuerySQL) BindNames() []string {
	return canonicalNames(q.BindParams)
}

// querySQL consumes text up to and including the first ';'. The terminator
// is found without regard to quoting.
func (s *scanner) querySQL() (QuerySQL, *Failure) {
	start := s.pos
	n := strings.IndexByte(s.src[start:], ';')
	if n < 0 {
		s.pos = len(s.src)
		return QuerySQL{}, &Failure{
			Start:    start,
			End:      len(s.src),
			Expected: []string{"';'"},
			Label:    LabelQueryBody,
		}
	}
	body := s.src[start : start+n]
	s.pos = start + n + 1
	binds, positional := scanBinds(body, start)
	return QuerySQL{SQL: rewriteBinds(body, start, binds), BindParams: binds, Positional: positional}, nil
}

// scanBinds finds every ":ident" outside a quoted construct. offset is the
// position of body in the file. "::" is a cast, and a ':' directly after a
// bind does not open another one. "$N" placeholders are returned separately.
func scanBinds(body string, offset int) (binds, positional []Parsed[string]) {
	binds = make([]Parsed[string], 0, 4)
	lastEnd := -1
	i := 0
	for i < len(body) {
		c := body[i]
		switch {
		case c == '"':
			i = skipQuoted(body, i+1, '"')
		case c == '\'':
			i = skipQuoted(body, i+1, '\'')
		case (c == 'e' || c == 'E') && i+1 < len(body) && body[i+1] == '\'':
			i = skipEscaped(body, i+2)
		case c == '$' && i+1 < len(body) && isDigit(body[i+1]):
			j := i + 2
			for j < len(body) && isDigit(body[j]) {
				j++
			}
			positional = append(positional, Parsed[string]{Start: offset + i, End: offset + j, Value: body[i:j]})
			i = j
		case c == '$':
			i = skipDollar(body, i)
		case c == ':' && i+1 < len(body) && body[i+1] == ':':
			i += 2
		case c == ':' && i != lastEnd && i+1 < len(body) && isIdentStart(body[i+1]):
			j := i + 2
			for j < len(body) && isIdentPart(body[j]) {
				j++
			}
			binds = append(binds, Parsed[string]{Start: offset + i + 1, End: offset + j, Value: body[i+1 : j]})
			lastEnd = j
			i = j
		default:
			i++
		}
	}
	return binds, positional
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// skipQuoted returns the position after the closing quote. An unterminated
// literal runs to the end of the body.
func skipQuoted(body string, i int, quote byte) int {
	n := strings.IndexByte(body[i:], quote)
	if n < 0 {
		return len(body)
	}
	return i + n + 1
}

// skipEscaped skips the interior of E'...', where a backslash-escaped or
// doubled quote does not close the literal.
func skipEscaped(body string, i int) int {
	for i < len(body) {
		switch {
		case strings.HasPrefix(body[i:], `\'`), strings.HasPrefix(body[i:], "''"):
			i += 2
		case body[i] == '\'':
			return i + 1
		default:
			i++
		}
	}
	return len(body)
}

// skipDollar skips $tag$...$tag$ with an exact tag match. A '$' that does not
// open a terminated dollar quote is ordinary text.
func skipDollar(body string, i int) int {
	n := strings.IndexByte(body[i+1:], '$')
	if n < 0 {
		return i + 1
	}
	tag := body[i : i+n+2]
	rest := i + len(tag)
	m := strings.Index(body[rest:], tag)
	if m < 0 {
		return i + 1
	}
	return rest + m + len(tag)
}

func canonicalNames(binds []Parsed[string]) []string {
	names := make([]string, len(binds))
	for i, b := range binds {
		names[i] = b.Value
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// rewriteBinds replaces each ":name" with its placeholder, rightmost first so
// the spans to the left stay valid.
func rewriteBinds(body string, offset int, binds []Parsed[string]) string {
	if len(binds) == 0 {
		return body
	}
	names := canonicalNames(binds)
	out := []byte(body)
	for _, b := range slices.Backward(binds) {
		idx, _ := slices.BinarySearch(names, b.Value)
		start := b.Start - offset - 1
		end := b.End - offset
		out = slices.Replace(out, start, end, []byte("$"+strconv.Itoa(idx+1))...)
	}
	return string(out)
}
