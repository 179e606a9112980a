package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type scanner struct {
	src string
	pos int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

func (s *scanner) accept(prefix string) bool {
	if !s.hasPrefix(prefix) {
		return false
	}
	s.pos += len(prefix)
	return true
}

func (s *scanner) acceptByte(c byte) bool {
	if s.eof() || s.peek() != c {
		return false
	}
	s.pos++
	return true
}

func (s *scanner) peekRune() (rune, int) {
	if s.eof() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s.src[s.pos:])
}

// fail builds a failure at the current position covering the next rune.
func (s *scanner) fail(label string, expected ...string) Failure {
	f := Failure{Start: s.pos, End: s.pos, Expected: expected, Label: label}
	if r, size := s.peekRune(); size > 0 {
		f.End = s.pos + size
		f.Found = string(r)
	}
	return f
}

func isIdentStart(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9') || c == '_'
}

func (s *scanner) ident() (Parsed[string], bool) {
	start := s.pos
	if !isIdentStart(s.peek()) {
		return Parsed[string]{}, false
	}
	s.pos++
	for !s.eof() && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	return Parsed[string]{Start: start, End: s.pos, Value: s.src[start:s.pos]}, true
}

// space skips horizontal whitespace. A carriage return counts as horizontal
// so that a CRLF terminator leaves only the line feed for ln.
func (s *scanner) space() {
	for !s.eof() {
		r, size := s.peekRune()
		if r == '\n' || !unicode.IsSpace(r) {
			return
		}
		s.pos += size
	}
}

func (s *scanner) ln() bool {
	return s.accept("\n") || s.accept("\r\n")
}

// blank skips whitespace and ordinary "--" comments. A "--" directly
// followed by ':' or '!' opens an annotation and is left in place.
func (s *scanner) blank() {
	for !s.eof() {
		if r, size := s.peekRune(); unicode.IsSpace(r) {
			s.pos += size
			continue
		}
		if !s.hasPrefix("--") {
			return
		}
		if next := s.peekAt(2); next == ':' || next == '!' {
			return
		}
		s.skipLine()
	}
}

func (s *scanner) skipLine() {
	if i := strings.IndexByte(s.src[s.pos:], '\n'); i >= 0 {
		s.pos += i
		return
	}
	s.pos = len(s.src)
}

// atDeclaration reports whether the current line, after leading horizontal
// whitespace, opens a type or query annotation.
func (s *scanner) atDeclaration() bool {
	save := s.pos
	s.space()
	ok := s.hasPrefix(typeMarker) || s.hasPrefix(queryMarker)
	s.pos = save
	return ok
}

// recover moves to the start of the next line that opens a declaration, or
// to the end of input.
func (s *scanner) recover() {
	for !s.eof() {
		s.skipLine()
		if s.eof() {
			return
		}
		s.pos++
		if s.atDeclaration() {
			return
		}
	}
}
