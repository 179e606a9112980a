package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// UpperCamel converts get_user_by_id, getUserByID and "get user" alike into
// GetUserById. Every segment is lowercased before its first letter is raised.
func UpperCamel(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, seg := range splitSegments(raw) {
		lower := strings.ToLower(seg)
		r, size := utf8.DecodeRuneInString(lower)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(lower[size:])
	}
	return b.String()
}

func splitSegments(raw string) []string {
	parts := make([]string, 0, 4)
	var buf strings.Builder
	runes := []rune(raw)
	flush := func() {
		if buf.Len() > 0 {
			parts = append(parts, buf.String())
			buf.Reset()
		}
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			var next rune
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(prev) && unicode.IsLower(next):
				flush()
			}
		}
		buf.WriteRune(r)
	}
	flush()
	return parts
}
