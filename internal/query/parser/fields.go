package parser

// NullableIdent is one entry of a field list. Nullable marks a trailing '?',
// InnerNullable a trailing "[?]" on an array field.
type NullableIdent struct {
	Name          Parsed[string]
	Nullable      bool
	InnerNullable bool
}

// fieldList parses "(a, b?, c[?])". The caller has checked for '('.
// A trailing comma and an empty list are both accepted.
func (s *scanner) fieldList() ([]NullableIdent, *Failure) {
	const label = LabelFieldList
	if !s.acceptByte('(') {
		f := s.fail(label, "'('")
		return nil, &f
	}
	fields := make([]NullableIdent, 0, 4)
	for {
		s.space()
		if s.acceptByte(')') {
			return fields, nil
		}
		name, ok := s.ident()
		if !ok {
			f := s.fail(label, "identifier", "')'")
			return nil, &f
		}
		field := NullableIdent{Name: name}
		field.Nullable = s.acceptByte('?')
		field.InnerNullable = s.accept("[?]")
		fields = append(fields, field)
		s.space()
		if s.acceptByte(',') {
			continue
		}
		if s.acceptByte(')') {
			return fields, nil
		}
		expected := make([]string, 0, 4)
		if !field.Nullable && !field.InnerNullable {
			expected = append(expected, "'?'")
		}
		if !field.InnerNullable {
			expected = append(expected, "'[?]'")
		}
		f := s.fail(label, append(expected, "','", "')'")...)
		return nil, &f
	}
}
