package parser

const (
	typeMarker  = "--:"
	queryMarker = "--!"
)

// Labels attached to failures, naming the construct that was being parsed.
const (
	LabelModule          = "module"
	LabelTypeAnnotation  = "type annotation"
	LabelQueryAnnotation = "query annotation"
	LabelFieldList       = "field list"
	LabelQueryBody       = "query body"
)

// TypeAnnotation declares a named record type: "--: Name(a, b?, c[?])".
type TypeAnnotation struct {
	Name   Parsed[string]
	Fields []NullableIdent
}

// QueryDataStruct is the parameter or row shape of a query. It is either an
// ImplicitStruct declared inline or a NamedStruct referring to a
// TypeAnnotation of the same module.
type QueryDataStruct interface {
	// NameAndFields resolves the struct against the module's types. For an
	// implicit struct the name is derived from the query name and suffix.
	// For a named struct ok reports whether a type with that name exists;
	// when it does not, fields is empty.
	NameAndFields(types []TypeAnnotation, queryName Parsed[string], suffix string) (fields []NullableIdent, name Parsed[string], ok bool)
	isQueryDataStruct()
}

type ImplicitStruct struct {
	Fields []NullableIdent
}

type NamedStruct struct {
	Name Parsed[string]
}

func (ImplicitStruct) isQueryDataStruct() {}
func (NamedStruct) isQueryDataStruct()    {}

func (s ImplicitStruct) NameAndFields(_ []TypeAnnotation, queryName Parsed[string], suffix string) ([]NullableIdent, Parsed[string], bool) {
	name := Map(queryName, func(v string) string { return UpperCamel(v) + suffix })
	return s.Fields, name, true
}

func (s NamedStruct) NameAndFields(types []TypeAnnotation, _ Parsed[string], _ string) ([]NullableIdent, Parsed[string], bool) {
	typ, ok := LookupType(types, s.Name.Value)
	if !ok {
		return []NullableIdent{}, s.Name, false
	}
	return typ.Fields, s.Name, true
}

// LookupType returns the first type declared with the given name.
func LookupType(types []TypeAnnotation, name string) (TypeAnnotation, bool) {
	for _, typ := range types {
		if typ.Name.Value == name {
			return typ, true
		}
	}
	return TypeAnnotation{}, false
}

// QueryAnnotation is a query header: "--! name [param] [: row]". Omitted
// structs are empty ImplicitStructs.
type QueryAnnotation struct {
	Name  Parsed[string]
	Param QueryDataStruct
	Row   QueryDataStruct
}

func (s *scanner) typeAnnotation() (TypeAnnotation, *Failure) {
	if !s.accept(typeMarker) {
		f := s.fail(LabelTypeAnnotation, "'"+typeMarker+"'")
		return TypeAnnotation{}, &f
	}
	s.space()
	name, ok := s.ident()
	if !ok {
		f := s.fail(LabelTypeAnnotation, "type name")
		return TypeAnnotation{}, &f
	}
	s.space()
	if s.peek() != '(' {
		return TypeAnnotation{Name: name}, nil
	}
	fields, fail := s.fieldList()
	if fail != nil {
		return TypeAnnotation{}, fail
	}
	return TypeAnnotation{Name: name, Fields: fields}, nil
}

// dataStruct parses an optional field list or type reference. Once '(' is
// seen the field list is committed to and its failure reported.
func (s *scanner) dataStruct() (QueryDataStruct, bool, *Failure) {
	switch c := s.peek(); {
	case c == '(':
		fields, fail := s.fieldList()
		if fail != nil {
			return nil, false, fail
		}
		return ImplicitStruct{Fields: fields}, true, nil
	case isIdentStart(c):
		name, _ := s.ident()
		return NamedStruct{Name: name}, true, nil
	default:
		return nil, false, nil
	}
}

func (s *scanner) queryAnnotation() (QueryAnnotation, *Failure) {
	if !s.accept(queryMarker) {
		f := s.fail(LabelQueryAnnotation, "'"+queryMarker+"'")
		return QueryAnnotation{}, &f
	}
	s.space()
	name, ok := s.ident()
	if !ok {
		f := s.fail(LabelQueryAnnotation, "query name")
		return QueryAnnotation{}, &f
	}
	ann := QueryAnnotation{Name: name, Param: ImplicitStruct{}, Row: ImplicitStruct{}}
	s.space()
	param, hasParam, fail := s.dataStruct()
	if fail != nil {
		return QueryAnnotation{}, fail
	}
	if hasParam {
		ann.Param = param
	}
	s.space()
	if !s.acceptByte(':') {
		return ann, nil
	}
	s.space()
	row, hasRow, fail := s.dataStruct()
	if fail != nil {
		return QueryAnnotation{}, fail
	}
	if !hasRow {
		f := s.fail(LabelQueryAnnotation, "'('", "type name")
		return QueryAnnotation{}, &f
	}
	ann.Row = row
	return ann, nil
}
