package parser

// Query is a query annotation together with the statement that follows it.
type Query struct {
	Annotation QueryAnnotation
	SQL        QuerySQL
}

// Statement is a top-level declaration: a TypeAnnotation or a Query.
type Statement interface {
	isStatement()
}

func (TypeAnnotation) isStatement() {}
func (Query) isStatement()          {}

// ParsedModule holds the declarations of one file. Each slice keeps file
// order.
type ParsedModule struct {
	Types   []TypeAnnotation
	Queries []Query
}

// ParseModule parses a whole query file. On failure it returns a *Error
// listing every failure found; each failed declaration is skipped up to the
// next line opening an annotation so that later ones are still checked.
func ParseModule(path, text string) (ParsedModule, error) {
	stmts, failures := ParseStatements(text)
	if len(failures) > 0 {
		return ParsedModule{}, &Error{Path: path, Failures: failures}
	}
	return NewModule(stmts), nil
}

// ParseStatements returns the declarations that parsed and the failures of
// those that did not.
func ParseStatements(text string) ([]Statement, []Failure) {
	s := newScanner(text)
	stmts := make([]Statement, 0, 8)
	var failures []Failure
	for {
		s.blank()
		if s.eof() {
			return stmts, failures
		}
		stmt, fail := s.statement()
		if fail != nil {
			failures = append(failures, *fail)
			s.recover()
			continue
		}
		stmts = append(stmts, stmt)
	}
}

// NewModule partitions statements into types and queries.
func NewModule(stmts []Statement) ParsedModule {
	mod := ParsedModule{
		Types:   make([]TypeAnnotation, 0, len(stmts)),
		Queries: make([]Query, 0, len(stmts)),
	}
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case TypeAnnotation:
			mod.Types = append(mod.Types, st)
		case Query:
			mod.Queries = append(mod.Queries, st)
		}
	}
	return mod
}

func (s *scanner) statement() (Statement, *Failure) {
	switch {
	case s.hasPrefix(typeMarker):
		typ, fail := s.typeAnnotation()
		if fail != nil {
			return nil, fail
		}
		return typ, nil
	case s.hasPrefix(queryMarker):
		q, fail := s.query()
		if fail != nil {
			return nil, fail
		}
		return q, nil
	default:
		f := s.fail(LabelModule, "'"+typeMarker+"'", "'"+queryMarker+"'", "end of input")
		return nil, &f
	}
}

func (s *scanner) query() (Query, *Failure) {
	ann, fail := s.queryAnnotation()
	if fail != nil {
		return Query{}, fail
	}
	s.space()
	if !s.ln() {
		f := s.fail(LabelQueryAnnotation, "line break")
		return Query{}, &f
	}
	sql, fail := s.querySQL()
	if fail != nil {
		return Query{}, fail
	}
	return Query{Annotation: ann, SQL: sql}, nil
}
