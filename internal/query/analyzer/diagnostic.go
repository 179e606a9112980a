package analyzer

// Diagnostic represents an issue found during analysis. Start and End are
// byte offsets into the analyzed file.
type Diagnostic struct {
	Path     string
	Start    int
	End      int
	Kind     Kind
	Message  string
	Severity Severity
	Related  []Related
}

// Related points at another location involved in a diagnostic, such as a
// first declaration.
type Related struct {
	Start   int
	End     int
	Message string
}

// Severity indicates the seriousness of a diagnostic.
type Severity int

const (
	// SeverityWarning indicates a potential issue that doesn't fail a check.
	SeverityWarning Severity = iota
	// SeverityError indicates an issue that fails a check.
	SeverityError
)

// Kind classifies a diagnostic.
type Kind int

const (
	KindUnresolvedType Kind = iota + 1
	KindDuplicateQuery
	KindDuplicateType
	KindDuplicateField
	KindUnusedParamField
	KindUnusedType
	KindEmbeddedAnnotation
	KindPositionalPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindUnresolvedType:
		return "unresolved-type"
	case KindDuplicateQuery:
		return "duplicate-query"
	case KindDuplicateType:
		return "duplicate-type"
	case KindDuplicateField:
		return "duplicate-field"
	case KindUnusedParamField:
		return "unused-param-field"
	case KindUnusedType:
		return "unused-type"
	case KindEmbeddedAnnotation:
		return "embedded-annotation"
	case KindPositionalPlaceholder:
		return "positional-placeholder"
	default:
		return "unknown"
	}
}
