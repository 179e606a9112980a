package parser

import (
	"cmp"
	"fmt"
)

// Parsed pairs a value with the half-open byte range [Start, End) it was
// read from. Equality and ordering only look at Value; the span exists for
// diagnostics.
type Parsed[T comparable] struct {
	Start int
	End   int
	Value T
}

// Equal reports whether both values are equal, ignoring spans.
func (p Parsed[T]) Equal(other Parsed[T]) bool {
	return p.Value == other.Value
}

// Key returns the value for use as a map key.
func (p Parsed[T]) Key() T {
	return p.Value
}

func (p Parsed[T]) String() string {
	return fmt.Sprint(p.Value)
}

// Map applies fn to the value and keeps the original span.
func Map[T, U comparable](p Parsed[T], fn func(T) U) Parsed[U] {
	return Parsed[U]{Start: p.Start, End: p.End, Value: fn(p.Value)}
}

// Compare orders two parsed values by value only.
func Compare[T cmp.Ordered](a, b Parsed[T]) int {
	return cmp.Compare(a.Value, b.Value)
}
