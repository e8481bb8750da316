package composer

import "sort"

// ID is a pool identifier: a monotonically increasing positive integer
// assigned to a package when it is registered with a Pool. ID 0 is
// reserved and never assigned.
type ID int32

// Literal is a signed package identifier. A positive value asserts that
// the package is part of the install set; a negative value asserts that
// it is not.
type Literal int32

// Lit builds the positive literal for id.
func Lit(id ID) Literal { return Literal(id) }

// Negate returns the complementary literal.
func (l Literal) Negate() Literal { return -l }

// Positive reports whether l asserts inclusion (as opposed to exclusion).
func (l Literal) Positive() bool { return l > 0 }

// ID returns the package id the literal refers to, regardless of polarity.
func (l Literal) ID() ID {
	if l < 0 {
		return ID(-l)
	}
	return ID(l)
}

// sortLiterals sorts a literal slice ascending by signed value and removes
// duplicates in place, returning the deduplicated slice. This is the
// normal form every Rule's literal sequence must satisfy. Callers that
// don't own lits must pass a copy, since this reorders in place.
func sortLiterals(lits []Literal) []Literal {
	if len(lits) < 2 {
		return lits
	}
	sort.Slice(lits, func(i, j int) bool { return lits[i] < lits[j] })
	out := lits[:1]
	for _, l := range lits[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}

// literalsEqual reports whether two already-normalized literal sequences
// are identical. Two rules are equal iff their literal sequences are
// identical - reason and job are ignored.
func literalsEqual(a, b []Literal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
