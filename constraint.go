package composer

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Constraint is a predicate over versions. Range parsing itself lives
// outside this package, but every Requires/Conflicts/Replaces/Provides
// link carries one of these to decide which candidate versions satisfy it.
type Constraint interface {
	fmt.Stringer
	// Matches reports whether v satisfies the constraint.
	Matches(v *semver.Version) bool
}

// Any matches every version. It is used for bare `name` requirements with
// no version qualifier.
var Any Constraint = anyConstraint{}

type anyConstraint struct{}

func (anyConstraint) Matches(*semver.Version) bool { return true }
func (anyConstraint) String() string               { return "*" }

// NewConstraint parses a semver range expression (e.g. "^1.0", ">=2,<3")
// into a Constraint, delegating the actual grammar to Masterminds/semver.
func NewConstraint(expr string) (Constraint, error) {
	if expr == "" || expr == "*" {
		return Any, nil
	}
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("composer: invalid constraint %q: %w", expr, err)
	}
	return semverConstraint{expr: expr, c: c}, nil
}

// MustConstraint is NewConstraint but panics on a malformed expression; it
// exists for tests and for constructing fixed pools at init time.
func MustConstraint(expr string) Constraint {
	c, err := NewConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

type semverConstraint struct {
	expr string
	c    *semver.Constraints
}

func (sc semverConstraint) Matches(v *semver.Version) bool {
	if v == nil {
		return false
	}
	ok, _ := sc.c.Validate(v)
	return ok
}

func (sc semverConstraint) String() string { return sc.expr }

// ExactVersion is a Constraint that matches one, and only one, version -
// used when a job or alias pins an exact version rather than a range.
type ExactVersion struct {
	V *semver.Version
}

func (e ExactVersion) Matches(v *semver.Version) bool {
	return v != nil && e.V != nil && v.Equal(e.V)
}

func (e ExactVersion) String() string {
	if e.V == nil {
		return ""
	}
	return e.V.String()
}
