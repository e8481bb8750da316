package composer

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Reason tags why a Rule exists: a closed set of tagged variants instead
// of a class hierarchy, so Problems rendering and transaction coalescing
// can switch on it directly.
type Reason uint8

const (
	ReasonInternalAllowUpdate Reason = iota
	ReasonJobInstall
	ReasonJobRemove
	ReasonPackageConflict
	ReasonPackageRequires
	ReasonPackageObsoletes
	ReasonInstalledPackageObsoletes
	ReasonPackageSameName
	ReasonPackageImplicitObsoletes
	ReasonLearned
	ReasonPackageAlias
)

func (r Reason) String() string {
	switch r {
	case ReasonInternalAllowUpdate:
		return "InternalAllowUpdate"
	case ReasonJobInstall:
		return "JobInstall"
	case ReasonJobRemove:
		return "JobRemove"
	case ReasonPackageConflict:
		return "PackageConflict"
	case ReasonPackageRequires:
		return "PackageRequires"
	case ReasonPackageObsoletes:
		return "PackageObsoletes"
	case ReasonInstalledPackageObsoletes:
		return "InstalledPackageObsoletes"
	case ReasonPackageSameName:
		return "PackageSameName"
	case ReasonPackageImplicitObsoletes:
		return "PackageImplicitObsoletes"
	case ReasonLearned:
		return "Learned"
	case ReasonPackageAlias:
		return "PackageAlias"
	default:
		return "Unknown"
	}
}

// RuleType is the bucket a RuleSet files a Rule under for iteration and
// diagnostics.
type RuleType uint8

const (
	TypePackage RuleType = iota
	TypeJob
	TypeLearned
)

// Rule is a disjunction of literals whose literal sequence, reason and job
// are fixed at construction. RuleSet assigns `id` on insertion and moves
// `watch` during propagation. The solver skips rules marked `disabled`;
// nothing in this package sets that flag.
type Rule struct {
	id         int
	literals   []Literal
	reason     Reason
	reasonData interface{} // *Link, *Package, or Literal, depending on reason
	job        *Job
	typ        RuleType
	disabled   bool
	hash       uint64

	// watch holds the two literals the solver's unit-propagation loop is
	// currently watching for this rule. Both entries equal literals[0] for
	// a unit rule, and are meaningless for the empty clause. RuleSet is the
	// only thing that moves them.
	watch [2]Literal
}

// newRule builds a Rule from an arbitrary literal slice: it copies, sorts
// and dedupes, producing the rule's normal form. The incoming slice may
// alias a Pool-owned cache (as WhatProvides' result does) and is never
// reordered in place. The id field is left zero; RuleSet.Add assigns it on
// insertion.
func newRule(lits []Literal, reason Reason, reasonData interface{}, job *Job, typ RuleType) *Rule {
	lits = sortLiterals(append([]Literal(nil), lits...))
	return &Rule{
		literals:   lits,
		reason:     reason,
		reasonData: reasonData,
		job:        job,
		typ:        typ,
		hash:       fingerprintLiterals(lits),
	}
}

func fingerprintLiterals(lits []Literal) uint64 {
	h := fnv.New64a()
	var buf strings.Builder
	for i, l := range lits {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(l)))
	}
	_, _ = h.Write([]byte(buf.String()))
	return h.Sum64()
}

// ID returns the id assigned by the owning RuleSet.
func (r *Rule) ID() int { return r.id }

// Literals returns the rule's sorted, deduplicated literal sequence.
// Callers must not mutate the returned slice.
func (r *Rule) Literals() []Literal { return r.literals }

// Reason returns the tag explaining why this rule exists.
func (r *Rule) Reason() Reason { return r.reason }

// ReasonData returns the reason-specific payload (a *Link for
// PackageRequires, the other *Package for PackageConflict,
// PackageObsoletes and InstalledPackageObsoletes, a Literal for
// PackageAlias; nil otherwise).
func (r *Rule) ReasonData() interface{} { return r.reasonData }

// Job returns the originating request job, if this rule came from one.
func (r *Rule) Job() *Job { return r.job }

// Type returns the RuleSet's classification bucket for this rule.
func (r *Rule) Type() RuleType { return r.typ }

// Disabled reports whether the solver has retired this rule.
func (r *Rule) Disabled() bool { return r.disabled }

// IsAssertion reports whether this is a unit clause.
func (r *Rule) IsAssertion() bool { return len(r.literals) == 1 }

// IsEmpty reports whether this is the distinguished empty clause, produced
// only when a job can never be satisfied.
func (r *Rule) IsEmpty() bool { return len(r.literals) == 0 }

// Equal reports whether two rules have identical literal sequences; reason
// and job are ignored.
func (r *Rule) Equal(other *Rule) bool {
	if r.hash != other.hash {
		return false
	}
	return literalsEqual(r.literals, other.literals)
}

func (r *Rule) String() string {
	if len(r.literals) == 0 {
		return "()"
	}
	parts := make([]string, len(r.literals))
	for i, l := range r.literals {
		parts[i] = strconv.Itoa(int(l))
	}
	return "(" + strings.Join(parts, " ∨ ") + ")"
}
