package composer

// Decision is one entry on the decision stack: literal lit was forced or
// chosen true at decision level level, because of ruleID (or noCause if it
// was a branching guess with no antecedent clause).
type Decision struct {
	Literal Literal
	Level   int
	Cause   int // rule id, or noCause
}

// noCause marks a Decision made by branching rather than propagation.
const noCause = -1

// Decisions is the current partial assignment: which literals are decided
// true or false, at which level, by which rule.
//
// Internally, level 0 (used for pre-search assertions) has to be
// distinguishable from "undecided" in the signed DecisionMap, so the
// encoded level stored per id is the true level plus one; Level() undoes
// the offset. This is purely an implementation detail of the encoding -
// the levels Decide/RevertToLevel/Level expose and accept are the true,
// unshifted levels the rest of the solver reasons about.
type Decisions struct {
	stack   []Decision
	encoded map[ID]int // signed (level+1); positive=>true, negative=>false
	cause   map[ID]int
}

// NewDecisions returns an empty Decisions.
func NewDecisions() *Decisions {
	return &Decisions{
		encoded: make(map[ID]int),
		cause:   make(map[ID]int),
	}
}

// Decide records that lit is now true, at level, because of cause (or
// noCause for a branching guess). It panics if id is already decided,
// since that is always a solver bug, never bad input.
func (d *Decisions) Decide(lit Literal, level int, cause int) {
	id := lit.ID()
	if enc, ok := d.encoded[id]; ok && enc != 0 {
		panic("composer: literal decided twice without an intervening revert")
	}
	enc := level + 1
	if !lit.Positive() {
		enc = -enc
	}
	d.encoded[id] = enc
	d.cause[id] = cause
	d.stack = append(d.stack, Decision{Literal: lit, Level: level, Cause: cause})
}

// RevertToLevel pops every decision with Level > target, restoring the
// DecisionMap to a state consistent with the remaining stack.
func (d *Decisions) RevertToLevel(target int) {
	i := len(d.stack)
	for i > 0 && d.stack[i-1].Level > target {
		i--
		id := d.stack[i].Literal.ID()
		delete(d.encoded, id)
		delete(d.cause, id)
	}
	d.stack = d.stack[:i]
}

// Satisfied reports whether lit is currently true under the assignment.
func (d *Decisions) Satisfied(lit Literal) bool {
	enc, ok := d.encoded[lit.ID()]
	if !ok || enc == 0 {
		return false
	}
	return (enc > 0) == lit.Positive()
}

// Conflicting reports whether lit is currently false under the assignment
// (i.e. its negation is satisfied).
func (d *Decisions) Conflicting(lit Literal) bool {
	enc, ok := d.encoded[lit.ID()]
	if !ok || enc == 0 {
		return false
	}
	return (enc > 0) != lit.Positive()
}

// Undecided reports whether lit's id has no assignment yet.
func (d *Decisions) Undecided(lit Literal) bool {
	enc, ok := d.encoded[lit.ID()]
	return !ok || enc == 0
}

// Level returns the decision level of lit's id if it is decided (in
// either polarity); the second return is false if undecided.
func (d *Decisions) Level(lit Literal) (int, bool) {
	enc, ok := d.encoded[lit.ID()]
	if !ok || enc == 0 {
		return 0, false
	}
	if enc > 0 {
		return enc - 1, true
	}
	return -enc - 1, true
}

// Cause returns the rule id that forced lit's id, if any.
func (d *Decisions) Cause(lit Literal) (int, bool) {
	c, ok := d.cause[lit.ID()]
	return c, ok
}

// CurrentLevel returns the level of the most recent decision, or 0 if
// nothing has been decided yet.
func (d *Decisions) CurrentLevel() int {
	if len(d.stack) == 0 {
		return 0
	}
	return d.stack[len(d.stack)-1].Level
}

// Stack returns the decision stack, oldest first. Callers must not mutate
// the returned slice.
func (d *Decisions) Stack() []Decision { return d.stack }

// Complete reports whether every id in [1, n] has been decided.
func (d *Decisions) Complete(n int) bool {
	for id := 1; id <= n; id++ {
		if enc := d.encoded[ID(id)]; enc == 0 {
			return false
		}
	}
	return true
}
