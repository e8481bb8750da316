package composer

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Solver runs rule generation and a CDCL search over a frozen Pool, a
// Request, and a Policy. A Solver is built fresh for each solve; it is not
// reusable across calls to Solve (the RuleSet and Decisions it owns
// accumulate state during the search).
type Solver struct {
	pool     *Pool
	request  *Request
	policy   Policy
	renderer Renderer

	rules     *RuleSet
	decisions *Decisions
	stats     Stats
	trace     *trace

	// propagateIdx is how far into the decision stack unit propagation has
	// already scanned for watchers to wake. It never rewinds below the
	// stack length left after a backtrack, since everything still on the
	// trail was already scanned in an earlier round.
	propagateIdx int
}

// New builds a Solver over pool for request, using policy to break ties
// during branching and update-candidate selection. A nil logger falls back
// to logrus's standard logger.
func New(pool *Pool, request *Request, policy Policy, logger *logrus.Logger) *Solver {
	if policy == nil {
		policy = NewDefaultPolicy(Options{})
	}
	return &Solver{
		pool:      pool,
		request:   request,
		policy:    policy,
		renderer:  NewRenderer(pool),
		rules:     NewRuleSet(),
		decisions: NewDecisions(),
		trace:     newTrace(logger),
	}
}

// Solve runs rule generation followed by the CDCL search loop and returns
// the resulting Transaction, or an error: an *UnsatisfiableError wrapping
// ErrUnsatisfiable if no assignment satisfies every rule, or ErrCancelled
// if ctx is done before the solve finishes. It does not attempt to return
// a partial result on cancellation.
func (s *Solver) Solve(ctx context.Context) (*Transaction, error) {
	if err := s.generateRules(); err != nil {
		return nil, err
	}

	if empty := s.emptyClause(); empty != nil {
		return nil, s.unsatisfiable([]*Rule{empty})
	}

	if conflict := s.assertUnits(); conflict != nil {
		implicated := []*Rule{conflict}
		if cause, ok := s.decisions.Cause(conflict.literals[0]); ok && cause >= 0 {
			implicated = append(implicated, s.rules.Get(cause))
		}
		return nil, s.unsatisfiable(implicated)
	}
	if conflict := s.propagate(ctx, 0); conflict != nil {
		return nil, s.unsatisfiable([]*Rule{conflict})
	}

	level := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(ErrCancelled, err.Error())
		}

		if s.decisions.Complete(s.pool.Len()) {
			s.trace.done(true, s.stats.Attempts)
			return s.buildTransaction(), nil
		}

		lit, ok := s.branch()
		if !ok {
			// Complete() already reported the assignment incomplete, so
			// branch() finding nothing undecided is a contradiction between
			// the two - an implementation bug, never bad input.
			panic("composer: branch found nothing undecided on an incomplete assignment")
		}

		level++
		s.decisions.Decide(lit, level, noCause)
		s.trace.decided(lit, level, noCause)

		conflict := s.propagate(ctx, level)
		for conflict != nil {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(ErrCancelled, err.Error())
			}

			s.stats.Attempts++
			s.trace.conflict(conflict.ID())

			learned, backtrackLevel, uip, touched, ok := s.analyzeConflict(conflict, level)
			if !ok {
				return nil, s.unsatisfiable(touched)
			}

			rule, _ := s.rules.Add(learned)
			s.stats.Backtracks++
			s.trace.learned(rule.ID(), backtrackLevel)

			s.decisions.RevertToLevel(backtrackLevel)
			s.propagateIdx = len(s.decisions.Stack())
			level = backtrackLevel

			s.decisions.Decide(uip, level, rule.id)
			s.trace.decided(uip, level, rule.id)

			conflict = s.propagate(ctx, level)
		}
	}
}

// emptyClause returns the first empty clause generation produced, if any -
// a job whose target has no possible provider at all.
func (s *Solver) emptyClause() *Rule {
	for _, r := range s.rules.All() {
		if r.IsEmpty() {
			return r
		}
	}
	return nil
}

// assertUnits applies every unit (single-literal) rule at decision level 0,
// the pre-search assertions the rest of the search builds on. It returns
// the first rule that contradicts an already-asserted literal, or nil if
// all unit rules were applied cleanly.
func (s *Solver) assertUnits() *Rule {
	for _, r := range s.rules.All() {
		if r.disabled || !r.IsAssertion() {
			continue
		}
		lit := r.literals[0]
		switch {
		case s.decisions.Satisfied(lit):
			continue
		case s.decisions.Conflicting(lit):
			return r
		default:
			s.decisions.Decide(lit, 0, r.id)
			s.trace.decided(lit, 0, r.id)
		}
	}
	return nil
}

// propagate drains the decision stack from propagateIdx onward: for every
// literal that just became true (so its negation just became false), it
// wakes the rules watching that negation and looks for a new non-false
// literal to watch, or forces/declares a conflict when none exists.
func (s *Solver) propagate(ctx context.Context, level int) *Rule {
	for s.propagateIdx < len(s.decisions.Stack()) {
		if err := ctx.Err(); err != nil {
			return nil // caller re-checks ctx.Err() and turns this into ErrCancelled
		}

		dec := s.decisions.Stack()[s.propagateIdx]
		s.propagateIdx++
		falseLit := dec.Literal.Negate()

		// Copy: propagateRule may mutate the watcher list for falseLit via
		// moveWatch, and we must not iterate a slice being spliced under us.
		watchers := append([]*Rule(nil), s.rules.WatchersOf(falseLit)...)
		for _, r := range watchers {
			if r.disabled {
				continue
			}
			if conflict := s.propagateRule(r, falseLit, level); conflict != nil {
				return conflict
			}
		}
	}
	return nil
}

// propagateRule re-examines one rule after one of its watched literals
// (falseLit) just became false. It returns a non-nil conflict rule only
// when the rule can no longer be satisfied by any assignment consistent
// with the current trail.
func (s *Solver) propagateRule(r *Rule, falseLit Literal, level int) *Rule {
	if len(r.literals) < 2 {
		// A unit clause's only literal just went false: unresolvable.
		if s.decisions.Conflicting(r.literals[0]) {
			return r
		}
		return nil
	}

	other := otherWatch(r, falseLit)
	if s.decisions.Satisfied(other) {
		return nil // already satisfied through the other watch
	}

	for _, lit := range r.literals {
		if lit == falseLit || lit == other {
			continue
		}
		if !s.decisions.Conflicting(lit) {
			s.rules.moveWatch(r, falseLit, lit)
			return nil
		}
	}

	// No alternative watch: other is the rule's last hope.
	if s.decisions.Undecided(other) {
		s.decisions.Decide(other, level, r.id)
		s.trace.decided(other, level, r.id)
		return nil
	}
	return r // other is also false: conflict
}

// branch consults the Policy for the highest-ranked undecided literal among
// the still-open job/update disjunctions. When no job/update rule remains
// open but the assignment is still incomplete, it closes out the lowest
// remaining undecided id as excluded - nothing requires it, so the default
// is to leave it out of the install set.
func (s *Solver) branch() (Literal, bool) {
	var open []Literal
	for _, r := range s.rules.ByType(TypeJob) {
		if r.disabled || r.IsEmpty() || s.ruleSatisfied(r) {
			continue
		}
		for _, lit := range r.literals {
			if s.decisions.Undecided(lit) {
				open = append(open, lit)
			}
		}
	}
	if len(open) > 0 {
		ranked := s.policy.SelectPreferred(s.pool, s.decisions, open)
		return ranked[0], true
	}

	for id := ID(1); id <= ID(s.pool.Len()); id++ {
		lit := Lit(id)
		if s.decisions.Undecided(lit) {
			return lit.Negate(), true
		}
	}
	return 0, false
}

func (s *Solver) ruleSatisfied(r *Rule) bool {
	for _, lit := range r.literals {
		if s.decisions.Satisfied(lit) {
			return true
		}
	}
	return false
}

// analyzeConflict performs 1-UIP resolution: starting from the falsified
// conflict clause, it resolves backward along
// the trail against each literal's antecedent rule until exactly one
// literal of the current decision level remains, the Unique Implication
// Point. It returns the learned clause, the level to backtrack to (the
// highest level among the clause's other literals, i.e. the second-highest
// in the clause, or 0 if it is a unit), the UIP literal to assert at that level, and every rule the
// resolution touched (for Problems on the ok=false/empty-clause case).
func (s *Solver) analyzeConflict(conflict *Rule, level int) (learned *Rule, backtrackLevel int, uip Literal, touched []*Rule, ok bool) {
	seen := make(map[ID]bool)
	var tail []Literal
	counter := 0

	trail := s.decisions.Stack()
	trailIdx := len(trail)

	reason := conflict
	touched = append(touched, conflict)
	var pivot Literal
	first := true

	for {
		for _, lit := range reason.Literals() {
			if !first && lit == pivot {
				continue
			}
			id := lit.ID()
			if seen[id] {
				continue
			}
			lvl, known := s.decisions.Level(lit)
			if !known || lvl == 0 {
				continue // level-0 facts are permanent; omit from the clause
			}
			seen[id] = true
			if lvl == level {
				counter++
			} else {
				tail = append(tail, lit)
			}
		}
		first = false

		for {
			trailIdx--
			if trailIdx < 0 {
				return nil, 0, 0, touched, false
			}
			if seen[trail[trailIdx].Literal.ID()] {
				break
			}
		}
		pivot = trail[trailIdx].Literal
		seen[pivot.ID()] = false
		counter--
		if counter == 0 {
			break
		}

		cause, hasCause := s.decisions.Cause(pivot)
		if !hasCause || cause < 0 {
			return nil, 0, 0, touched, false
		}
		reason = s.rules.Get(cause)
		touched = append(touched, reason)
	}

	uip = pivot.Negate()
	learnedLits := append([]Literal{uip}, tail...)

	for _, lit := range tail {
		if lvl, _ := s.decisions.Level(lit); lvl > backtrackLevel {
			backtrackLevel = lvl
		}
	}

	return newRule(learnedLits, ReasonLearned, nil, nil, TypeLearned), backtrackLevel, uip, touched, true
}

// unsatisfiable wraps implicated (the rules conflict analysis or
// generation blamed) into a Problems tree and returns it as an
// *UnsatisfiableError.
func (s *Solver) unsatisfiable(implicated []*Rule) error {
	s.trace.done(false, s.stats.Attempts)
	return &UnsatisfiableError{Problems: buildProblems(s.renderer, implicated)}
}

// Fingerprint hashes the solver's inputs - the Pool's package set, the
// Request's jobs, and, for the default Policy, its Options - so a caller
// can skip re-solving an identical request against an unchanged Pool. Two
// Solvers built from inputs that compare equal this way are not
// guaranteed to exist; this is purely a cache key, not an identity.
func (s *Solver) Fingerprint() []byte {
	h := sha256.New()
	for _, p := range s.pool.Packages() {
		fmt.Fprintf(h, "%s|%s|%d\n", p.Name, p.String(), p.ID())
	}
	for _, job := range s.request.Jobs {
		c := ""
		if job.Constraint != nil {
			c = job.Constraint.String()
		}
		fmt.Fprintf(h, "job|%s|%s|%s\n", job.Kind, job.PackageName, c)
	}
	if dp, ok := s.policy.(*DefaultPolicy); ok {
		var buf [2]byte
		if dp.Options.PreferInstalled {
			buf[0] = 1
		}
		if dp.Options.AllowDev {
			buf[1] = 1
		}
		h.Write(buf[:])
	}
	return h.Sum(nil)
}
