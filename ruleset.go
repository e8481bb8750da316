package composer

// RuleSet is the indexed container of every rule generated for a solve:
// an insertion-ordered list for iteration and diagnostics, a hash-bucketed
// index for dedup, and a watched-literal index the unit-propagation loop
// consults.
type RuleSet struct {
	rules    []*Rule
	byHash   map[uint64][]*Rule
	byType   map[RuleType][]*Rule
	watchers map[Literal][]*Rule
}

// NewRuleSet returns an empty RuleSet.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		byHash:   make(map[uint64][]*Rule),
		byType:   make(map[RuleType][]*Rule),
		watchers: make(map[Literal][]*Rule),
	}
}

// Add interns r: if an equal rule (equality compares the literal sequence
// only) is already present, the existing rule is returned and added is
// false. Otherwise r is assigned the next id, filed under its type, and -
// if it has two or more literals - has its first two literals registered
// as its initial watched pair.
func (rs *RuleSet) Add(r *Rule) (rule *Rule, added bool) {
	for _, cand := range rs.byHash[r.hash] {
		if cand.Equal(r) {
			return cand, false
		}
	}

	r.id = len(rs.rules)
	rs.rules = append(rs.rules, r)
	rs.byHash[r.hash] = append(rs.byHash[r.hash], r)
	rs.byType[r.typ] = append(rs.byType[r.typ], r)

	switch len(r.literals) {
	case 0:
		// the empty clause: nothing to watch, solver treats it specially.
	case 1:
		rs.watch(r, r.literals[0])
		r.watch = [2]Literal{r.literals[0], r.literals[0]}
	default:
		rs.watch(r, r.literals[0])
		rs.watch(r, r.literals[1])
		r.watch = [2]Literal{r.literals[0], r.literals[1]}
	}
	return r, true
}

func (rs *RuleSet) watch(r *Rule, lit Literal) {
	rs.watchers[lit] = append(rs.watchers[lit], r)
}

// unwatch removes r from the watch list of lit. Used when a new watch
// target is found for r during propagation.
func (rs *RuleSet) unwatch(r *Rule, lit Literal) {
	list := rs.watchers[lit]
	for i, cand := range list {
		if cand == r {
			rs.watchers[lit] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// moveWatch transfers r's watch from old to replacement.
func (rs *RuleSet) moveWatch(r *Rule, old, replacement Literal) {
	rs.unwatch(r, old)
	rs.watch(r, replacement)
	if r.watch[0] == old {
		r.watch[0] = replacement
	} else {
		r.watch[1] = replacement
	}
}

// otherWatch returns whichever of r's two watched literals is not lit. The
// caller must only ask this for a rule that actually watches lit.
func otherWatch(r *Rule, lit Literal) Literal {
	if r.watch[0] == lit {
		return r.watch[1]
	}
	return r.watch[0]
}

// WatchersOf returns every rule currently watching lit. The slice is
// owned by the RuleSet; callers must not retain or mutate it across a
// subsequent moveWatch call for the same literal.
func (rs *RuleSet) WatchersOf(lit Literal) []*Rule { return rs.watchers[lit] }

// All returns every rule in insertion order.
func (rs *RuleSet) All() []*Rule { return rs.rules }

// ByType returns every rule filed under t, in insertion order.
func (rs *RuleSet) ByType(t RuleType) []*Rule { return rs.byType[t] }

// Len returns the number of distinct rules held.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Get returns the rule with the given id.
func (rs *RuleSet) Get(id int) *Rule { return rs.rules[id] }
