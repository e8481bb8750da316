package composer

// generateRules builds every requires/conflicts/alias/same-name/obsoletes/
// job rule, from the packages reachable from the request plus the
// installed baseline, and files them into s.rules. It returns a non-nil
// error only for ErrInvalidPool-class problems; an unsatisfiable request
// is represented as rules (including, possibly, the empty clause), not as
// an error here.
func (s *Solver) generateRules() error {
	reachable := s.reachablePackages()
	reachableSet := make(map[ID]bool, len(reachable))
	for _, p := range reachable {
		reachableSet[p.ID()] = true
	}

	for _, p := range reachable {
		s.requiresRules(p)
		s.conflictsRules(p)
		s.aliasRules(p)
	}

	s.sameNameRules(reachable)
	s.obsoletesRules(reachable)

	for i := range s.request.Jobs {
		s.jobRules(&s.request.Jobs[i])
	}

	s.keepInstalledRules(reachableSet)

	return nil
}

// keepInstalledRules pins the installed baseline in place. A package already
// installed stays a candidate for the solution unless something explicitly
// removes it: every installed package not named by a JobRemove gets an
// InternalAllowUpdate disjunction over itself plus its reachable update
// candidates, the same shape an explicit update job produces. Without this,
// an installed package nothing in the request mentions would be free for the
// search to drop at no cost, and "remove B" would silently cascade into
// dropping every package that required B instead of failing the job.
// RuleSet interning makes this redundant, not harmful, for names an
// explicit update/update-all job already covers.
func (s *Solver) keepInstalledRules(reachable map[ID]bool) {
	removed := make(map[string]bool)
	for _, job := range s.request.Jobs {
		if job.Kind == JobRemove {
			removed[job.PackageName] = true
		}
	}

	for _, p := range s.installedPackages() {
		if removed[p.Name] {
			continue
		}
		s.allowUpdateRule(p, nil, reachable)
	}
}

// reachablePackages returns every package the solver needs rules for: the
// installed baseline (always relevant, since remove/update jobs and
// same-name exclusion need it) plus the transitive Requires closure of
// every package any job's target name/constraint can resolve to (for an
// update-all job, every package providing an installed package's name).
// This bounds rule-generation cost without changing the solution a
// full-pool generation would find: a package outside the closure appears
// in no rule as a positive literal, so it is never decided true, and the
// search's fallback branch excludes it.
func (s *Solver) reachablePackages() []*Package {
	seen := make(map[ID]bool)
	var order []*Package
	var visit func(p *Package)
	visit = func(p *Package) {
		if seen[p.ID()] {
			return
		}
		seen[p.ID()] = true
		order = append(order, p)
		for _, link := range p.Requires {
			for _, lit := range s.pool.WhatProvides(link.Target, link.Constraint) {
				visit(s.pool.LiteralToPackage(lit))
			}
		}
		if p.Alias != nil {
			visit(p.Alias.Of)
		}
	}

	for _, p := range s.installedPackages() {
		visit(p)
	}
	for _, job := range s.request.Jobs {
		if job.Kind == JobUpdateAll {
			for _, p := range s.installedPackages() {
				for _, lit := range s.pool.WhatProvides(p.Name, Any) {
					visit(s.pool.LiteralToPackage(lit))
				}
			}
			continue
		}
		if job.PackageName == "" {
			continue
		}
		for _, lit := range s.pool.WhatProvides(job.PackageName, job.Constraint) {
			visit(s.pool.LiteralToPackage(lit))
		}
	}
	return order
}

func (s *Solver) installedPackages() []*Package {
	var out []*Package
	for _, p := range s.pool.Packages() {
		if isInstalled(p) {
			out = append(out, p)
		}
	}
	return out
}

// requiresRules emits, for each of p's Requires links, (-p ∨ q1 ∨ q2 ∨ …)
// where qi are the providers of that link; an empty provider list collapses
// to the forced exclusion (-p).
func (s *Solver) requiresRules(p *Package) {
	self := Lit(p.ID())
	for i := range p.Requires {
		link := &p.Requires[i]
		providers := s.pool.WhatProvides(link.Target, link.Constraint)

		lits := make([]Literal, 0, len(providers)+1)
		lits = append(lits, self.Negate())
		lits = append(lits, providers...)

		s.rules.Add(newRule(lits, ReasonPackageRequires, link, nil, TypePackage))
	}
}

// conflictsRules emits (-p ∨ -q) for every provider q of each of p's
// Conflicts links. Conflicts declared from either side collapse to the
// same interned rule.
func (s *Solver) conflictsRules(p *Package) {
	self := Lit(p.ID())
	for i := range p.Conflicts {
		link := &p.Conflicts[i]
		for _, q := range s.pool.WhatProvides(link.Target, link.Constraint) {
			if q.ID() == p.ID() {
				continue
			}
			qPkg := s.pool.LiteralToPackage(q)
			s.rules.Add(newRule([]Literal{self.Negate(), q.Negate()}, ReasonPackageConflict, qPkg, nil, TypePackage))
		}
	}
}

// aliasRules emits the pair of implications that force an alias package
// and its concrete target to be co-installed.
func (s *Solver) aliasRules(p *Package) {
	if p.Alias == nil {
		return
	}
	a := Lit(p.ID())
	c := Lit(p.Alias.Of.ID())
	s.rules.Add(newRule([]Literal{a.Negate(), c}, ReasonPackageAlias, c, nil, TypePackage))
	s.rules.Add(newRule([]Literal{c.Negate(), a}, ReasonPackageAlias, a, nil, TypePackage))
}

// sameNameRules groups packages by declared Name and emits a pairwise
// at-most-one encoding for every group with 2+ members.
func (s *Solver) sameNameRules(pkgs []*Package) {
	groups := make(map[string][]*Package)
	var names []string
	for _, p := range pkgs {
		if _, ok := groups[p.Name]; !ok {
			names = append(names, p.Name)
		}
		groups[p.Name] = append(groups[p.Name], p)
	}
	for _, name := range names {
		group := groups[name]
		if len(group) < 2 {
			continue
		}
		emitAtMostOne(s.rules, group, ReasonPackageSameName)
	}
}

// obsoletesRules emits explicit Replaces-driven Obsoletes rules, plus
// implicit pairwise exclusions for packages that provide the same target
// name under different underlying Names.
func (s *Solver) obsoletesRules(pkgs []*Package) {
	for _, p := range pkgs {
		self := Lit(p.ID())
		for i := range p.Replaces {
			link := &p.Replaces[i]
			for _, q := range s.pool.WhatProvides(link.Target, link.Constraint) {
				if q.ID() == p.ID() {
					continue
				}
				qPkg := s.pool.LiteralToPackage(q)
				reason := ReasonPackageObsoletes
				if isInstalled(qPkg) {
					reason = ReasonInstalledPackageObsoletes
				}
				s.rules.Add(newRule([]Literal{self.Negate(), q.Negate()}, reason, qPkg, nil, TypePackage))
			}
		}
	}

	byTarget := make(map[string][]*Package)
	var targets []string
	add := func(target string, p *Package) {
		if _, ok := byTarget[target]; !ok {
			targets = append(targets, target)
		}
		byTarget[target] = append(byTarget[target], p)
	}
	for _, p := range pkgs {
		add(p.Name, p)
		for _, link := range p.Provides {
			add(link.Target, p)
		}
		for _, link := range p.Replaces {
			add(link.Target, p)
		}
	}
	for _, target := range targets {
		group := byTarget[target]
		distinct := distinctNames(group)
		if len(distinct) < 2 {
			continue // already fully covered by sameNameRules
		}
		emitAtMostOne(s.rules, group, ReasonPackageImplicitObsoletes)
	}
}

func distinctNames(pkgs []*Package) map[string]bool {
	out := make(map[string]bool)
	for _, p := range pkgs {
		out[p.Name] = true
	}
	return out
}

func emitAtMostOne(rules *RuleSet, pkgs []*Package, reason Reason) {
	for i := 0; i < len(pkgs); i++ {
		for j := i + 1; j < len(pkgs); j++ {
			if pkgs[i].ID() == pkgs[j].ID() || aliasedPair(pkgs[i], pkgs[j]) {
				continue
			}
			a, b := Lit(pkgs[i].ID()), Lit(pkgs[j].ID())
			rules.Add(newRule([]Literal{a.Negate(), b.Negate()}, reason, nil, nil, TypePackage))
		}
	}
}

// aliasedPair reports whether one of a, b is an alias of the other.
// aliasRules already forces such a pair to share a truth value, so an
// at-most-one encoding between them would be directly unsatisfiable
// whenever the alias is installed.
func aliasedPair(a, b *Package) bool {
	return (a.Alias != nil && a.Alias.Of == b) || (b.Alias != nil && b.Alias.Of == a)
}

// jobRules emits the disjunction/unit rules a single request Job
// contributes.
func (s *Solver) jobRules(job *Job) {
	switch job.Kind {
	case JobInstall:
		providers := s.pool.WhatProvides(job.PackageName, job.Constraint)
		lits := append([]Literal(nil), providers...)
		s.rules.Add(newRule(lits, ReasonJobInstall, nil, job, TypeJob))

	case JobRemove:
		for _, q := range s.pool.WhatProvides(job.PackageName, Any) {
			s.rules.Add(newRule([]Literal{q.Negate()}, ReasonJobRemove, nil, job, TypeJob))
		}

	case JobUpdate:
		for _, p := range s.installedPackages() {
			if p.Name != job.PackageName {
				continue
			}
			s.allowUpdateRule(p, job, nil)
		}

	case JobUpdateAll:
		for _, p := range s.installedPackages() {
			s.allowUpdateRule(p, job, nil)
		}
	}
}

// allowUpdateRule builds (p ∨ cand1 ∨ cand2 ∨ …) over p's update candidates.
// When reachable is non-nil, candidates outside it are dropped: those
// packages never got requires/conflicts/same-name rules generated, so
// offering them here would let the search pick one without enforcing its own
// constraints.
func (s *Solver) allowUpdateRule(p *Package, job *Job, reachable map[ID]bool) {
	lits := []Literal{Lit(p.ID())}
	for _, cand := range s.policy.FindUpdatePackages(s.pool, s.decisions, p) {
		if reachable != nil && !reachable[cand.ID()] {
			continue
		}
		lits = append(lits, Lit(cand.ID()))
	}
	s.rules.Add(newRule(lits, ReasonInternalAllowUpdate, nil, job, TypeJob))
}
