package composer

import "sort"

// Options configures the default Policy's preference ordering.
type Options struct {
	// PreferInstalled ranks the currently-installed version of a package
	// ahead of any other candidate, the behavior an install-from-lock
	// solve wants.
	PreferInstalled bool
	// AllowDev permits Dev-stability packages to be preferred on equal
	// footing with stable ones; otherwise, after the installed-first and
	// repository-priority checks, stable candidates rank ahead of dev ones
	// regardless of version.
	AllowDev bool
}

// Policy is the pluggable preference oracle consulted whenever the solver
// has more than one undecided candidate for a disjunction. It must be
// deterministic and must never mutate pool, decisions, or its
// literal/package arguments.
type Policy interface {
	// SelectPreferred returns literals re-ordered best-candidate-first.
	SelectPreferred(pool *Pool, decisions *Decisions, literals []Literal) []Literal
	// FindUpdatePackages returns the packages that could replace pkg in an
	// update, ordered best-candidate-first.
	FindUpdatePackages(pool *Pool, decisions *Decisions, pkg *Package) []*Package
}

// DefaultPolicy implements a five-part comparator: installed-first (when
// enabled), repository priority, version, dev stability, alias-after-concrete,
// with pool id as the final tiebreak.
type DefaultPolicy struct {
	Options Options
}

// NewDefaultPolicy returns a DefaultPolicy configured by opts.
func NewDefaultPolicy(opts Options) *DefaultPolicy {
	return &DefaultPolicy{Options: opts}
}

func (p *DefaultPolicy) SelectPreferred(pool *Pool, decisions *Decisions, literals []Literal) []Literal {
	out := append([]Literal(nil), literals...)
	sort.SliceStable(out, func(i, j int) bool {
		return p.less(pool, out[i], out[j])
	})
	return out
}

func (p *DefaultPolicy) less(pool *Pool, a, b Literal) bool {
	pa, pb := pool.LiteralToPackage(a), pool.LiteralToPackage(b)

	if p.Options.PreferInstalled {
		ia, ib := isInstalled(pa), isInstalled(pb)
		if ia != ib {
			return ia
		}
	}

	prioA, prioB := repoPriority(pa), repoPriority(pb)
	if prioA != prioB {
		return prioA > prioB
	}

	// The dev-stability gate outranks version: a disallowed dev candidate
	// loses to a stable one even at a much lower version.
	if !p.Options.AllowDev {
		da, db := pa.Stability == Dev, pb.Stability == Dev
		if da != db {
			return !da
		}
	}

	if c := compareVersions(pa, pb); c != 0 {
		return c > 0
	}

	if pa.Stability != pb.Stability {
		return pa.Stability < pb.Stability
	}

	aliasA, aliasB := pa.IsAlias(), pb.IsAlias()
	if aliasA != aliasB {
		return !aliasA
	}

	return pa.ID() < pb.ID()
}

func (p *DefaultPolicy) FindUpdatePackages(pool *Pool, decisions *Decisions, pkg *Package) []*Package {
	lits := pool.WhatProvides(pkg.Name, Any)
	var cands []*Package
	for _, l := range lits {
		cand := pool.LiteralToPackage(l)
		if cand.ID() == pkg.ID() {
			continue
		}
		cands = append(cands, cand)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return p.less(pool, Lit(cands[i].ID()), Lit(cands[j].ID()))
	})
	return cands
}

func isInstalled(p *Package) bool {
	return p.Repository != nil && p.Repository.Installed
}

func repoPriority(p *Package) int {
	if p.Repository == nil {
		return 0
	}
	return p.Repository.Priority
}

// compareVersions returns -1, 0, 1 the way semver.Version.Compare does,
// treating a nil version (shouldn't happen for a well-formed Package) as
// lowest.
func compareVersions(a, b *Package) int {
	switch {
	case a.Version == nil && b.Version == nil:
		return 0
	case a.Version == nil:
		return -1
	case b.Version == nil:
		return 1
	default:
		return a.Version.Compare(b.Version)
	}
}
