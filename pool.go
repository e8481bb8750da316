package composer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/armon/go-radix"
)

// Pool is the canonical, append-only registry of every candidate package
// across every repository supplied to a Builder. Once Build returns, the
// Pool is frozen: whatProvides is deterministic and safe to call
// concurrently from independent Solvers.
type Pool struct {
	packages []*Package // index 0 is a sentinel; id i lives at packages[i]
	byName   *radix.Tree

	mu    sync.Mutex // guards cache
	cache map[whatProvidesKey][]Literal
}

type whatProvidesKey struct {
	name string
	fp   string // constraint fingerprint: its String() form
}

// Builder accumulates repositories and their packages prior to a single
// Build call. It is not safe for concurrent use; build the whole Pool on
// one goroutine, then share the result freely.
type Builder struct {
	repos []*reposPackages
}

type reposPackages struct {
	repo *Repository
	pkgs []*Package
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddRepository registers a batch of packages under repo. Repositories
// with higher Priority come first in whatProvides ordering and are
// preferred by the default Policy; among repositories of equal Priority,
// whatProvides keeps the order AddRepository was called in.
func (b *Builder) AddRepository(repo *Repository, pkgs ...*Package) *Builder {
	for _, p := range pkgs {
		p.Repository = repo
	}
	b.repos = append(b.repos, &reposPackages{repo: repo, pkgs: pkgs})
	return b
}

// Build assigns dense, stable ids (starting at 1) to every package across
// every repository, indexes names/provides/replaces into a radix tree, and
// returns the frozen Pool. Repositories are visited in descending
// Priority, ties broken by the order AddRepository was called.
func (b *Builder) Build() *Pool {
	repos := append([]*reposPackages(nil), b.repos...)
	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].repo.Priority > repos[j].repo.Priority
	})

	p := &Pool{
		packages: make([]*Package, 1, 1), // placeholder for id 0
		byName:   radix.New(),
		cache:    make(map[whatProvidesKey][]Literal),
	}

	for _, rp := range repos {
		for _, pkg := range rp.pkgs {
			p.add(pkg)
		}
	}
	return p
}

func (p *Pool) add(pkg *Package) ID {
	id := ID(len(p.packages))
	pkg.id = id
	p.packages = append(p.packages, pkg)

	p.index(pkg.Name, id)
	for _, link := range pkg.Provides {
		p.index(link.Target, id)
	}
	for _, link := range pkg.Replaces {
		p.index(link.Target, id)
	}
	return id
}

func (p *Pool) index(name string, id ID) {
	var ids []ID
	if v, ok := p.byName.Get(name); ok {
		ids = v.([]ID)
	}
	p.byName.Insert(name, append(ids, id))
}

// Len returns the number of packages registered (ids 1..Len are valid).
func (p *Pool) Len() int { return len(p.packages) - 1 }

// LiteralToPackage resolves a literal to the Package it refers to,
// ignoring polarity. It panics if the literal's id is out of range, since
// that indicates a broken invariant rather than bad user input.
func (p *Pool) LiteralToPackage(l Literal) *Package {
	id := int(l.ID())
	if id <= 0 || id >= len(p.packages) {
		panic(fmt.Sprintf("composer: literal %d has no corresponding package", l))
	}
	return p.packages[id]
}

// PackageToID returns the id of pkg, which must have come from this Pool.
func (p *Pool) PackageToID(pkg *Package) ID { return pkg.id }

// Packages returns every registered package, in id order (index 0 absent).
func (p *Pool) Packages() []*Package { return p.packages[1:] }

// WhatProvides returns, in priority-then-insertion order, the positive
// literal for every package that satisfies (name, constraint): either a
// package named name whose own Version matches, or a package that
// provides/replaces name with a matching version. Results are memoized by
// (name, constraint fingerprint); the Pool is never mutated after Build, so
// the cache never needs invalidation. The returned slice is the cached
// backing array itself - callers must treat it as read-only and copy
// before reordering or appending in place.
func (p *Pool) WhatProvides(name string, c Constraint) []Literal {
	if c == nil {
		c = Any
	}
	key := whatProvidesKey{name: name, fp: c.String()}
	p.mu.Lock()
	defer p.mu.Unlock()
	if hit, ok := p.cache[key]; ok {
		return hit
	}

	v, ok := p.byName.Get(name)
	if !ok {
		p.cache[key] = nil
		return nil
	}

	var out []Literal
	for _, id := range v.([]ID) {
		pkg := p.packages[id]
		if p.providesMatch(pkg, name, c) {
			out = append(out, Lit(id))
		}
	}
	p.cache[key] = out
	return out
}

func (p *Pool) providesMatch(pkg *Package, name string, c Constraint) bool {
	if pkg.Name == name {
		if c.Matches(pkg.Version) {
			return true
		}
	}
	for _, link := range pkg.Provides {
		if link.Target == name && constraintsIntersect(link.Constraint, c) {
			return true
		}
	}
	for _, link := range pkg.Replaces {
		if link.Target == name && constraintsIntersect(link.Constraint, c) {
			return true
		}
	}
	return false
}

// constraintsIntersect reports whether a provide/replace declaration's own
// constraint can ever agree with the constraint a requirement is asking
// for. Any always intersects; two ExactVersion/semver constraints
// intersect if the provided version, when pinned, satisfies the requested
// constraint (the common case: `provides Y-1.0`, `requires Y ^1`).
func constraintsIntersect(provided, requested Constraint) bool {
	if provided == Any || requested == Any {
		return true
	}
	if ev, ok := provided.(ExactVersion); ok {
		return requested.Matches(ev.V)
	}
	// Without a concrete pinned version we can't prove non-overlap cheaply;
	// err on the side of considering it a candidate and let rule generation
	// (and ultimately the solver) rule it out if it's truly disjoint.
	return true
}

// PrettyLiteral renders a literal the way Problems wants it for diagnostics:
// "A-1.0" or "!A-1.0" for the negated form.
func (p *Pool) PrettyLiteral(l Literal) string {
	pkg := p.LiteralToPackage(l)
	if l.Positive() {
		return pkg.String()
	}
	return "!" + pkg.String()
}
