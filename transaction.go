package composer

import "sort"

// OperationKind enumerates the four operation shapes Transaction
// extraction can produce.
type OperationKind uint8

const (
	OpInstall OperationKind = iota
	OpUpdate
	OpRemove
	OpMarkAliasInstalled
)

func (k OperationKind) String() string {
	switch k {
	case OpInstall:
		return "install"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	case OpMarkAliasInstalled:
		return "markAliasInstalled"
	default:
		return "unknown"
	}
}

// Operation is one step of the ordered plan a Transaction produces.
// Previous is set only for OpUpdate (the package being replaced).
type Operation struct {
	Kind     OperationKind
	Package  *Package
	Previous *Package
}

func (op Operation) String() string {
	switch op.Kind {
	case OpUpdate:
		return "update " + op.Previous.String() + " -> " + op.Package.String()
	case OpRemove:
		return "remove " + op.Package.String()
	case OpMarkAliasInstalled:
		return "markAliasInstalled " + op.Package.String()
	default:
		return "install " + op.Package.String()
	}
}

// Stats reports cost metrics about a completed solve.
type Stats struct {
	Attempts   int
	Backtracks int
}

// Transaction is the ordered diff between the installed set and the
// solved set.
type Transaction struct {
	Operations []Operation
	Stats      Stats
}

// buildTransaction extracts the Transaction implied by the solver's final
// Decisions: every decided-true package not already installed becomes an
// Install, and an alias package's Install is directly followed by a
// MarkAliasInstalled for it; every installed package not decided true becomes a Remove;
// a Remove/Install pair sharing a name where either side's cause was
// ReasonInternalAllowUpdate coalesces into an Update. Operations are
// ordered so dependencies install before dependents and dependents remove
// before dependencies, cycles broken by ascending id.
func (s *Solver) buildTransaction() *Transaction {
	var toInstall, toRemove []*Package
	for _, p := range s.pool.Packages() {
		lit := Lit(p.ID())
		decidedTrue := s.decisions.Satisfied(lit)
		installed := isInstalled(p)
		switch {
		case decidedTrue && !installed:
			toInstall = append(toInstall, p)
		case !decidedTrue && installed:
			toRemove = append(toRemove, p)
		}
	}

	updates, installOnly, removeOnly := coalesceUpdates(s, toInstall, toRemove)

	orderedRemoves := s.orderDependentsFirst(removeOnly)

	installSet := append(append([]*Package{}, installOnly...), updatedNewSides(updates)...)
	orderedInstallish := s.orderDependenciesFirst(installSet)

	var ops []Operation
	for _, p := range orderedRemoves {
		ops = append(ops, Operation{Kind: OpRemove, Package: p})
	}

	updateByNewID := make(map[ID]*Package)
	for _, u := range updates {
		updateByNewID[u.newPkg.ID()] = u.oldPkg
	}
	for _, p := range orderedInstallish {
		if old, isUpdate := updateByNewID[p.ID()]; isUpdate {
			ops = append(ops, Operation{Kind: OpUpdate, Package: p, Previous: old})
		} else {
			ops = append(ops, Operation{Kind: OpInstall, Package: p})
		}
		if p.IsAlias() {
			ops = append(ops, Operation{Kind: OpMarkAliasInstalled, Package: p})
		}
	}

	return &Transaction{Operations: ops, Stats: s.stats}
}

type updatePair struct {
	oldPkg, newPkg *Package
}

func coalesceUpdates(s *Solver, installs, removes []*Package) (updates []updatePair, installOnly, removeOnly []*Package) {
	removeByName := make(map[string][]*Package)
	for _, p := range removes {
		removeByName[p.Name] = append(removeByName[p.Name], p)
	}
	used := make(map[ID]bool)

	for _, newPkg := range installs {
		candidates := removeByName[newPkg.Name]
		matched := false
		for _, oldPkg := range candidates {
			if used[oldPkg.ID()] {
				continue
			}
			if allowUpdateCause(s, newPkg) || allowUpdateCause(s, oldPkg) {
				updates = append(updates, updatePair{oldPkg: oldPkg, newPkg: newPkg})
				used[oldPkg.ID()] = true
				matched = true
				break
			}
		}
		if !matched {
			installOnly = append(installOnly, newPkg)
		}
	}
	for _, p := range removes {
		if !used[p.ID()] {
			removeOnly = append(removeOnly, p)
		}
	}
	return updates, installOnly, removeOnly
}

func allowUpdateCause(s *Solver, p *Package) bool {
	cause, ok := s.decisions.Cause(Lit(p.ID()))
	if !ok || cause < 0 {
		return false
	}
	return s.rules.Get(cause).Reason() == ReasonInternalAllowUpdate
}

func updatedNewSides(updates []updatePair) []*Package {
	out := make([]*Package, len(updates))
	for i, u := range updates {
		out[i] = u.newPkg
	}
	return out
}

// orderDependenciesFirst orders pkgs so that for every p in pkgs, every
// member q that p.Requires resolves to (within this Pool) precedes p.
// Cycles are broken by simply not re-entering an in-progress node;
// ties/cycle breaks resolve by ascending id.
func (s *Solver) orderDependenciesFirst(pkgs []*Package) []*Package {
	return topoSort(pkgs, func(p *Package) []ID {
		var deps []ID
		for _, link := range p.Requires {
			for _, lit := range s.pool.WhatProvides(link.Target, link.Constraint) {
				deps = append(deps, lit.ID())
			}
		}
		return deps
	})
}

// orderDependentsFirst orders pkgs (a removal set) so that for every p in
// pkgs, every member that requires p precedes p - the mirror image of
// orderDependenciesFirst, giving reverse-dependencies-before-dependencies
// for removes.
func (s *Solver) orderDependentsFirst(pkgs []*Package) []*Package {
	member := make(map[ID]bool, len(pkgs))
	for _, p := range pkgs {
		member[p.ID()] = true
	}
	dependents := make(map[ID][]ID)
	for _, p := range pkgs {
		for _, link := range p.Requires {
			for _, lit := range s.pool.WhatProvides(link.Target, link.Constraint) {
				if member[lit.ID()] {
					dependents[lit.ID()] = append(dependents[lit.ID()], p.ID())
				}
			}
		}
	}
	return topoSort(pkgs, func(p *Package) []ID { return dependents[p.ID()] })
}

// topoSort returns pkgs in an order where, for every p, every id
// edgesOf(p) names (that is itself a member of pkgs) appears before p.
func topoSort(pkgs []*Package, edgesOf func(*Package) []ID) []*Package {
	if len(pkgs) == 0 {
		return nil
	}
	member := make(map[ID]*Package, len(pkgs))
	for _, p := range pkgs {
		member[p.ID()] = p
	}
	sorted := append([]*Package{}, pkgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })

	visited := make(map[ID]bool)
	inStack := make(map[ID]bool)
	out := make([]*Package, 0, len(pkgs))

	var visit func(p *Package)
	visit = func(p *Package) {
		if visited[p.ID()] || inStack[p.ID()] {
			return // cycle: broken by not re-entering
		}
		inStack[p.ID()] = true
		deps := append([]ID(nil), edgesOf(p)...)
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
		for _, depID := range deps {
			if dep, ok := member[depID]; ok {
				visit(dep)
			}
		}
		inStack[p.ID()] = false
		visited[p.ID()] = true
		out = append(out, p)
	}

	for _, p := range sorted {
		visit(p)
	}
	return out
}
