package composer

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A trivial install with no installed baseline resolves to a single
// Install operation.
func TestScenarioS1TrivialInstall(t *testing.T) {
	repo := &Repository{Name: "main"}
	a := &Package{Name: "a", Version: v(t, "1.0.0")}
	pool := NewBuilder().AddRepository(repo, a).Build()

	req := NewRequest().Install("a", MustConstraint("^1.0"))
	tx, err := New(pool, req, nil, nil).Solve(context.Background())
	require.NoError(t, err)

	require.Len(t, tx.Operations, 1)
	assert.Equal(t, OpInstall, tx.Operations[0].Kind)
	assert.Equal(t, "a", tx.Operations[0].Package.Name)
}

// S2: an install job for a, which requires b 1.x when the only b in the pool
// is 2.x, produces an UnsatisfiableError whose Problems tree is non-empty.
func TestScenarioS2VersionConflictIsUnsatisfiable(t *testing.T) {
	repo := &Repository{Name: "main"}
	a := &Package{
		Name:     "a",
		Version:  v(t, "1.0.0"),
		Requires: []Link{{Target: "b", Constraint: MustConstraint("^1.0")}},
	}
	b := &Package{Name: "b", Version: v(t, "2.0.0")}
	pool := NewBuilder().AddRepository(repo, a, b).Build()

	req := NewRequest().Install("a", MustConstraint("^1.0"))
	_, err := New(pool, req, nil, nil).Solve(context.Background())

	require.Error(t, err)
	ue, ok := AsUnsatisfiable(err)
	require.True(t, ok)
	require.NotEmpty(t, ue.Problems.Groups)
}

// S3: updating an installed package whose new version raises a dependency's
// required range forces the dependency to update too, in dependency order,
// even though nothing in the request names the dependency directly.
func TestScenarioS3UpdatePropagatesToDependency(t *testing.T) {
	installed := &Repository{Name: "installed", Installed: true}
	main := &Repository{Name: "main"}

	aOld := &Package{Name: "a", Version: v(t, "1.0.0"), Requires: []Link{{Target: "b", Constraint: MustConstraint("^1.0")}}}
	bOld := &Package{Name: "b", Version: v(t, "1.0.0")}

	aNew := &Package{Name: "a", Version: v(t, "2.0.0"), Requires: []Link{{Target: "b", Constraint: MustConstraint("^2.0")}}}
	bNew := &Package{Name: "b", Version: v(t, "2.0.0")}

	pool := NewBuilder().
		AddRepository(installed, aOld, bOld).
		AddRepository(main, aNew, bNew).
		Build()

	req := NewRequest().Update("a")
	tx, err := New(pool, req, nil, nil).Solve(context.Background())
	require.NoError(t, err)

	// Whether the solver's branching happens to land on the shape that
	// coalesces into OpUpdate or on separate OpRemove/OpInstall pairs, the
	// resulting package set and ordering must be the same: both packages
	// move to their new version, and b's install/update precedes a's
	// (dependencies install before dependents), while any removal of the
	// old versions is ordered dependents-first (a's old version, which
	// depended on b's old version, before b's old version).
	var finalNew, finalOld []string
	var bIdx, aIdx = -1, -1
	var aOldIdx, bOldIdx = -1, -1
	for i, op := range tx.Operations {
		switch {
		case op.Package == bNew:
			bIdx = i
			finalNew = append(finalNew, "b")
		case op.Package == aNew:
			aIdx = i
			finalNew = append(finalNew, "a")
		case op.Package == aOld:
			aOldIdx = i
			finalOld = append(finalOld, "a")
		case op.Package == bOld:
			bOldIdx = i
			finalOld = append(finalOld, "b")
		}
	}

	assert.ElementsMatch(t, []string{"a", "b"}, finalNew, "both a and b must end up at their new version")
	require.NotEqual(t, -1, bIdx)
	require.NotEqual(t, -1, aIdx)
	assert.Less(t, bIdx, aIdx, "b must install/update before a, which requires it")

	if aOldIdx != -1 && bOldIdx != -1 {
		assert.Less(t, aOldIdx, bOldIdx, "a's old version must be removed before b's, since a depended on b")
	}
	_ = finalOld
}

// S4: a requirement on "y" is satisfied by a package that Provides y under a
// different underlying Name, not by a same-named package at all.
func TestScenarioS4SatisfiedByProvides(t *testing.T) {
	repo := &Repository{Name: "main"}
	consumer := &Package{
		Name:     "app",
		Version:  v(t, "1.0.0"),
		Requires: []Link{{Target: "y", Constraint: MustConstraint("^1.0")}},
	}
	provider := &Package{
		Name:     "z",
		Version:  v(t, "1.0.0"),
		Provides: []Link{{Target: "y", Constraint: ExactVersion{V: v(t, "1.0.0")}}},
	}
	pool := NewBuilder().AddRepository(repo, consumer, provider).Build()

	req := NewRequest().Install("app", MustConstraint("^1.0"))
	tx, err := New(pool, req, nil, nil).Solve(context.Background())
	require.NoError(t, err)

	var installed []string
	for _, op := range tx.Operations {
		installed = append(installed, op.Package.Name)
	}
	assert.ElementsMatch(t, []string{"app", "z"}, installed)
}

// S5: installing an alias co-installs its concrete target and emits the
// MarkAliasInstalled step immediately after it.
func TestScenarioS5AliasCoInstallation(t *testing.T) {
	repo := &Repository{Name: "main"}
	concrete := &Package{Name: "lib", Version: v(t, "9.9.9")}
	alias := &Package{
		Name:    "lib",
		Version: v(t, "1.0.0"),
		Alias:   &Alias{Of: concrete},
	}
	pool := NewBuilder().AddRepository(repo, concrete, alias).Build()

	req := NewRequest().Install("lib", ExactVersion{V: v(t, "1.0.0")})
	tx, err := New(pool, req, nil, nil).Solve(context.Background())
	require.NoError(t, err)

	// Both records install; the alias's MarkAliasInstalled step trails it
	// directly.
	require.Len(t, tx.Operations, 3)
	var sawConcrete, sawAlias, sawMark bool
	for i, op := range tx.Operations {
		switch {
		case op.Package == concrete && op.Kind == OpInstall:
			sawConcrete = true
		case op.Package == alias && op.Kind == OpInstall:
			sawAlias = true
			require.Less(t, i+1, len(tx.Operations))
			assert.Equal(t, OpMarkAliasInstalled, tx.Operations[i+1].Kind)
			assert.Same(t, alias, tx.Operations[i+1].Package)
			sawMark = true
		}
	}
	assert.True(t, sawConcrete, "concrete target must be installed")
	assert.True(t, sawAlias, "alias record must be installed")
	assert.True(t, sawMark, "alias install must be followed by MarkAliasInstalled")
}

// S6: removing a package another installed package still requires, with no
// alternative provider, is unsatisfiable rather than silently cascading into
// removing the dependent too.
func TestScenarioS6RemoveWithReverseDependencyIsUnsatisfiable(t *testing.T) {
	installed := &Repository{Name: "installed", Installed: true}
	b := &Package{Name: "b", Version: v(t, "1.0.0")}
	a := &Package{
		Name:     "a",
		Version:  v(t, "1.0.0"),
		Requires: []Link{{Target: "b", Constraint: MustConstraint("^1.0")}},
	}
	pool := NewBuilder().AddRepository(installed, a, b).Build()

	req := NewRequest().Remove("b")
	_, err := New(pool, req, nil, nil).Solve(context.Background())

	require.Error(t, err)
	_, ok := AsUnsatisfiable(err)
	assert.True(t, ok)
}

// Two solves over freshly-built, content-identical inputs must produce
// byte-identical transactions: rule generation order, branching, and
// conflict analysis are all deterministic given the same Pool/Request/Policy.
func TestSolveIsDeterministic(t *testing.T) {
	build := func() (*Pool, *Request) {
		repo := &Repository{Name: "main"}
		a := &Package{
			Name:     "a",
			Version:  v(t, "1.0.0"),
			Requires: []Link{{Target: "b", Constraint: MustConstraint("^1.0")}, {Target: "c", Constraint: MustConstraint("^1.0")}},
		}
		b := &Package{Name: "b", Version: v(t, "1.0.0"), Requires: []Link{{Target: "c", Constraint: MustConstraint("^1.0")}}}
		c := &Package{Name: "c", Version: v(t, "1.0.0")}
		pool := NewBuilder().AddRepository(repo, a, b, c).Build()
		req := NewRequest().Install("a", MustConstraint("^1.0"))
		return pool, req
	}

	pool1, req1 := build()
	tx1, err := New(pool1, req1, nil, nil).Solve(context.Background())
	require.NoError(t, err)

	pool2, req2 := build()
	tx2, err := New(pool2, req2, nil, nil).Solve(context.Background())
	require.NoError(t, err)

	names := func(tx *Transaction) []string {
		var out []string
		for _, op := range tx.Operations {
			out = append(out, op.Kind.String()+":"+op.Package.Name)
		}
		return out
	}

	if diff := cmp.Diff(names(tx1), names(tx2)); diff != "" {
		t.Fatalf("solve was not deterministic (-first +second):\n%s", diff)
	}
}

// Same-name packages are never both decided true, regardless of which
// branch the search takes.
func TestSolveNeverDecidesTwoSameNamePackagesTrue(t *testing.T) {
	repo := &Repository{Name: "main"}
	a1 := &Package{Name: "a", Version: v(t, "1.0.0")}
	a2 := &Package{Name: "a", Version: v(t, "2.0.0")}
	pool := NewBuilder().AddRepository(repo, a1, a2).Build()

	req := NewRequest().Install("a", MustConstraint(">=1.0"))
	tx, err := New(pool, req, nil, nil).Solve(context.Background())
	require.NoError(t, err)

	count := 0
	for _, op := range tx.Operations {
		if op.Package.Name == "a" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSolveRespectsCancelledContext(t *testing.T) {
	repo := &Repository{Name: "main"}
	a := &Package{Name: "a", Version: v(t, "1.0.0")}
	pool := NewBuilder().AddRepository(repo, a).Build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := NewRequest().Install("a", MustConstraint("^1.0"))
	_, err := New(pool, req, nil, nil).Solve(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
}
