package composer

import (
	"testing"

	"github.com/Masterminds/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(t *testing.T, s string) *semver.Version {
	t.Helper()
	ver, err := semver.NewVersion(s)
	require.NoError(t, err)
	return ver
}

func TestPoolAssignsDenseIDsStartingAtOne(t *testing.T) {
	repo := &Repository{Name: "main"}
	a := &Package{Name: "a", Version: v(t, "1.0.0")}
	b := &Package{Name: "b", Version: v(t, "1.0.0")}

	pool := NewBuilder().AddRepository(repo, a, b).Build()

	assert.Equal(t, ID(1), a.ID())
	assert.Equal(t, ID(2), b.ID())
	assert.Equal(t, 2, pool.Len())
}

func TestPoolRepositoryPriorityOrdering(t *testing.T) {
	low := &Repository{Name: "low", Priority: 1}
	high := &Repository{Name: "high", Priority: 10}
	a := &Package{Name: "a", Version: v(t, "1.0.0")}
	b := &Package{Name: "a", Version: v(t, "2.0.0")}

	pool := NewBuilder().AddRepository(low, a).AddRepository(high, b).Build()

	// b's repository has higher priority, so it must get the lower id
	// despite being added second.
	assert.Equal(t, ID(1), b.ID())
	assert.Equal(t, ID(2), a.ID())
}

func TestWhatProvidesOwnName(t *testing.T) {
	repo := &Repository{Name: "main"}
	a := &Package{Name: "a", Version: v(t, "1.5.0")}
	pool := NewBuilder().AddRepository(repo, a).Build()

	c := MustConstraint("^1.0")
	lits := pool.WhatProvides("a", c)
	require.Len(t, lits, 1)
	assert.Equal(t, Lit(a.ID()), lits[0])

	assert.Empty(t, pool.WhatProvides("a", MustConstraint("^2.0")))
}

func TestWhatProvidesViaProvideLink(t *testing.T) {
	repo := &Repository{Name: "main"}
	provider := &Package{
		Name:    "z",
		Version: v(t, "1.0.0"),
		Provides: []Link{
			{Target: "y", Constraint: ExactVersion{V: v(t, "1.0.0")}},
		},
	}
	pool := NewBuilder().AddRepository(repo, provider).Build()

	lits := pool.WhatProvides("y", MustConstraint("^1.0"))
	require.Len(t, lits, 1)
	assert.Equal(t, Lit(provider.ID()), lits[0])
}

func TestWhatProvidesIsMemoized(t *testing.T) {
	repo := &Repository{Name: "main"}
	a := &Package{Name: "a", Version: v(t, "1.0.0")}
	pool := NewBuilder().AddRepository(repo, a).Build()

	c := MustConstraint("^1.0")
	first := pool.WhatProvides("a", c)
	second := pool.WhatProvides("a", c)
	assert.Equal(t, first, second)
}

func TestLiteralToPackagePanicsOnOutOfRange(t *testing.T) {
	pool := NewBuilder().Build()
	assert.Panics(t, func() {
		pool.LiteralToPackage(Lit(1))
	})
}

func TestPrettyLiteral(t *testing.T) {
	repo := &Repository{Name: "main"}
	a := &Package{Name: "a", Version: v(t, "1.0.0")}
	pool := NewBuilder().AddRepository(repo, a).Build()

	assert.Equal(t, "a-1.0.0", pool.PrettyLiteral(Lit(a.ID())))
	assert.Equal(t, "!a-1.0.0", pool.PrettyLiteral(Lit(a.ID()).Negate()))
}
