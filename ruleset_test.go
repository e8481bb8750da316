package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSetAddDedupes(t *testing.T) {
	rs := NewRuleSet()
	r1, added1 := rs.Add(newRule([]Literal{1, -2}, ReasonPackageConflict, nil, nil, TypePackage))
	r2, added2 := rs.Add(newRule([]Literal{-2, 1}, ReasonPackageConflict, nil, nil, TypePackage))

	assert.True(t, added1)
	assert.False(t, added2)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, rs.Len())
}

func TestRuleSetAssignsInsertionOrderIDs(t *testing.T) {
	rs := NewRuleSet()
	r1, _ := rs.Add(newRule([]Literal{1}, ReasonJobInstall, nil, nil, TypeJob))
	r2, _ := rs.Add(newRule([]Literal{2}, ReasonJobInstall, nil, nil, TypeJob))

	assert.Equal(t, 0, r1.ID())
	assert.Equal(t, 1, r2.ID())
	assert.Same(t, r1, rs.Get(0))
	assert.Same(t, r2, rs.Get(1))
}

func TestRuleSetByType(t *testing.T) {
	rs := NewRuleSet()
	rs.Add(newRule([]Literal{1}, ReasonJobInstall, nil, nil, TypeJob))
	rs.Add(newRule([]Literal{1, -2}, ReasonPackageConflict, nil, nil, TypePackage))

	require.Len(t, rs.ByType(TypeJob), 1)
	require.Len(t, rs.ByType(TypePackage), 1)
	assert.Len(t, rs.ByType(TypeLearned), 0)
}

func TestRuleSetWatchesFirstTwoLiterals(t *testing.T) {
	rs := NewRuleSet()
	r, _ := rs.Add(newRule([]Literal{-1, 2, 3}, ReasonPackageRequires, nil, nil, TypePackage))

	require.Contains(t, rs.WatchersOf(-1), r)
	require.Contains(t, rs.WatchersOf(2), r)
	assert.NotContains(t, rs.WatchersOf(3), r)
}

func TestRuleSetUnitRuleWatchesItsOnlyLiteral(t *testing.T) {
	rs := NewRuleSet()
	r, _ := rs.Add(newRule([]Literal{5}, ReasonInternalAllowUpdate, nil, nil, TypeJob))
	require.Contains(t, rs.WatchersOf(5), r)
}

func TestRuleSetMoveWatch(t *testing.T) {
	rs := NewRuleSet()
	r, _ := rs.Add(newRule([]Literal{-1, 2, 3}, ReasonPackageRequires, nil, nil, TypePackage))

	rs.moveWatch(r, 2, 3)

	assert.NotContains(t, rs.WatchersOf(2), r)
	assert.Contains(t, rs.WatchersOf(3), r)
	assert.Equal(t, Literal(3), otherWatch(r, -1))
}
