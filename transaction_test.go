package composer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionOrdersInstallsDependenciesFirst(t *testing.T) {
	// A requires B; both need to be installed, B must come first.
	main := &Repository{Name: "main"}
	b := &Package{Name: "b", Version: v(t, "1.0.0")}
	a := &Package{
		Name:     "a",
		Version:  v(t, "1.0.0"),
		Requires: []Link{{Target: "b", Constraint: MustConstraint("^1.0")}},
	}
	pool := NewBuilder().AddRepository(main, a, b).Build()

	req := NewRequest().Install("a", MustConstraint("^1.0"))
	s := New(pool, req, nil, nil)
	tx, err := s.Solve(context.Background())
	require.NoError(t, err)

	require.Len(t, tx.Operations, 2)
	assert.Equal(t, OpInstall, tx.Operations[0].Kind)
	assert.Equal(t, "b", tx.Operations[0].Package.Name)
	assert.Equal(t, OpInstall, tx.Operations[1].Kind)
	assert.Equal(t, "a", tx.Operations[1].Package.Name)
}

func TestTransactionNoSpuriousWorkWhenAlreadyInstalled(t *testing.T) {
	installedRepo := &Repository{Name: "installed", Installed: true}
	a := &Package{Name: "a", Version: v(t, "1.0.0")}
	pool := NewBuilder().AddRepository(installedRepo, a).Build()

	req := NewRequest().Install("a", MustConstraint("^1.0"))
	s := New(pool, req, NewDefaultPolicy(Options{PreferInstalled: true}), nil)
	tx, err := s.Solve(context.Background())
	require.NoError(t, err)

	assert.Empty(t, tx.Operations)
}

func TestTransactionRemoveWithReverseDepIsUnsatisfiable(t *testing.T) {
	installedRepo := &Repository{Name: "installed", Installed: true}
	b := &Package{Name: "b", Version: v(t, "1.0.0")}
	a := &Package{
		Name:     "a",
		Version:  v(t, "1.0.0"),
		Requires: []Link{{Target: "b", Constraint: MustConstraint("^1.0")}},
	}
	pool := NewBuilder().AddRepository(installedRepo, a, b).Build()

	req := NewRequest().Remove("b")
	s := New(pool, req, nil, nil)
	_, err := s.Solve(context.Background())

	require.Error(t, err)
	_, ok := AsUnsatisfiable(err)
	assert.True(t, ok)
}
