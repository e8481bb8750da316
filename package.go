package composer

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Stability classifies a version's maturity, the way Composer's own
// stability flags (stable, RC, beta, alpha, dev) do. The default Policy
// uses it to prefer stable packages unless the caller opts in to dev
// versions.
type Stability uint8

const (
	Stable Stability = iota
	RC
	Beta
	Alpha
	Dev
)

func (s Stability) String() string {
	switch s {
	case Stable:
		return "stable"
	case RC:
		return "RC"
	case Beta:
		return "beta"
	case Alpha:
		return "alpha"
	case Dev:
		return "dev"
	default:
		return "unknown"
	}
}

// Link is one entry of a Requires/Conflicts/Provides/Replaces list: a
// target package name plus the Constraint a candidate's version must
// satisfy to be considered a match for that target.
type Link struct {
	Target     string
	Constraint Constraint
}

func (l Link) String() string {
	if l.Constraint == nil || l.Constraint == Any {
		return l.Target
	}
	return fmt.Sprintf("%s (%s)", l.Target, l.Constraint)
}

// Repository groups packages under a priority: higher-priority
// repositories are preferred by the default Policy and determine
// whatProvides ordering.
type Repository struct {
	Name     string
	Priority int
	// Installed marks this repository as the caller's currently-installed
	// baseline, consulted by Transaction extraction and by the default
	// Policy's prefer-installed mode.
	Installed bool
}

// Alias describes a package that shares source identity with another
// package record but exposes a different version string.
type Alias struct {
	// Of is the concrete package this alias is attached to. It must be
	// registered in the same Pool.
	Of *Package
}

// Package is an immutable descriptor for one candidate version of a named
// package, as built by the caller before handing it to a Builder. Nothing
// in this package mutates a Package after it has been added to a Pool.
type Package struct {
	Name    string
	Version *semver.Version

	Provides  []Link
	Replaces  []Link
	Conflicts []Link
	Requires  []Link

	Dev       bool
	Stability Stability

	// SourceRef is an opaque reference (VCS commit, archive URL, ...) the
	// caller associates with this package. The solver never interprets it;
	// it is carried through to Transaction operations for the Installer.
	SourceRef string

	Repository *Repository

	// Alias is non-nil when this Package record is an alias of another
	// concrete Package: a distinct package record sharing source identity
	// but bearing a different version.
	Alias *Alias

	id ID
}

// ID returns the pool id assigned to this package. It is zero until the
// package has been registered via a Builder and the Pool built.
func (p *Package) ID() ID { return p.id }

// EffectiveName returns the name under which same-name exclusion groups
// this package: its own declared Name.
func (p *Package) EffectiveName() string { return p.Name }

func (p *Package) String() string {
	if p == nil {
		return "<nil>"
	}
	v := "?"
	if p.Version != nil {
		v = p.Version.String()
	}
	return fmt.Sprintf("%s-%s", p.Name, v)
}

// IsAlias reports whether p is an alias record.
func (p *Package) IsAlias() bool { return p.Alias != nil }
