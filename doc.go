// Package composer implements a dependency solver: it turns package
// metadata and a set of install/update/remove requests into a boolean
// constraint problem over signed package literals, then runs a
// conflict-driven backtracking search with clause learning to find a
// satisfying assignment, or to explain why none exists.
//
// The surrounding concerns of a package manager - repository loading,
// downloading, on-disk layout, lock files, script dispatch - are not part
// of this package. composer consumes already-resolved Package records and
// produces an ordered Transaction; everything else is the caller's job.
package composer
