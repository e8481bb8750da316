package composer

import (
	"github.com/pkg/errors"
)

// Sentinel error kinds the solver produces. Wrap them with errors.Wrap so
// callers retain a stack trace from the wrapping site while still being
// able to errors.Is/errors.Cause back to the sentinel.
var (
	// ErrUnsatisfiable means the request cannot be solved; use
	// AsUnsatisfiable to recover the Problems tree.
	ErrUnsatisfiable = errors.New("composer: request is unsatisfiable")
	// ErrInvalidPool means the Pool violates an invariant (duplicate ids,
	// a malformed package record). This indicates a broken Builder caller,
	// never bad user input.
	ErrInvalidPool = errors.New("composer: invalid pool")
	// ErrCancelled means the caller's context was done before the solve
	// finished.
	ErrCancelled = errors.New("composer: solve cancelled")
)

// UnsatisfiableError carries the rendered Problems tree alongside the
// ErrUnsatisfiable sentinel.
type UnsatisfiableError struct {
	Problems *Problems
}

func (e *UnsatisfiableError) Error() string {
	return "composer: request is unsatisfiable:\n" + e.Problems.String()
}

// Unwrap lets errors.Is(err, ErrUnsatisfiable) succeed.
func (e *UnsatisfiableError) Unwrap() error { return ErrUnsatisfiable }

// AsUnsatisfiable reports whether err (or something it wraps) is an
// *UnsatisfiableError, returning it if so.
func AsUnsatisfiable(err error) (*UnsatisfiableError, bool) {
	var ue *UnsatisfiableError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
