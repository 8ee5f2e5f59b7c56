package transaction

import (
	"errors"
	"fmt"

	"github.com/mossforge/moss/pkg/types"
)

// ErrPathConflict is returned when two packages in the same selection set
// claim the same non-directory layout path.
var ErrPathConflict = errors.New("transaction: path conflict")

// PathConflictError names the colliding path and the two packages that
// both claim it, per spec.md §7's Planning error bucket.
type PathConflictError struct {
	Path   string
	First  types.Hash
	Second types.Hash
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("transaction: path %s claimed by both %x and %x", e.Path, e.First[:], e.Second[:])
}

func (e *PathConflictError) Unwrap() error { return ErrPathConflict }

// AbortedError wraps whatever failed during steps 1-7, recording that no
// state change occurred.
type AbortedError struct {
	Step string
	Err  error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("transaction: aborted during %s: %v", e.Step, e.Err)
}

func (e *AbortedError) Unwrap() error { return e.Err }
