package resolver

import (
	"errors"
	"fmt"

	"github.com/mossforge/moss/pkg/types"
)

// ErrProviderNotFound is returned when no candidate in the metadata database
// satisfies a requested or transitive dependency expression.
var ErrProviderNotFound = errors.New("resolver: no provider found")

// ConflictError reports two packages in the same closure whose declared
// conflicts collide, per spec.md §4.4 step 4.
type ConflictError struct {
	Package  *types.Package
	Conflict *types.Package
	Value    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("resolver: %s conflicts with %s over %q", e.Package.Name, e.Conflict.Name, e.Value)
}

// ProviderNotFoundError names the specific expression that had no candidate.
type ProviderNotFoundError struct {
	Kind  types.DependencyKind
	Value string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("resolver: no provider for %s:%s", e.Kind, e.Value)
}

func (e *ProviderNotFoundError) Unwrap() error {
	return ErrProviderNotFound
}
