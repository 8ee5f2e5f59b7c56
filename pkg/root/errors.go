package root

import "errors"

// ErrRootLocked is returned when a mutator cannot acquire the exclusive
// root lock because another moss process holds it, per spec.md §4.5 step 1
// and the RootLocked error kind of §7.
var ErrRootLocked = errors.New("root: lock held by another process")
