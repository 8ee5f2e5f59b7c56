/*
Package transaction implements the transaction engine of spec.md §4.5: it
takes a resolver.Plan and drives it through lock acquisition, fetch and
content absorption, path-collision detection, staging-tree materialisation,
trigger execution, State DB commit, and atomic /usr activation.

Every step before activation can be abandoned without touching the active
root: staging lives under its own roots/<id>.staging-<uuid>/ directory, and
the State DB row is not committed until the tree is fully built. Activation
itself - the renameat2(RENAME_EXCHANGE) of the staging tree into /usr,
followed by the .stateID rewrite - is the one non-interruptible critical
section named in spec.md §5; Reconcile repairs a process that died between
those two steps.
*/
package transaction
