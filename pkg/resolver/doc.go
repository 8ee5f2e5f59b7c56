/*
Package resolver implements moss's dependency resolution, per spec.md §4.4:
given a current selection set and a change (provider expressions to add,
package names to remove), it produces a new selection set and an ordered
install/remove list.

Resolution walks a provider graph built from the meta database's candidates
rather than requiring a DAG — Linux package graphs have cycles — and only
the staging order, computed by Tarjan strongly-connected-components over
the resolved closure, needs to be acyclic-ish (broken within a cycle by
repository priority).
*/
package resolver
