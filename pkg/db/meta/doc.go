// Package meta stores the catalog of known packages: every candidate the
// resolver can select from, whether it came from a configured repository or
// from a locally-installed stone. It is one of the three physically separate
// databases named in spec.md §4.3, kept apart from layout and state so each
// can be rebuilt or migrated independently of the others.
package meta
