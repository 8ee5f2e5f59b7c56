// Package state stores the immutable, monotonically-numbered states that
// the transaction engine commits: each row names a transaction kind, a
// timestamp, and the set of package selections active as of that state, per
// spec.md §3.4/§4.3. It is the system of record cmd/moss's `state list` and
// `state activate` subcommands read and write.
package state
