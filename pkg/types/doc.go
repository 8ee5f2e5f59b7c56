/*
Package types defines moss's core data model: package identity, the
dependency/provider relations used by the resolver, on-disk layout
entries, and the state/selection records that describe an install
root's history.

These types are shared by every other package — stone, hashstore, the
three db stores, the resolver, and the transaction engine all import
types rather than defining their own parallel structs, so a Hash or a
Package means the same thing everywhere.
*/
package types
