// Package layout stores, per installed package, the filesystem nodes it
// owns: uid, gid, mode, a type tag, and either a content-store hash or a
// symlink target. It backs the one-owner-path invariant from spec.md §3.5
// and supplies the transaction engine's staging-tree builder and the hash
// store's referenced-hashes query.
package layout
