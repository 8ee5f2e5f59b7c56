/*
Package hashstore implements the content-addressable blob store under
<install root>/.moss/store, per spec.md §3.3/§4.2.

A blob is named by its 16-byte blake3 content hash (truncated from the
256-bit digest) and fans out two hex bytes deep:
store/ab/cd/abcdef0123456789abcdef0123456789. Absorb writes to a temp file
on the same filesystem, hashes while writing, and renames into place only
if the computed hash matches the caller's expectation — a duplicate
absorb of an already-present blob is a no-op, matching spec.md §5's
"concurrent absorbers of the same blob hash race cooperatively."

LinkInto materialises a blob at a target path as a hardlink, falling back
to copy_file_range (via io.Copy, since the stdlib does not expose the
syscall directly outside linux-specific build tags) when the target lives
on a different filesystem.

Sweep implements the GC half of spec.md §4.2's contract: given the set of
hashes referenced by every layout row of every installed package in every
live state, delete everything else under store/.
*/
package hashstore
