/*
Package stone reads and writes the .stone container format: a 32-byte
header followed by independently framed, independently compressed
payloads.

# Format

	┌──────────────── STONE FILE ────────────────┐
	│ header (32 bytes)                            │
	│   magic      4 bytes   \0mos                 │
	│   ...reserved...                             │
	│   payload count 2 bytes (bytes 24-25, v1)     │
	│   file type  1 byte    (byte 26, v1)          │
	│   version    4 bytes   big-endian u32 (28-31) │
	├───────────────────────────────────────────────┤
	│ payload 0                                      │
	│   stored_size  u64                             │
	│   plain_size   u64                             │
	│   checksum     8 bytes (xxhash of plain bytes) │
	│   num_records  u32                             │
	│   version      u16                             │
	│   kind         u8   (meta/layout/index/content/attrs) │
	│   compression  u8   (none/zstd)                │
	│   ...stored_size bytes of payload body...      │
	├───────────────────────────────────────────────┤
	│ payload 1 ...                                  │
	└───────────────────────────────────────────────┘

Meta, Layout, Index, and Attributes payloads decode to a sequence of typed
records; Content payloads decode to a single byte stream addressed by the
preceding Index payload's (start, end, digest) ranges.

# Reader

Reader wraps any io.ReadSeeker — an *os.File, a bytes.Reader, or a
network-backed cursor satisfies it equally; nothing here requires a
concrete type. NextPayload advances deterministically: it seeks to the
next payload header's absolute offset, so a body need not be consumed
before advancing. All payloads share the one io.ReadSeeker, and
ReadContent and a payload's first NextRecord seek to their own body, so an
open ContentReader must not be read across other Reader or PayloadReader
calls.

# Writer

Writer is used by the package builder, not by the installer, but the
format it emits is defined here because the wire shape is one contract.
NewWriter fixes the file type byte; callers add payloads with WriteMeta,
WriteLayout, WriteAttributes, and WriteContent in the order they want them
to appear on disk, then Finish writes the header and payloads.

# Checksum

The 8-byte payload checksum is computed over the plain (decompressed)
payload bytes using xxhash64 (github.com/cespare/xxhash/v2). spec.md §3.2
names the algorithm "xxh3_64"; this codec uses the 64-bit xxhash variant
available in the retrieval pack rather than a true XXH3 implementation —
see the checksum-algorithm entry under DESIGN.md's Open Questions.
*/
package stone
