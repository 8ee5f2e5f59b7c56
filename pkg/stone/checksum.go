package stone

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// checksumSize is the width of the payload checksum field.
const checksumSize = 8

// checksum computes the wire checksum for plain (decompressed) payload
// bytes and serialises it little-endian, per spec.md §4.1.
func checksum(plain []byte) [checksumSize]byte {
	sum := xxhash.Sum64(plain)
	var out [checksumSize]byte
	binary.LittleEndian.PutUint64(out[:], sum)
	return out
}

// verifyChecksum reports whether want matches the checksum of plain.
func verifyChecksum(plain []byte, want [checksumSize]byte) bool {
	return checksum(plain) == want
}

// streamingChecksum accumulates a checksum across multiple Write calls,
// used by ContentReader to validate a decompressed stream without
// buffering the whole thing.
type streamingChecksum struct {
	d *xxhash.Digest
}

func newStreamingChecksum() *streamingChecksum {
	return &streamingChecksum{d: xxhash.New()}
}

func (s *streamingChecksum) Write(p []byte) (int, error) {
	return s.d.Write(p)
}

func (s *streamingChecksum) Sum() [checksumSize]byte {
	var out [checksumSize]byte
	binary.LittleEndian.PutUint64(out[:], s.d.Sum64())
	return out
}
