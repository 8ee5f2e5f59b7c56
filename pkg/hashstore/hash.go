package hashstore

import (
	"io"

	"lukechampine.com/blake3"

	"github.com/mossforge/moss/pkg/types"
)

// HashReader consumes r fully and returns the 128-bit content hash used
// throughout moss: the first 16 bytes of a blake3-256 digest.
func HashReader(r io.Reader) (types.Hash, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return types.Hash{}, err
	}
	return truncate(h.Sum(nil)), nil
}

// HashBytes is the in-memory equivalent of HashReader.
func HashBytes(b []byte) types.Hash {
	h := blake3.New(32, nil)
	h.Write(b)
	return truncate(h.Sum(nil))
}

func truncate(full []byte) types.Hash {
	var out types.Hash
	copy(out[:], full[:16])
	return out
}

// hasher accumulates a blake3 digest across multiple Write calls, used by
// Absorb to hash a stream while it is copied to disk.
type hasher struct {
	h *blake3.Hasher
}

func newHasher() *hasher {
	return &hasher{h: blake3.New(32, nil)}
}

func (h *hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

func (h *hasher) sum() types.Hash {
	return truncate(h.h.Sum(nil))
}
