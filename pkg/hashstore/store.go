package hashstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mossforge/moss/pkg/log"
	"github.com/mossforge/moss/pkg/metrics"
	"github.com/mossforge/moss/pkg/types"
)

// ErrHashMismatch is returned by Absorb when the stream's computed hash
// does not match the caller's expectation.
var ErrHashMismatch = errors.New("hashstore: absorbed content does not match expected hash")

// Store is the content-addressable blob store rooted at <install
// root>/.moss/store.
type Store struct {
	base   string
	logger zerolog.Logger
}

// New opens (creating if absent) the blob store at storeRoot.
func New(storeRoot string) (*Store, error) {
	if err := os.MkdirAll(storeRoot, 0755); err != nil {
		return nil, fmt.Errorf("hashstore: create store root: %w", err)
	}
	return &Store{base: storeRoot, logger: log.WithComponent("hashstore")}, nil
}

// PathFor returns the deterministic two-byte fanout path for hash, per
// spec.md §4.2: store/ab/cd/abcd....
func (s *Store) PathFor(hash types.Hash) string {
	hex := fmt.Sprintf("%x", hash[:])
	return filepath.Join(s.base, hex[0:2], hex[2:4], hex)
}

// Contains reports whether a blob for hash already exists.
func (s *Store) Contains(hash types.Hash) bool {
	_, err := os.Stat(s.PathFor(hash))
	return err == nil
}

// Absorb streams r to a temporary file on the same filesystem as the
// store, hashing as it writes, and renames into place only if the
// computed hash matches expected. A pre-existing blob makes Absorb a
// no-op (idempotent), per spec.md §4.2/§5.
func (s *Store) Absorb(r io.Reader, expected types.Hash) error {
	if s.Contains(expected) {
		return nil
	}

	dest := s.PathFor(expected)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("hashstore: create fanout dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".absorb-*")
	if err != nil {
		return fmt.Errorf("hashstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath) // no-op once renamed
	}()

	hasher := newHasher()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		return fmt.Errorf("hashstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("hashstore: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("hashstore: close temp file: %w", err)
	}

	got := hasher.sum()
	if got != expected {
		return fmt.Errorf("%w: want %x got %x", ErrHashMismatch, expected[:], got[:])
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		// A concurrent absorber may have already renamed an identical blob
		// into place; that's fine, the duplicate loses the race harmlessly.
		if s.Contains(expected) {
			return nil
		}
		return fmt.Errorf("hashstore: rename into place: %w", err)
	}

	metrics.BlobsAbsorbed.Inc()
	s.logger.Debug().Str("hash", fmt.Sprintf("%x", expected[:])).Msg("blob absorbed")
	return nil
}

// Open returns a reader over the stored blob bytes for hash.
func (s *Store) Open(hash types.Hash) (*os.File, error) {
	return os.Open(s.PathFor(hash))
}

// ReferencedHashes is implemented by callers that can enumerate every
// regular-file content hash across all layout rows of all packages in all
// live states (spec.md §4.2). It is a plain function type rather than an
// interface type so callers can pass a closure over the layout DB without
// an adapter struct.
type ReferencedHashes func() (map[types.Hash]struct{}, error)

// Sweep deletes every blob under the store not present in the set
// referenced returns. It must not run concurrently with an active
// transaction; callers are expected to hold the install-root lock.
func (s *Store) Sweep(referenced map[types.Hash]struct{}) (int, error) {
	removed := 0
	err := filepath.WalkDir(s.base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		hash, ok := hashFromPath(s.base, path)
		if !ok {
			return nil
		}
		if _, ok := referenced[hash]; ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("hashstore: sweep %s: %w", path, err)
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, err
	}
	s.pruneEmptyFanoutDirs()
	return removed, nil
}

// pruneEmptyFanoutDirs removes now-empty two-level fanout directories left
// behind by Sweep. Best-effort: failures are ignored, since an empty
// directory left on disk is harmless.
func (s *Store) pruneEmptyFanoutDirs() {
	firstLevel, err := os.ReadDir(s.base)
	if err != nil {
		return
	}
	for _, outer := range firstLevel {
		if !outer.IsDir() {
			continue
		}
		outerPath := filepath.Join(s.base, outer.Name())
		inner, err := os.ReadDir(outerPath)
		if err != nil {
			continue
		}
		for _, mid := range inner {
			if !mid.IsDir() {
				continue
			}
			midPath := filepath.Join(outerPath, mid.Name())
			entries, err := os.ReadDir(midPath)
			if err == nil && len(entries) == 0 {
				os.Remove(midPath)
			}
		}
		entries, err := os.ReadDir(outerPath)
		if err == nil && len(entries) == 0 {
			os.Remove(outerPath)
		}
	}
}

func hashFromPath(base, path string) (types.Hash, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return types.Hash{}, false
	}
	name := filepath.Base(rel)
	if len(name) != 32 {
		return types.Hash{}, false
	}
	raw, err := hex.DecodeString(name)
	if err != nil || len(raw) != 16 {
		return types.Hash{}, false
	}
	return types.Hash(raw), true
}
