package transaction

import "github.com/mossforge/moss/pkg/types"

// detectCollisions checks that the union of layout paths across every
// package in allEntries is unique, per spec.md §4.5 step 3. Two packages
// may legitimately declare the same directory; they may never both declare
// the same regular file, symlink, or device path, whatever its content.
func detectCollisions(allEntries map[types.Hash][]types.LayoutEntry) error {
	claimed := make(map[string]types.Hash)
	for pkgHash, entries := range allEntries {
		for _, e := range entries {
			if e.Type == types.EntryDirectory {
				continue
			}
			owner, ok := claimed[e.Path]
			if !ok {
				claimed[e.Path] = pkgHash
				continue
			}
			if owner != pkgHash {
				return &PathConflictError{Path: e.Path, First: owner, Second: pkgHash}
			}
		}
	}
	return nil
}
