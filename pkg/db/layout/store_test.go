package layout

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "layout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEntries(contentHash types.Hash) []types.LayoutEntry {
	return []types.LayoutEntry{
		{UID: 0, GID: 0, Mode: 0755, Type: types.EntryDirectory, Path: "bin"},
		{UID: 0, GID: 0, Mode: 0755, Type: types.EntryRegular, Path: "bin/bash", ContentHash: contentHash},
		{UID: 0, GID: 0, Mode: 0777, Type: types.EntrySymlink, Path: "bin/sh", SymlinkTarget: "bash"},
	}
}

func TestAddAndEntriesFor(t *testing.T) {
	s := openTestStore(t)
	pkgID := types.Hash{1, 2, 3}
	contentHash := types.Hash{9, 9, 9}
	require.NoError(t, s.AddPackage(pkgID, sampleEntries(contentHash)))

	entries, err := s.EntriesFor(pkgID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var regular, symlink *types.LayoutEntry
	for i := range entries {
		switch entries[i].Type {
		case types.EntryRegular:
			regular = &entries[i]
		case types.EntrySymlink:
			symlink = &entries[i]
		}
	}
	require.NotNil(t, regular)
	assert.Equal(t, contentHash, regular.ContentHash)
	require.NotNil(t, symlink)
	assert.Equal(t, "bash", symlink.SymlinkTarget)
}

func TestRemovePackage(t *testing.T) {
	s := openTestStore(t)
	pkgID := types.Hash{1}
	require.NoError(t, s.AddPackage(pkgID, sampleEntries(types.Hash{2})))

	require.NoError(t, s.RemovePackage(pkgID))

	entries, err := s.EntriesFor(pkgID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAllContentHashes(t *testing.T) {
	s := openTestStore(t)
	hashA := types.Hash{1}
	hashB := types.Hash{2}
	require.NoError(t, s.AddPackage(types.Hash{100}, sampleEntries(hashA)))
	require.NoError(t, s.AddPackage(types.Hash{101}, sampleEntries(hashB)))

	hashes, err := s.AllContentHashes()
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
	_, okA := hashes[hashA]
	_, okB := hashes[hashB]
	assert.True(t, okA)
	assert.True(t, okB)
}

func TestPathsFor(t *testing.T) {
	s := openTestStore(t)
	pkgID := types.Hash{1}
	require.NoError(t, s.AddPackage(pkgID, sampleEntries(types.Hash{2})))

	paths, err := s.PathsFor(pkgID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bin", "bin/bash", "bin/sh"}, paths)
}
