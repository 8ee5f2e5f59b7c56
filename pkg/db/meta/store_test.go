package meta

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/types"
)

func samplePackage() *types.Package {
	return &types.Package{
		Hash:          types.Hash{1, 2, 3},
		Name:          "bash",
		Version:       "5.2",
		SourceRelease: 10,
		BuildRelease:  1,
		Architecture:  "x86_64",
		Summary:       "The GNU Bourne-Again Shell",
		Licenses:      []string{"GPL-3.0-or-later"},
		Depends:       []types.Dependency{{Kind: types.KindSharedLibrary, Value: "libc.so.6"}},
		Provides:      []types.Provider{{Kind: types.KindBinary, Value: "/usr/bin/bash"}},
		RepoName:      "main",
		RepoPriority:  10,
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetPackage(t *testing.T) {
	s := openTestStore(t)
	pkg := samplePackage()
	require.NoError(t, s.UpsertPackage(pkg))

	got, err := s.GetPackage(pkg.Hash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pkg.Name, got.Name)
	assert.Equal(t, pkg.Version, got.Version)
	assert.Equal(t, []string{"GPL-3.0-or-later"}, got.Licenses)
	require.Len(t, got.Depends, 1)
	assert.Equal(t, "libc.so.6", got.Depends[0].Value)
	require.Len(t, got.Provides, 1)
	assert.Equal(t, "/usr/bin/bash", got.Provides[0].Value)
}

func TestUpsertReplacesSideTables(t *testing.T) {
	s := openTestStore(t)
	pkg := samplePackage()
	require.NoError(t, s.UpsertPackage(pkg))

	pkg.Depends = nil
	pkg.Licenses = []string{"MIT"}
	require.NoError(t, s.UpsertPackage(pkg))

	got, err := s.GetPackage(pkg.Hash)
	require.NoError(t, err)
	assert.Empty(t, got.Depends)
	assert.Equal(t, []string{"MIT"}, got.Licenses)
}

func TestGetPackageUnknownReturnsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetPackage(types.Hash{9, 9, 9})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindByNameAndProviders(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertPackage(samplePackage()))

	byName, err := s.FindByName("bash")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	byProvider, err := s.FindProviders(types.KindBinary, "/usr/bin/bash")
	require.NoError(t, err)
	require.Len(t, byProvider, 1)
	assert.Equal(t, "bash", byProvider[0].Name)

	none, err := s.FindProviders(types.KindBinary, "/usr/bin/zsh")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertPackage(samplePackage()))

	results, err := s.Search("Bourne")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bash", results[0].Name)

	results, err = s.Search("nonexistent")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeletePackageCascades(t *testing.T) {
	s := openTestStore(t)
	pkg := samplePackage()
	require.NoError(t, s.UpsertPackage(pkg))

	require.NoError(t, s.DeletePackage(pkg.Hash))

	got, err := s.GetPackage(pkg.Hash)
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int
	require.NoError(t, s.conn.Get(&count, `SELECT COUNT(*) FROM meta_dependencies WHERE package = ?`, pkg.Hash[:]))
	assert.Equal(t, 0, count)
}

func TestListPackagesOrdering(t *testing.T) {
	s := openTestStore(t)
	a := samplePackage()
	a.Hash = types.Hash{1}
	a.Name = "alpha"
	b := samplePackage()
	b.Hash = types.Hash{2}
	b.Name = "beta"
	require.NoError(t, s.UpsertPackage(b))
	require.NoError(t, s.UpsertPackage(a))

	all, err := s.ListPackages()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "beta", all[1].Name)
}
