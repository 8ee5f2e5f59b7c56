package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/types"
)

// fakeSource is an in-memory CandidateSource for resolver tests.
type fakeSource struct {
	byHash map[types.Hash]*types.Package
}

func newFakeSource(pkgs ...*types.Package) *fakeSource {
	f := &fakeSource{byHash: make(map[types.Hash]*types.Package)}
	for _, p := range pkgs {
		f.byHash[p.Hash] = p
	}
	return f
}

func (f *fakeSource) GetPackage(hash types.Hash) (*types.Package, error) {
	return f.byHash[hash], nil
}

func (f *fakeSource) FindByName(name string) ([]*types.Package, error) {
	var out []*types.Package
	for _, p := range f.byHash {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSource) FindProviders(kind types.DependencyKind, value string) ([]*types.Package, error) {
	var out []*types.Package
	for _, p := range f.byHash {
		for _, prov := range p.Provides {
			if prov.Kind == kind && prov.Value == value {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func pkg(hash byte, name string, deps ...types.Dependency) *types.Package {
	return &types.Package{
		Hash:          types.Hash{hash},
		Name:          name,
		SourceRelease: 1,
		BuildRelease:  1,
		Depends:       deps,
	}
}

func dep(name string) types.Dependency {
	return types.Dependency{Kind: types.KindPackageName, Value: name}
}

func TestResolveAddWithTransitiveDeps(t *testing.T) {
	libc := pkg(1, "libc")
	bash := pkg(2, "bash", dep("libc"))
	src := newFakeSource(libc, bash)

	plan, err := New(src).Resolve(nil, ChangeSet{Add: []types.Dependency{dep("bash")}})
	require.NoError(t, err)

	require.Len(t, plan.Install, 2)
	assert.Equal(t, libc.Hash, plan.Install[0].Hash, "dependency staged before dependent")
	assert.Equal(t, bash.Hash, plan.Install[1].Hash)

	var explicitCount int
	for _, sel := range plan.Selections {
		if sel.Explicit {
			explicitCount++
			assert.Equal(t, bash.Hash, sel.PackageHash)
		}
	}
	assert.Equal(t, 1, explicitCount)
}

func TestResolveMissingProviderFails(t *testing.T) {
	src := newFakeSource()
	_, err := New(src).Resolve(nil, ChangeSet{Add: []types.Dependency{dep("nonexistent")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestResolveConflictDetected(t *testing.T) {
	a := pkg(1, "a")
	a.Conflicts = []types.Provider{{Kind: types.KindPackageName, Value: "b"}}
	b := pkg(2, "b", dep("a"))
	src := newFakeSource(a, b)

	_, err := New(src).Resolve(nil, ChangeSet{Add: []types.Dependency{dep("b")}})
	require.Error(t, err)
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestResolveRemoveDropsOrphans(t *testing.T) {
	libc := pkg(1, "libc")
	bash := pkg(2, "bash", dep("libc"))
	src := newFakeSource(libc, bash)

	current := &types.State{Selections: []types.Selection{
		{PackageHash: bash.Hash, Explicit: true},
		{PackageHash: libc.Hash, Explicit: false, Reason: "dependency of bash"},
	}}

	plan, err := New(src).Resolve(current, ChangeSet{Remove: []string{"bash"}})
	require.NoError(t, err)
	assert.Empty(t, plan.Install)
	assert.Empty(t, plan.Selections)
	assert.ElementsMatch(t, []types.Hash{bash.Hash, libc.Hash}, plan.Remove)
	// bash depends on libc, so bash must be removed before libc.
	assert.Equal(t, bash.Hash, plan.Remove[0])
	assert.Equal(t, libc.Hash, plan.Remove[1])
}

func TestResolveKeepsReachableAutomaticPackages(t *testing.T) {
	libc := pkg(1, "libc")
	bash := pkg(2, "bash", dep("libc"))
	coreutils := pkg(3, "coreutils", dep("libc"))
	src := newFakeSource(libc, bash, coreutils)

	current := &types.State{Selections: []types.Selection{
		{PackageHash: bash.Hash, Explicit: true},
		{PackageHash: coreutils.Hash, Explicit: true},
		{PackageHash: libc.Hash, Explicit: false},
	}}

	plan, err := New(src).Resolve(current, ChangeSet{Remove: []string{"bash"}})
	require.NoError(t, err)
	assert.Empty(t, plan.Install)
	assert.Equal(t, []types.Hash{bash.Hash}, plan.Remove, "only bash goes; libc is still reachable from coreutils")
	assert.Len(t, plan.Selections, 2)
}
