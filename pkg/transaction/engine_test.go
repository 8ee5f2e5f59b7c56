package transaction

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/db/layout"
	"github.com/mossforge/moss/pkg/db/meta"
	"github.com/mossforge/moss/pkg/db/state"
	"github.com/mossforge/moss/pkg/hashstore"
	"github.com/mossforge/moss/pkg/repo"
	"github.com/mossforge/moss/pkg/root"
	"github.com/mossforge/moss/pkg/stone"
	"github.com/mossforge/moss/pkg/trigger"
	"github.com/mossforge/moss/pkg/types"
)

// memStone adapts an in-memory byte slice to repo.FetchedStone for tests
// that stand in for a real network fetch.
type memStone struct {
	*bytes.Reader
}

func (memStone) Close() error { return nil }

// fakeFetcher serves pre-built .stone bytes keyed by package hash instead
// of making an HTTP request.
type fakeFetcher struct {
	blobs map[types.Hash][]byte
}

func (f *fakeFetcher) FetchStone(ctx context.Context, pkg *types.Package) (repo.FetchedStone, error) {
	b, ok := f.blobs[pkg.Hash]
	if !ok {
		return nil, errors.New("fakeFetcher: no blob for package")
	}
	return memStone{bytes.NewReader(b)}, nil
}

// noopTriggers records every trigger it was asked to run but does nothing.
type noopTriggers struct {
	ran []trigger.Trigger
}

func (n *noopTriggers) Run(ctx context.Context, rootfsPath string, triggers []trigger.Trigger) error {
	n.ran = append(n.ran, triggers...)
	return nil
}

// testPackage is a built stone's package record plus its raw bytes, ready
// to be registered with both the metadata catalog and a fakeFetcher.
type testPackage struct {
	pkg   *types.Package
	bytes []byte
}

// buildTestPackage assembles a minimal installable package: a Meta
// payload, a Layout payload describing the given files under their
// directories, and a Content/Index payload pair holding the files' bytes.
func buildTestPackage(t *testing.T, name string, release int64, deps []types.Dependency, files map[string][]byte) testPackage {
	t.Helper()

	w := stone.NewWriter(stone.FileTypeBinary)

	dirsSeen := map[string]bool{}
	var layoutRecs []stone.LayoutRecord
	var content []stone.ContentEntry
	for path, data := range files {
		dir := filepath.Dir(path)
		for dir != "." && dir != "/" && !dirsSeen[dir] {
			dirsSeen[dir] = true
			layoutRecs = append(layoutRecs, stone.LayoutRecord{Mode: 0755, Type: types.EntryDirectory, Path: dir})
			dir = filepath.Dir(dir)
		}
		digest := hashstore.HashBytes(data)
		layoutRecs = append(layoutRecs, stone.LayoutRecord{
			Mode: 0644, Type: types.EntryRegular, Path: path, ContentHash: digest,
		})
		content = append(content, stone.ContentEntry{Digest: digest, Plain: data})
	}

	metaRecs := []stone.MetaRecord{
		{Tag: stone.TagName, Primitive: stone.PrimString, Value: name},
		{Tag: stone.TagVersion, Primitive: stone.PrimString, Value: "1.0"},
		{Tag: stone.TagArchitecture, Primitive: stone.PrimString, Value: "x86_64"},
		{Tag: stone.TagRelease, Primitive: stone.PrimUint64, Value: uint64(release)},
		{Tag: stone.TagBuildRelease, Primitive: stone.PrimUint64, Value: uint64(1)},
	}
	for _, d := range deps {
		metaRecs = append(metaRecs, stone.MetaRecord{Tag: stone.TagDepends, Primitive: stone.PrimDependency, Value: d})
	}

	require.NoError(t, w.WriteMeta(metaRecs))
	require.NoError(t, w.WriteLayout(layoutRecs))
	require.NoError(t, w.WriteContent(content))

	var buf bytes.Buffer
	require.NoError(t, w.Finish(&buf))

	pkg := &types.Package{
		Name:          name,
		Version:       "1.0",
		Architecture:  "x86_64",
		SourceRelease: release,
		BuildRelease:  1,
		Depends:       deps,
		URI:           "memory://" + name,
		Hash:          hashstore.HashBytes(buf.Bytes()),
	}
	return testPackage{pkg: pkg, bytes: buf.Bytes()}
}

type testEngine struct {
	engine  *Engine
	root    *root.Root
	meta    *meta.Store
	layout  *layout.Store
	state   *state.Store
	store   *hashstore.Store
	fetcher *fakeFetcher
	trig    *noopTriggers
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	return newTestEngineWithRetention(t, 2)
}

func newTestEngineWithRetention(t *testing.T, retention int) *testEngine {
	t.Helper()
	dir := t.TempDir()

	r, err := root.Open(root.Options{Path: dir})
	require.NoError(t, err)

	hs, err := hashstore.New(r.StorePath())
	require.NoError(t, err)

	ms, err := meta.Open(r.DBPath("meta"))
	require.NoError(t, err)
	t.Cleanup(func() { ms.Close() })

	ls, err := layout.Open(r.DBPath("layout"))
	require.NoError(t, err)
	t.Cleanup(func() { ls.Close() })

	ss, err := state.Open(r.DBPath("state"))
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	fetcher := &fakeFetcher{blobs: map[types.Hash][]byte{}}
	trig := &noopTriggers{}

	e := New(Config{
		Root:      r,
		Store:     hs,
		Meta:      ms,
		Layout:    ls,
		State:     ss,
		Fetcher:   fetcher,
		Triggers:  trig,
		Logger:    zerolog.Nop(),
		Retention: retention,
	})

	return &testEngine{engine: e, root: r, meta: ms, layout: ls, state: ss, store: hs, fetcher: fetcher, trig: trig}
}

// register makes a built test package resolvable by name and fetchable.
func (te *testEngine) register(t *testing.T, tp testPackage) {
	t.Helper()
	require.NoError(t, te.meta.UpsertPackage(tp.pkg))
	te.fetcher.blobs[tp.pkg.Hash] = tp.bytes
}

func TestInstallIntoEmptyRoot(t *testing.T) {
	te := newTestEngine(t)
	bash := buildTestPackage(t, "bash", 1, nil, map[string][]byte{
		"bin/bash": []byte("#!/bin/sh\necho hi\n"),
	})
	te.register(t, bash)

	st, err := te.engine.Install(context.Background(), []string{"bash"})
	require.NoError(t, err)
	require.EqualValues(t, 1, st.ID)

	activeID, err := te.root.ActiveStateID()
	require.NoError(t, err)
	require.EqualValues(t, 1, activeID)

	data, err := os.ReadFile(filepath.Join(te.root.UsrPath(), "bin/bash"))
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\necho hi\n", string(data))

	entries, err := te.layout.EntriesFor(bash.pkg.Hash)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestInstallTransitiveDependency(t *testing.T) {
	te := newTestEngine(t)
	libc := buildTestPackage(t, "libc", 1, nil, map[string][]byte{
		"lib/libc.so": []byte("libc-bytes"),
	})
	libc.pkg.Provides = []types.Provider{{Kind: types.KindSharedLibrary, Value: "libc.so.6"}}
	te.register(t, libc)

	bash := buildTestPackage(t, "bash", 1,
		[]types.Dependency{{Kind: types.KindSharedLibrary, Value: "libc.so.6"}},
		map[string][]byte{"bin/bash": []byte("bash-bytes")},
	)
	te.register(t, bash)

	st, err := te.engine.Install(context.Background(), []string{"bash"})
	require.NoError(t, err)
	require.Len(t, st.Selections, 2)

	_, err = os.Stat(filepath.Join(te.root.UsrPath(), "lib/libc.so"))
	require.NoError(t, err)
}

func TestInstallDetectsPathConflict(t *testing.T) {
	te := newTestEngine(t)
	a := buildTestPackage(t, "a", 1, nil, map[string][]byte{"bin/foo": []byte("aaa")})
	b := buildTestPackage(t, "b", 1, nil, map[string][]byte{"bin/foo": []byte("bbb")})
	te.register(t, a)
	te.register(t, b)

	_, err := te.engine.Install(context.Background(), []string{"a", "b"})
	require.Error(t, err)

	var conflict *PathConflictError
	require.True(t, errors.As(err, &conflict))

	activeID, err := te.root.ActiveStateID()
	require.NoError(t, err)
	require.EqualValues(t, 0, activeID)
}

func TestInstallThenRemoveDropsOrphanedFiles(t *testing.T) {
	te := newTestEngine(t)
	bash := buildTestPackage(t, "bash", 1, nil, map[string][]byte{"bin/bash": []byte("bash-bytes")})
	te.register(t, bash)

	_, err := te.engine.Install(context.Background(), []string{"bash"})
	require.NoError(t, err)

	st, err := te.engine.Remove(context.Background(), []string{"bash"})
	require.NoError(t, err)
	require.EqualValues(t, 2, st.ID)
	require.Empty(t, st.Selections)

	_, err = os.Stat(filepath.Join(te.root.UsrPath(), "bin/bash"))
	require.True(t, os.IsNotExist(err))
}

func TestRollbackActivatesRetainedState(t *testing.T) {
	te := newTestEngine(t)
	bash := buildTestPackage(t, "bash", 1, nil, map[string][]byte{"bin/bash": []byte("bash-v1")})
	te.register(t, bash)
	_, err := te.engine.Install(context.Background(), []string{"bash"})
	require.NoError(t, err)

	nano := buildTestPackage(t, "nano", 1, nil, map[string][]byte{"bin/nano": []byte("nano-v1")})
	te.register(t, nano)
	_, err = te.engine.Install(context.Background(), []string{"nano"})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(te.root.UsrPath(), "bin/nano"))
	require.NoError(t, err)

	st, err := te.engine.Activate(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, st.ID)

	activeID, err := te.root.ActiveStateID()
	require.NoError(t, err)
	require.EqualValues(t, 1, activeID)

	_, err = os.Stat(filepath.Join(te.root.UsrPath(), "bin/nano"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(te.root.UsrPath(), "bin/bash"))
	require.NoError(t, err)
}
