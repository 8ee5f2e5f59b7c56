package root

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(Options{Path: dir})
	require.NoError(t, err)

	assert.DirExists(t, r.StorePath())
	assert.DirExists(t, filepath.Join(dir, ".moss", "db"))
	assert.DirExists(t, r.RootsDir())
}

func TestLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	r1, err := Open(Options{Path: dir})
	require.NoError(t, err)
	r2, err := Open(Options{Path: dir})
	require.NoError(t, err)

	require.NoError(t, r1.Lock())
	defer r1.Unlock()

	err = r2.Lock()
	assert.ErrorIs(t, err, ErrRootLocked)
}

func TestActiveStateIDRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(Options{Path: dir})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(r.UsrPath(), 0755))

	id, err := r.ActiveStateID()
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	require.NoError(t, r.SetActiveStateID(42))

	id, err = r.ActiveStateID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestDBPathNames(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(Options{Path: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ".moss", "db", "meta.db"), r.DBPath("meta"))
	assert.Equal(t, filepath.Join(dir, ".moss", "db", "layout.db"), r.DBPath("layout"))
	assert.Equal(t, filepath.Join(dir, ".moss", "db", "state.db"), r.DBPath("state"))
}
