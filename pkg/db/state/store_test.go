package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCommitAndGet(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	st := &types.State{
		Kind:    types.StateKindTransaction,
		Summary: "install bash",
		Selections: []types.Selection{
			{PackageHash: types.Hash{1}, Explicit: true, Reason: "requested"},
			{PackageHash: types.Hash{2}, Explicit: false, Reason: "dependency of bash"},
		},
	}
	id, err := s.Commit(st, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	got, err := s.Get(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.StateKindTransaction, got.Kind)
	assert.Equal(t, "install bash", got.Summary)
	assert.True(t, got.Created.Equal(now))
	require.Len(t, got.Selections, 2)
}

func TestLatestReturnsMostRecent(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	first := &types.State{Kind: types.StateKindTransaction, Selections: []types.Selection{{PackageHash: types.Hash{1}, Explicit: true}}}
	second := &types.State{Kind: types.StateKindTransaction, Selections: []types.Selection{{PackageHash: types.Hash{2}, Explicit: true}}}

	id1, err := s.Commit(first, now)
	require.NoError(t, err)
	id2, err := s.Commit(second, now.Add(time.Second))
	require.NoError(t, err)
	require.Greater(t, id2, id1)

	latest, err := s.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, id2, latest.ID)
}

func TestListOrdersByID(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.Commit(&types.State{Kind: types.StateKindTransaction}, now)
		require.NoError(t, err)
	}

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(3), all[2].ID)
}

func TestDeleteCascadesSelections(t *testing.T) {
	s := openTestStore(t)
	id, err := s.Commit(&types.State{
		Kind:       types.StateKindTransaction,
		Selections: []types.Selection{{PackageHash: types.Hash{1}, Explicit: true}},
	}, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.Delete(id))

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetUnknownReturnsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Get(999)
	require.NoError(t, err)
	assert.Nil(t, got)
}
