package transaction

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSweepRetainsActivePlusRetentionTrailingStates(t *testing.T) {
	te := newTestEngineWithRetention(t, 1)

	bash := buildTestPackage(t, "bash", 1, nil, map[string][]byte{"bin/bash": []byte("bash-bytes")})
	te.register(t, bash)
	_, err := te.engine.Install(context.Background(), []string{"bash"})
	require.NoError(t, err)

	_, err = te.engine.Remove(context.Background(), []string{"bash"})
	require.NoError(t, err)

	nano := buildTestPackage(t, "nano", 1, nil, map[string][]byte{"bin/nano": []byte("nano-bytes")})
	te.register(t, nano)
	_, err = te.engine.Install(context.Background(), []string{"nano"})
	require.NoError(t, err)

	vim := buildTestPackage(t, "vim", 1, nil, map[string][]byte{"bin/vim": []byte("vim-bytes")})
	te.register(t, vim)
	st, err := te.engine.Install(context.Background(), []string{"vim"})
	require.NoError(t, err)
	require.EqualValues(t, 4, st.ID)

	removedStates, removedBlobs, err := te.engine.Sweep()
	require.NoError(t, err)
	require.Equal(t, 2, removedStates)
	require.Equal(t, 1, removedBlobs)

	states, err := te.state.List()
	require.NoError(t, err)
	var ids []int64
	for _, s := range states {
		ids = append(ids, s.ID)
	}
	require.ElementsMatch(t, []int64{3, 4}, ids)

	_, err = os.Stat(filepath.Join(te.root.UsrPath(), "bin/vim"))
	require.NoError(t, err)
}

// A non-positive configured retention floors to 1 trailing state, per
// gc.go's "retention <= 0" clamp, so three installs still leave the active
// state plus one trailing state behind after a sweep.
func TestSweepWithZeroRetentionFloorsToOneTrailingState(t *testing.T) {
	te := newTestEngineWithRetention(t, 0)

	bash := buildTestPackage(t, "bash", 1, nil, map[string][]byte{"bin/bash": []byte("bash-bytes")})
	te.register(t, bash)
	_, err := te.engine.Install(context.Background(), []string{"bash"})
	require.NoError(t, err)

	nano := buildTestPackage(t, "nano", 1, nil, map[string][]byte{"bin/nano": []byte("nano-bytes")})
	te.register(t, nano)
	_, err = te.engine.Install(context.Background(), []string{"nano"})
	require.NoError(t, err)

	vim := buildTestPackage(t, "vim", 1, nil, map[string][]byte{"bin/vim": []byte("vim-bytes")})
	te.register(t, vim)
	st, err := te.engine.Install(context.Background(), []string{"vim"})
	require.NoError(t, err)

	removedStates, _, err := te.engine.Sweep()
	require.NoError(t, err)
	require.Equal(t, 1, removedStates)

	states, err := te.state.List()
	require.NoError(t, err)
	require.Len(t, states, 2)
	var ids []int64
	for _, s := range states {
		ids = append(ids, s.ID)
	}
	require.Contains(t, ids, st.ID)
}

func TestSweepLeavesActiveStateUntouchedWithNoTrailingStates(t *testing.T) {
	te := newTestEngineWithRetention(t, 1)

	bash := buildTestPackage(t, "bash", 1, nil, map[string][]byte{"bin/bash": []byte("bash-bytes")})
	te.register(t, bash)
	_, err := te.engine.Install(context.Background(), []string{"bash"})
	require.NoError(t, err)

	removedStates, removedBlobs, err := te.engine.Sweep()
	require.NoError(t, err)
	require.Equal(t, 0, removedStates)
	require.Equal(t, 0, removedBlobs)

	states, err := te.state.List()
	require.NoError(t, err)
	require.Len(t, states, 1)
}
