package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/stone"
	"github.com/mossforge/moss/pkg/types"
)

func TestExtractLayoutCreatesDirsAndSymlinks(t *testing.T) {
	dest := t.TempDir()
	recs := []stone.LayoutRecord{
		{Type: types.EntryDirectory, Mode: 0755, Path: "bin"},
		{Type: types.EntryRegular, Mode: 0644, Path: "bin/bash", ContentHash: types.Hash{1}},
		{Type: types.EntrySymlink, Path: "bin/sh", SymlinkTarget: "bash"},
	}

	require.NoError(t, extractLayout(dest, recs))

	info, err := os.Stat(filepath.Join(dest, "bin"))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	target, err := os.Readlink(filepath.Join(dest, "bin/sh"))
	require.NoError(t, err)
	require.Equal(t, "bash", target)
}
