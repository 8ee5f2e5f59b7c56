package hashstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/types"
)

func TestAbsorbAndPathFor(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	content := []byte("hello moss")
	hash := HashBytes(content)

	require.NoError(t, s.Absorb(bytes.NewReader(content), hash))
	assert.True(t, s.Contains(hash))

	path := s.PathFor(hash)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	hexHash := filepath.Base(path)
	assert.Contains(t, path, hexHash[0:2])
	assert.Contains(t, path, hexHash[2:4])
}

func TestAbsorbIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	content := []byte("repeated bytes")
	hash := HashBytes(content)

	require.NoError(t, s.Absorb(bytes.NewReader(content), hash))
	require.NoError(t, s.Absorb(bytes.NewReader(content), hash))

	removed, err := s.Sweep(map[types.Hash]struct{}{hash: {}})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestAbsorbRejectsHashMismatch(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	var wrong types.Hash
	wrong[0] = 0xFF

	err = s.Absorb(bytes.NewReader([]byte("content")), wrong)
	assert.ErrorIs(t, err, ErrHashMismatch)
	assert.False(t, s.Contains(wrong))
}

func TestSweepRemovesUnreferenced(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	keep := []byte("keep me")
	drop := []byte("drop me")
	keepHash := HashBytes(keep)
	dropHash := HashBytes(drop)

	require.NoError(t, s.Absorb(bytes.NewReader(keep), keepHash))
	require.NoError(t, s.Absorb(bytes.NewReader(drop), dropHash))

	removed, err := s.Sweep(map[types.Hash]struct{}{keepHash: {}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.True(t, s.Contains(keepHash))
	assert.False(t, s.Contains(dropHash))
}

func TestLinkIntoHardlinksBlob(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	content := []byte("linked content")
	hash := HashBytes(content)
	require.NoError(t, s.Absorb(bytes.NewReader(content), hash))

	target := filepath.Join(t.TempDir(), "bin", "tool")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
	require.NoError(t, s.LinkInto(hash, target, 0755, uint32(os.Getuid()), uint32(os.Getgid())))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	srcInfo, err := os.Stat(s.PathFor(hash))
	require.NoError(t, err)
	dstInfo, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, os.SameFile(srcInfo, dstInfo))
}
