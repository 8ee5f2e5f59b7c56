package stone

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossforge/moss/pkg/types"
)

func buildSamplePackage(t *testing.T) []byte {
	t.Helper()
	w := NewWriter(FileTypeBinary)

	require.NoError(t, w.WriteMeta([]MetaRecord{
		{Tag: TagName, Primitive: PrimString, Value: "bash"},
		{Tag: TagVersion, Primitive: PrimString, Value: "5.2"},
		{Tag: TagRelease, Primitive: PrimUint64, Value: uint64(1)},
		{Tag: TagDepends, Primitive: PrimDependency, Value: types.Dependency{Kind: types.KindSharedLibrary, Value: "libc.so.6"}},
		{Tag: TagProvides, Primitive: PrimProvider, Value: types.Provider{Kind: types.KindBinary, Value: "/usr/bin/bash"}},
	}))

	digest := types.Hash{1, 2, 3, 4}
	require.NoError(t, w.WriteLayout([]LayoutRecord{
		{UID: 0, GID: 0, Mode: 0755, Type: types.EntryDirectory, Path: "bin"},
		{UID: 0, GID: 0, Mode: 0755, Type: types.EntryRegular, Path: "bash", ContentHash: digest},
	}))

	require.NoError(t, w.WriteContent([]ContentEntry{
		{Digest: digest, Plain: []byte("#!fake-bash-binary-bytes")},
	}))

	var buf bytes.Buffer
	require.NoError(t, w.Finish(&buf))
	return buf.Bytes()
}

func TestHeaderRoundTrip(t *testing.T) {
	data := buildSamplePackage(t)
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	h := r.HeaderV1()
	assert.Equal(t, FileTypeBinary, h.FileType)
	assert.Equal(t, uint16(4), h.NumPayloads) // meta, layout, index, content
}

func TestMetaRoundTrip(t *testing.T) {
	data := buildSamplePackage(t)
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	p, err := r.NextPayload()
	require.NoError(t, err)
	assert.Equal(t, KindMeta, p.Kind())

	var names []string
	for {
		rec, err := p.NextRecord()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if rec.Meta.Tag == TagName {
			names = append(names, rec.Meta.Value.(string))
		}
	}
	assert.Equal(t, []string{"bash"}, names)
}

func TestLayoutAndContentRoundTrip(t *testing.T) {
	data := buildSamplePackage(t)
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.NextPayload() // meta
	require.NoError(t, err)

	layoutPayload, err := r.NextPayload()
	require.NoError(t, err)
	assert.Equal(t, KindLayout, layoutPayload.Kind())

	var regularCount int
	for {
		rec, err := layoutPayload.NextRecord()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if rec.Layout.Type == types.EntryRegular {
			regularCount++
			assert.Equal(t, "bash", rec.Layout.Path)
		}
	}
	assert.Equal(t, 1, regularCount)

	indexPayload, err := r.NextPayload()
	require.NoError(t, err)
	assert.Equal(t, KindIndex, indexPayload.Kind())

	var ranges []IndexRecord
	for {
		rec, err := indexPayload.NextRecord()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ranges = append(ranges, *rec.Index)
	}
	require.Len(t, ranges, 1)

	contentPayload, err := r.NextPayload()
	require.NoError(t, err)
	assert.Equal(t, KindContent, contentPayload.Kind())

	cr, hint, err := contentPayload.ReadContent()
	require.NoError(t, err)
	assert.Greater(t, hint, 0)

	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "#!fake-bash-binary-bytes", string(got))
	assert.True(t, cr.IsChecksumValid())

	_, err = r.NextPayload()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBadMagic(t *testing.T) {
	data := buildSamplePackage(t)
	data[0] = 0xFF
	_, err := NewReader(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestTruncatedHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x00, 'm', 'o'}))
	assert.ErrorIs(t, err, ErrTruncatedPayload)
}

func TestZeroRecordPayloadDecodesEmpty(t *testing.T) {
	w := NewWriter(FileTypeRepository)
	require.NoError(t, w.WriteMeta(nil))
	var buf bytes.Buffer
	require.NoError(t, w.Finish(&buf))

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	p, err := r.NextPayload()
	require.NoError(t, err)

	_, err = p.NextRecord()
	assert.ErrorIs(t, err, io.EOF)
}

func TestChecksumMismatchOnCorruption(t *testing.T) {
	data := buildSamplePackage(t)
	// Flip a byte inside the content payload's stored bytes.
	data[len(data)-1] ^= 0xFF

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = r.NextPayload() // meta
	require.NoError(t, err)
	_, err = r.NextPayload() // layout
	require.NoError(t, err)
	_, err = r.NextPayload() // index
	require.NoError(t, err)
	contentPayload, err := r.NextPayload()
	require.NoError(t, err)

	cr, _, err := contentPayload.ReadContent()
	require.NoError(t, err)
	_, readErr := io.ReadAll(cr)
	// Corrupting the final byte of a zstd frame either breaks the frame
	// (decompression failure surfaces mid-stream) or survives decompression
	// and is caught by the trailing checksum check.
	if readErr != nil {
		assert.ErrorIs(t, readErr, ErrDecompressionFailed)
	} else {
		assert.False(t, cr.IsChecksumValid())
	}
}
