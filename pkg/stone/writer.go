package stone

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/mossforge/moss/pkg/types"
)

// ContentEntry is one file's plain bytes to be absorbed into a Content
// payload; Writer computes the Index payload's (start, end) ranges from
// the order entries are given in.
type ContentEntry struct {
	Digest types.Hash
	Plain  []byte
}

// Writer builds a .stone container in memory and flushes it via Finish.
// It is used by the package builder (out of CORE scope) but lives in this
// package because it defines the wire format spec.md §4.1 specifies.
type Writer struct {
	fileType FileType
	body     bytes.Buffer
	count    uint16
}

// NewWriter starts a new stone container of the given file type.
func NewWriter(fileType FileType) *Writer {
	return &Writer{fileType: fileType}
}

// WriteMeta appends a Meta payload encoding records in order.
func (w *Writer) WriteMeta(records []MetaRecord) error {
	var plain bytes.Buffer
	for _, rec := range records {
		if err := encodeMetaRecord(&plain, rec); err != nil {
			return err
		}
	}
	return w.appendPayload(KindMeta, uint32(len(records)), plain.Bytes())
}

// WriteLayout appends a Layout payload encoding records in order.
func (w *Writer) WriteLayout(records []LayoutRecord) error {
	var plain bytes.Buffer
	for _, rec := range records {
		if err := encodeLayoutRecord(&plain, rec); err != nil {
			return err
		}
	}
	return w.appendPayload(KindLayout, uint32(len(records)), plain.Bytes())
}

// WriteAttributes appends an Attributes payload; unknown keys on read are
// never fatal, so this is the place for forward-compatible extensions.
func (w *Writer) WriteAttributes(records []AttributeRecord) error {
	var plain bytes.Buffer
	for _, rec := range records {
		if err := encodeAttributeRecord(&plain, rec); err != nil {
			return err
		}
	}
	return w.appendPayload(KindAttributes, uint32(len(records)), plain.Bytes())
}

// WriteContent appends an Index payload followed by a single Content
// payload, per spec.md §4.1: "the writer accepts plain byte slices and
// emits a single zstd-compressed payload plus an Index payload
// enumerating per-file (start, end, digest) ranges computed on the plain
// byte stream." The Index payload precedes the Content payload it
// describes, since a reader decodes payloads in file order.
func (w *Writer) WriteContent(entries []ContentEntry) error {
	var plain bytes.Buffer
	idx := make([]IndexRecord, 0, len(entries))
	var offset uint64
	for _, e := range entries {
		start := offset
		if _, err := plain.Write(e.Plain); err != nil {
			return err
		}
		offset += uint64(len(e.Plain))
		idx = append(idx, IndexRecord{Start: start, End: offset, Digest: e.Digest})
	}

	var idxPlain bytes.Buffer
	for _, rec := range idx {
		if err := encodeIndexRecord(&idxPlain, rec); err != nil {
			return err
		}
	}
	if err := w.appendPayload(KindIndex, uint32(len(idx)), idxPlain.Bytes()); err != nil {
		return err
	}

	return w.appendPayload(KindContent, 0, plain.Bytes())
}

func (w *Writer) appendPayload(kind PayloadKind, numRecords uint32, plain []byte) error {
	comp := CompressionZstd
	var stored []byte
	if len(plain) == 0 {
		comp = CompressionNone
		stored = plain
	} else {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		stored = enc.EncodeAll(plain, nil)
		enc.Close()
	}

	header := PayloadHeader{
		StoredSize:  uint64(len(stored)),
		PlainSize:   uint64(len(plain)),
		Checksum:    checksum(plain),
		NumRecords:  numRecords,
		Version:     1,
		Kind:        kind,
		Compression: comp,
	}

	if err := writePayloadHeader(&w.body, header); err != nil {
		return err
	}
	if _, err := w.body.Write(stored); err != nil {
		return err
	}
	w.count++
	return nil
}

// Finish writes the accumulated header and payloads to dst.
func (w *Writer) Finish(dst io.Writer) error {
	h := Header{Version: HeaderVersion1, FileType: w.fileType, NumPayloads: w.count}
	if err := writeHeader(dst, h); err != nil {
		return err
	}
	_, err := dst.Write(w.body.Bytes())
	return err
}
