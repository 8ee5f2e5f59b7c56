package stone

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Reader decodes a stone container from any io.ReadSeeker. It validates
// the header on construction and yields payloads one at a time via
// NextPayload, matching spec.md §4.1's streaming-iterator contract.
type Reader struct {
	rs         io.ReadSeeker
	header     Header
	payloadIdx int
	nextOffset int64
}

// NewReader validates the stone header and returns a Reader positioned
// at the first payload.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	h, err := readHeader(rs)
	if err != nil {
		return nil, err
	}
	return &Reader{rs: rs, header: h, nextOffset: HeaderSize}, nil
}

// HeaderV1 returns the decoded header.
func (r *Reader) HeaderV1() Header { return r.header }

// NextPayload seeks past the previous payload's body and decodes the next
// payload header. It returns io.EOF once NumPayloads payloads have been
// produced.
func (r *Reader) NextPayload() (*PayloadReader, error) {
	if r.payloadIdx >= int(r.header.NumPayloads) {
		return nil, io.EOF
	}
	if _, err := r.rs.Seek(r.nextOffset, io.SeekStart); err != nil {
		return nil, err
	}

	idx := r.payloadIdx
	ph, err := readPayloadHeader(r.rs)
	if err != nil {
		return nil, wrapCodecErr(err, ph.Kind, idx)
	}

	bodyOffset, err := r.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	r.nextOffset = bodyOffset + int64(ph.StoredSize)
	r.payloadIdx++

	return &PayloadReader{
		rs:         r.rs,
		header:     ph,
		idx:        idx,
		bodyOffset: bodyOffset,
	}, nil
}

// PayloadReader decodes the body of a single payload: either a typed
// record stream (Meta/Layout/Index/Attributes) or a Content blob.
type PayloadReader struct {
	rs         io.ReadSeeker
	header     PayloadHeader
	idx        int
	bodyOffset int64

	decoded        bool
	plain          *bytes.Reader
	recordsEmitted uint32
}

// Kind reports which record type this payload decodes to.
func (p *PayloadReader) Kind() PayloadKind { return p.header.Kind }

// Header returns the decoded payload framing header.
func (p *PayloadReader) Header() PayloadHeader { return p.header }

// decodeBody reads and decompresses the whole payload body into memory.
// Only used for Meta/Layout/Index/Attributes payloads, which are small
// relative to Content.
func (p *PayloadReader) decodeBody() error {
	if p.decoded {
		return nil
	}
	if _, err := p.rs.Seek(p.bodyOffset, io.SeekStart); err != nil {
		return err
	}
	stored := make([]byte, p.header.StoredSize)
	if _, err := io.ReadFull(p.rs, stored); err != nil {
		return wrapCodecErr(ErrTruncatedPayload, p.header.Kind, p.idx)
	}

	plain, err := decompressAll(stored, p.header.PlainSize, p.header.Compression)
	if err != nil {
		return wrapCodecErr(err, p.header.Kind, p.idx)
	}

	if !verifyChecksum(plain, p.header.Checksum) {
		return wrapCodecErr(ErrChecksumMismatch, p.header.Kind, p.idx)
	}

	p.plain = bytes.NewReader(plain)
	p.decoded = true
	return nil
}

// NextRecord decodes and returns the next typed record in a Meta, Layout,
// Index, or Attributes payload. It returns io.EOF once NumRecords records
// have been emitted, or ErrCountMismatch if the body runs out first.
func (p *PayloadReader) NextRecord() (Record, error) {
	if p.header.Kind == KindContent {
		return Record{}, fmt.Errorf("stone: NextRecord called on a Content payload")
	}
	if err := p.decodeBody(); err != nil {
		return Record{}, err
	}

	if p.recordsEmitted >= p.header.NumRecords {
		if p.plain.Len() != 0 {
			return Record{}, wrapCodecErr(ErrCountMismatch, p.header.Kind, p.idx)
		}
		return Record{}, io.EOF
	}
	if p.plain.Len() == 0 {
		return Record{}, wrapCodecErr(ErrCountMismatch, p.header.Kind, p.idx)
	}

	rec, err := p.decodeOneRecord()
	if err != nil {
		if err == io.EOF {
			return Record{}, wrapCodecErr(ErrCountMismatch, p.header.Kind, p.idx)
		}
		return Record{}, wrapCodecErr(err, p.header.Kind, p.idx)
	}
	p.recordsEmitted++
	return rec, nil
}

func (p *PayloadReader) decodeOneRecord() (Record, error) {
	switch p.header.Kind {
	case KindMeta:
		m, err := decodeMetaRecord(p.plain)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindMeta, Meta: &m}, nil
	case KindLayout:
		l, err := decodeLayoutRecord(p.plain)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindLayout, Layout: &l}, nil
	case KindIndex:
		i, err := decodeIndexRecord(p.plain)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindIndex, Index: &i}, nil
	case KindAttributes:
		a, err := decodeAttributeRecord(p.plain)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindAttributes, Attribute: &a}, nil
	default:
		return Record{}, fmt.Errorf("%w: payload kind %d", ErrUnknownRecordTag, p.header.Kind)
	}
}

// Record is a tagged union over the four non-Content record types; only
// the field matching Kind is populated.
type Record struct {
	Kind      PayloadKind
	Meta      *MetaRecord
	Layout    *LayoutRecord
	Index     *IndexRecord
	Attribute *AttributeRecord
}

// contentBufferCap bounds the suggested read-buffer hint so a corrupt or
// malicious plain_size can't trigger an oversized allocation suggestion.
const contentBufferCap = 4 << 20

// ReadContent opens a streaming decompressing reader over a Content
// payload's body. bufHint suggests a read-buffer size to the caller,
// capped at contentBufferCap.
func (p *PayloadReader) ReadContent() (*ContentReader, int, error) {
	if p.header.Kind != KindContent {
		return nil, 0, fmt.Errorf("stone: ReadContent called on a %s payload", p.header.Kind)
	}
	if _, err := p.rs.Seek(p.bodyOffset, io.SeekStart); err != nil {
		return nil, 0, err
	}

	bodyLimit := io.LimitReader(p.rs, int64(p.header.StoredSize))

	var src io.Reader
	var zr *zstd.Decoder
	switch p.header.Compression {
	case CompressionNone:
		src = bodyLimit
	case CompressionZstd:
		var err error
		zr, err = zstd.NewReader(bodyLimit)
		if err != nil {
			return nil, 0, wrapCodecErr(fmt.Errorf("%w: %v", ErrDecompressionFailed, err), p.header.Kind, p.idx)
		}
		src = zr
	default:
		return nil, 0, fmt.Errorf("stone: unknown compression %d", p.header.Compression)
	}

	hint := int(p.header.PlainSize)
	if hint > contentBufferCap || hint <= 0 {
		hint = contentBufferCap
	}

	cr := &ContentReader{
		src:    src,
		zr:     zr,
		sum:    newStreamingChecksum(),
		want:   p.header.Checksum,
		idx:    p.idx,
		remain: p.header.PlainSize,
	}
	return cr, hint, nil
}

// ContentReader streams the decompressed bytes of a Content payload,
// validating the payload checksum as the final bytes are consumed.
type ContentReader struct {
	src     io.Reader
	zr      *zstd.Decoder
	sum     *streamingChecksum
	want    [checksumSize]byte
	idx     int
	remain  uint64
	done    bool
	valid   bool
	checked bool
}

// Read decompresses into buf, accumulating the running checksum. At EOF,
// check the accumulated checksum via IsChecksumValid before discarding
// the reader.
func (c *ContentReader) Read(buf []byte) (int, error) {
	n, err := c.src.Read(buf)
	if n > 0 {
		c.sum.Write(buf[:n])
		if uint64(n) > c.remain {
			c.remain = 0
		} else {
			c.remain -= uint64(n)
		}
	}
	if err == io.EOF {
		c.done = true
		c.valid = c.sum.Sum() == c.want && c.remain == 0
		c.checked = true
	} else if err != nil && c.zr != nil {
		err = wrapCodecErr(fmt.Errorf("%w: %v", ErrDecompressionFailed, err), KindContent, c.idx)
	}
	return n, err
}

// IsChecksumValid must be called after the stream has been fully read
// (i.e. after Read has returned io.EOF) and before the ContentReader is
// dropped, per spec.md §4.1.
func (c *ContentReader) IsChecksumValid() bool {
	return c.checked && c.valid
}

// Close releases the underlying zstd decoder, if any.
func (c *ContentReader) Close() error {
	if c.zr != nil {
		c.zr.Close()
	}
	return nil
}

func decompressAll(stored []byte, plainSize uint64, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return stored, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(stored))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		defer zr.Close()
		out := make([]byte, 0, plainSize)
		buf := bytes.NewBuffer(out)
		if _, err := io.Copy(buf, zr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("stone: unknown compression %d", comp)
	}
}
