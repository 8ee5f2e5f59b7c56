package stone

import (
	"encoding/binary"
	"io"
)

// PayloadKind tags what a payload's records decode to.
type PayloadKind uint8

const (
	KindMeta PayloadKind = iota
	KindLayout
	KindIndex
	KindContent
	KindAttributes
)

func (k PayloadKind) String() string {
	switch k {
	case KindMeta:
		return "meta"
	case KindLayout:
		return "layout"
	case KindIndex:
		return "index"
	case KindContent:
		return "content"
	case KindAttributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// Compression tags how a payload's body is stored on disk.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// payloadHeaderSize is the fixed size of each payload's own header.
const payloadHeaderSize = 8 + 8 + checksumSize + 4 + 2 + 1 + 1

// PayloadHeader is the decoded per-payload framing record.
type PayloadHeader struct {
	StoredSize  uint64
	PlainSize   uint64
	Checksum    [checksumSize]byte
	NumRecords  uint32
	Version     uint16
	Kind        PayloadKind
	Compression Compression
}

func readPayloadHeader(r io.Reader) (PayloadHeader, error) {
	var buf [payloadHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return PayloadHeader{}, ErrTruncatedPayload
		}
		return PayloadHeader{}, err
	}

	var h PayloadHeader
	h.StoredSize = binary.BigEndian.Uint64(buf[0:8])
	h.PlainSize = binary.BigEndian.Uint64(buf[8:16])
	copy(h.Checksum[:], buf[16:16+checksumSize])
	off := 16 + checksumSize
	h.NumRecords = binary.BigEndian.Uint32(buf[off : off+4])
	h.Version = binary.BigEndian.Uint16(buf[off+4 : off+6])
	h.Kind = PayloadKind(buf[off+6])
	h.Compression = Compression(buf[off+7])
	return h, nil
}

func writePayloadHeader(w io.Writer, h PayloadHeader) error {
	buf := make([]byte, payloadHeaderSize)
	binary.BigEndian.PutUint64(buf[0:8], h.StoredSize)
	binary.BigEndian.PutUint64(buf[8:16], h.PlainSize)
	copy(buf[16:16+checksumSize], h.Checksum[:])
	off := 16 + checksumSize
	binary.BigEndian.PutUint32(buf[off:off+4], h.NumRecords)
	binary.BigEndian.PutUint16(buf[off+4:off+6], h.Version)
	buf[off+6] = byte(h.Kind)
	buf[off+7] = byte(h.Compression)
	_, err := w.Write(buf)
	return err
}
