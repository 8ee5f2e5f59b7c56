package stone

import (
	"encoding/binary"
	"io"
)

// HeaderSize is the fixed size of a stone file header.
const HeaderSize = 32

var magic = [4]byte{0x00, 'm', 'o', 's'}

// FileType is the version-1 header's file-type byte.
type FileType uint8

const (
	FileTypeBinary     FileType = iota // installable package
	FileTypeDelta                      // binary delta between two packages
	FileTypeRepository                 // stone.index repository catalog
	FileTypeManifest                   // build manifest
)

func (t FileType) String() string {
	switch t {
	case FileTypeBinary:
		return "binary"
	case FileTypeDelta:
		return "delta"
	case FileTypeRepository:
		return "repository"
	case FileTypeManifest:
		return "manifest"
	default:
		return "unknown"
	}
}

// HeaderVersion1 is the only header layout this codec understands.
const HeaderVersion1 = 1

// Header is the decoded 32-byte stone file header.
type Header struct {
	Version     uint32
	FileType    FileType
	NumPayloads uint16
}

// readHeader validates magic and version and decodes the version-1
// layout: payload count in bytes 24-25 (big-endian), file type in byte 26.
func readHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return Header{}, ErrTruncatedPayload
		}
		return Header{}, err
	}

	if [4]byte(buf[0:4]) != magic {
		return Header{}, ErrBadMagic
	}

	version := binary.BigEndian.Uint32(buf[28:32])
	// version occupies the trailing 4 bytes of the header per spec.md §3.2;
	// version 1 packs payload-count and file-type into bytes 24-26, ahead
	// of it; byte 27 is unused.
	if version != HeaderVersion1 {
		return Header{}, ErrUnsupportedVersion
	}

	fileType := FileType(buf[26])
	numPayloads := binary.BigEndian.Uint16(buf[24:26])

	return Header{
		Version:     version,
		FileType:    fileType,
		NumPayloads: numPayloads,
	}, nil
}

// writeHeader encodes h into the fixed 32-byte layout.
func writeHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	copy(buf[0:4], magic[:])
	binary.BigEndian.PutUint16(buf[24:26], h.NumPayloads)
	buf[26] = byte(h.FileType)
	binary.BigEndian.PutUint32(buf[28:32], h.Version)
	_, err := w.Write(buf[:])
	return err
}
