package stone

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mossforge/moss/pkg/types"
)

// MetaTag enumerates the Meta payload's record tags (spec.md §3.2).
type MetaTag uint16

const (
	TagName MetaTag = iota
	TagArchitecture
	TagVersion
	TagSummary
	TagDescription
	TagHomepage
	TagSourceID
	TagDepends
	TagProvides
	TagConflicts
	TagRelease
	TagLicense
	TagBuildRelease
	TagPackageURI
	TagPackageHash
	TagPackageSize
	TagBuildDepends
	TagSourceURI
	TagSourcePath
	TagSourceRef
)

// PrimitiveType enumerates the wire encoding of a Meta record's value.
type PrimitiveType uint8

const (
	PrimInt8 PrimitiveType = iota
	PrimInt16
	PrimInt32
	PrimInt64
	PrimUint8
	PrimUint16
	PrimUint32
	PrimUint64
	PrimString
	PrimDependency
	PrimProvider
)

// MetaRecord is one decoded Meta payload entry. Value holds an int64,
// uint64, string, types.Dependency, or types.Provider depending on
// Primitive.
type MetaRecord struct {
	Tag       MetaTag
	Primitive PrimitiveType
	Value     interface{}
}

func readString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", ErrTruncatedPayload
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ErrTruncatedPayload
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("stone: string too long for length prefix: %d bytes", len(s))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readDependencyKind(r io.Reader) (types.DependencyKind, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrTruncatedPayload
	}
	return types.DependencyKind(b[0]), nil
}

func decodeMetaRecord(r io.Reader) (MetaRecord, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return MetaRecord{}, ErrTruncatedPayload
	}
	tag := MetaTag(binary.BigEndian.Uint16(hdr[0:2]))
	prim := PrimitiveType(hdr[2])

	rec := MetaRecord{Tag: tag, Primitive: prim}

	switch prim {
	case PrimInt8, PrimUint8:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return MetaRecord{}, ErrTruncatedPayload
		}
		if prim == PrimInt8 {
			rec.Value = int64(int8(b[0]))
		} else {
			rec.Value = uint64(b[0])
		}
	case PrimInt16, PrimUint16:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return MetaRecord{}, ErrTruncatedPayload
		}
		v := binary.BigEndian.Uint16(b[:])
		if prim == PrimInt16 {
			rec.Value = int64(int16(v))
		} else {
			rec.Value = uint64(v)
		}
	case PrimInt32, PrimUint32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return MetaRecord{}, ErrTruncatedPayload
		}
		v := binary.BigEndian.Uint32(b[:])
		if prim == PrimInt32 {
			rec.Value = int64(int32(v))
		} else {
			rec.Value = uint64(v)
		}
	case PrimInt64, PrimUint64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return MetaRecord{}, ErrTruncatedPayload
		}
		v := binary.BigEndian.Uint64(b[:])
		if prim == PrimInt64 {
			rec.Value = int64(v)
		} else {
			rec.Value = v
		}
	case PrimString:
		s, err := readString(r)
		if err != nil {
			return MetaRecord{}, err
		}
		rec.Value = s
	case PrimDependency:
		kind, err := readDependencyKind(r)
		if err != nil {
			return MetaRecord{}, err
		}
		s, err := readString(r)
		if err != nil {
			return MetaRecord{}, err
		}
		rec.Value = types.Dependency{Kind: kind, Value: s}
	case PrimProvider:
		kind, err := readDependencyKind(r)
		if err != nil {
			return MetaRecord{}, err
		}
		s, err := readString(r)
		if err != nil {
			return MetaRecord{}, err
		}
		rec.Value = types.Provider{Kind: kind, Value: s}
	default:
		return MetaRecord{}, fmt.Errorf("%w: primitive type %d", ErrUnknownRecordTag, prim)
	}

	return rec, nil
}

func encodeMetaRecord(w io.Writer, rec MetaRecord) error {
	var hdr [3]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(rec.Tag))
	hdr[2] = byte(rec.Primitive)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	switch rec.Primitive {
	case PrimInt64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(rec.Value.(int64)))
		_, err := w.Write(b[:])
		return err
	case PrimUint64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], rec.Value.(uint64))
		_, err := w.Write(b[:])
		return err
	case PrimString:
		return writeString(w, rec.Value.(string))
	case PrimDependency:
		d := rec.Value.(types.Dependency)
		if _, err := w.Write([]byte{byte(d.Kind)}); err != nil {
			return err
		}
		return writeString(w, d.Value)
	case PrimProvider:
		p := rec.Value.(types.Provider)
		if _, err := w.Write([]byte{byte(p.Kind)}); err != nil {
			return err
		}
		return writeString(w, p.Value)
	default:
		return fmt.Errorf("stone: unsupported primitive on write: %d", rec.Primitive)
	}
}

// LayoutRecord is one decoded Layout payload entry (spec.md §3.2).
type LayoutRecord struct {
	UID           uint32
	GID           uint32
	Mode          uint32
	Tag           uint32
	Type          types.EntryType
	Path          string
	ContentHash   types.Hash
	SymlinkTarget string
}

func decodeLayoutRecord(r io.Reader) (LayoutRecord, error) {
	var fixed [17]byte // uid,gid,mode,tag (4 each) + type (1)
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return LayoutRecord{}, ErrTruncatedPayload
	}

	rec := LayoutRecord{
		UID:  binary.BigEndian.Uint32(fixed[0:4]),
		GID:  binary.BigEndian.Uint32(fixed[4:8]),
		Mode: binary.BigEndian.Uint32(fixed[8:12]),
		Tag:  binary.BigEndian.Uint32(fixed[12:16]),
		Type: types.EntryType(fixed[16]),
	}

	switch rec.Type {
	case types.EntryRegular:
		var hash [16]byte
		if _, err := io.ReadFull(r, hash[:]); err != nil {
			return LayoutRecord{}, ErrTruncatedPayload
		}
		rec.ContentHash = types.Hash(hash)
		name, err := readString(r)
		if err != nil {
			return LayoutRecord{}, err
		}
		rec.Path = name
	case types.EntrySymlink:
		source, err := readString(r)
		if err != nil {
			return LayoutRecord{}, err
		}
		target, err := readString(r)
		if err != nil {
			return LayoutRecord{}, err
		}
		rec.Path = source
		rec.SymlinkTarget = target
	case types.EntryDirectory, types.EntryCharDevice, types.EntryBlockDevice, types.EntryFIFO, types.EntrySocket:
		path, err := readString(r)
		if err != nil {
			return LayoutRecord{}, err
		}
		rec.Path = path
	default:
		return LayoutRecord{}, fmt.Errorf("%w: layout entry type %d", ErrUnknownRecordTag, rec.Type)
	}

	return rec, nil
}

func encodeLayoutRecord(w io.Writer, rec LayoutRecord) error {
	var fixed [17]byte
	binary.BigEndian.PutUint32(fixed[0:4], rec.UID)
	binary.BigEndian.PutUint32(fixed[4:8], rec.GID)
	binary.BigEndian.PutUint32(fixed[8:12], rec.Mode)
	binary.BigEndian.PutUint32(fixed[12:16], rec.Tag)
	fixed[16] = byte(rec.Type)
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}

	switch rec.Type {
	case types.EntryRegular:
		if _, err := w.Write(rec.ContentHash[:]); err != nil {
			return err
		}
		return writeString(w, rec.Path)
	case types.EntrySymlink:
		if err := writeString(w, rec.Path); err != nil {
			return err
		}
		return writeString(w, rec.SymlinkTarget)
	default:
		return writeString(w, rec.Path)
	}
}

// IndexRecord maps a byte range of the following Content payload to the
// digest of the plain bytes in that range (spec.md §3.2).
type IndexRecord struct {
	Start  uint64
	End    uint64
	Digest types.Hash
}

func decodeIndexRecord(r io.Reader) (IndexRecord, error) {
	var buf [32]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return IndexRecord{}, ErrTruncatedPayload
	}
	return IndexRecord{
		Start:  binary.BigEndian.Uint64(buf[0:8]),
		End:    binary.BigEndian.Uint64(buf[8:16]),
		Digest: types.Hash(buf[16:32]),
	}, nil
}

func encodeIndexRecord(w io.Writer, rec IndexRecord) error {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[0:8], rec.Start)
	binary.BigEndian.PutUint64(buf[8:16], rec.End)
	copy(buf[16:32], rec.Digest[:])
	_, err := w.Write(buf[:])
	return err
}

// AttributeRecord is an opaque (key, value) pair reserved for
// forward-compatible extensions; unknown keys are never fatal.
type AttributeRecord struct {
	Key   string
	Value []byte
}

func decodeAttributeRecord(r io.Reader) (AttributeRecord, error) {
	key, err := readString(r)
	if err != nil {
		return AttributeRecord{}, err
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return AttributeRecord{}, ErrTruncatedPayload
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	val := make([]byte, n)
	if _, err := io.ReadFull(r, val); err != nil {
		return AttributeRecord{}, ErrTruncatedPayload
	}
	return AttributeRecord{Key: key, Value: val}, nil
}

func encodeAttributeRecord(w io.Writer, rec AttributeRecord) error {
	if err := writeString(w, rec.Key); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(rec.Value)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(rec.Value)
	return err
}
