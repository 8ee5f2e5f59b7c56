package stone

import (
	"errors"
	"fmt"
)

// Sentinel errors matching the taxonomy in spec.md §4.1/§7. Use errors.Is
// to test for these; CodecError carries the offending context.
var (
	ErrBadMagic            = errors.New("stone: bad magic")
	ErrUnsupportedVersion  = errors.New("stone: unsupported header version")
	ErrTruncatedPayload    = errors.New("stone: truncated payload")
	ErrUnknownRecordTag    = errors.New("stone: unknown record tag")
	ErrDecompressionFailed = errors.New("stone: decompression failed")
	ErrChecksumMismatch    = errors.New("stone: checksum mismatch")
	ErrCountMismatch       = errors.New("stone: record count mismatch")
)

// CodecError wraps a sentinel with the payload/record context that
// produced it, so callers building user-facing diagnostics (spec.md §7)
// don't have to re-derive where in the file things went wrong.
type CodecError struct {
	Err         error
	PayloadKind PayloadKind
	PayloadIdx  int
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("stone: payload %d (%s): %v", e.PayloadIdx, e.PayloadKind, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

func wrapCodecErr(err error, kind PayloadKind, idx int) error {
	if err == nil {
		return nil
	}
	return &CodecError{Err: err, PayloadKind: kind, PayloadIdx: idx}
}
