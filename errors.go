package andromeda

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a decode failure. The taxonomy is intentionally flat:
// callers switch on Kind rather than on concrete error types.
type Kind int

const (
	// Truncated means a read would pass the end of the buffer.
	Truncated Kind = iota + 1
	// BadMagic means a header's magic literal did not match.
	BadMagic
	// UnknownChunk means a chunk type code was unrecognized where unknowns
	// are not allowed.
	UnknownChunk
	// StructuralMismatch means an opener lacked a matching closer,
	// attribute_size was wrong, or declared sizes were inconsistent.
	StructuralMismatch
	// UnsupportedFeature means the input used a documented but unimplemented
	// path (UTF-8 string pools, styled strings, strict reverse-endian DEX).
	UnsupportedFeature
	// IndexOutOfRange means a pool index exceeded the pool during render.
	IndexOutOfRange
)

func (k Kind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case BadMagic:
		return "bad magic"
	case UnknownChunk:
		return "unknown chunk"
	case StructuralMismatch:
		return "structural mismatch"
	case UnsupportedFeature:
		return "unsupported feature"
	case IndexOutOfRange:
		return "index out of range"
	default:
		return fmt.Sprintf("kind<%d>", int(k))
	}
}

// DecodeError is the concrete error type returned by every decoder in this
// module. It carries the byte offset at which the failure was observed so
// callers can report where in the file things went wrong.
type DecodeError struct {
	Kind   Kind
	Offset int64
	Msg    string
	cause  error
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%x: %s", e.Kind, e.Offset, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.cause }

func newErr(kind Kind, offset int64, format string, args ...interface{}) error {
	return errors.WithStack(&DecodeError{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...)})
}

// IsKind reports whether err is (or wraps) a *DecodeError of the given Kind.
func IsKind(err error, kind Kind) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
