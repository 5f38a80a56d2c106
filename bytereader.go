package andromeda

import (
	"encoding/binary"
)

// reader is a stateful, position-tracked cursor over an immutable byte
// slice. It is the sole reusable primitive behind both the AXML and DEX
// decoders: every multi-byte read advances the cursor by the width read,
// and a read or seek that would cross the end of the buffer is reported
// as a Truncated error rather than panicking.
//
// A reader is not safe for concurrent use; each decode call owns one for
// its full duration and never shares it across goroutines.
type reader struct {
	buf      []byte
	pos      int64
	bigEndian bool
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

// position returns the current absolute offset into the buffer.
func (r *reader) position() int64 { return r.pos }

// len returns the total size of the underlying buffer.
func (r *reader) len() int64 { return int64(len(r.buf)) }

// seekTo moves the cursor to an absolute offset. Seeking past the end of
// the buffer is a fatal Truncated error, matching the byte-reader
// contract: the reader never silently clamps.
func (r *reader) seekTo(abs int64) error {
	if abs < 0 || abs > int64(len(r.buf)) {
		return newErr(Truncated, abs, "seek past end of buffer (len=%d)", len(r.buf))
	}
	r.pos = abs
	return nil
}

func (r *reader) require(n int64) error {
	if r.pos+n > int64(len(r.buf)) {
		return newErr(Truncated, r.pos, "need %d bytes, only %d remain", n, int64(len(r.buf))-r.pos)
	}
	return nil
}

// readBytes returns the next n bytes and advances the cursor. The
// returned slice aliases the underlying buffer; callers that need an
// owned copy must copy it out explicitly (see stringpool.go).
func (r *reader) readBytes(n int) ([]byte, error) {
	if err := r.require(int64(n)); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+int64(n)]
	r.pos += int64(n)
	return b, nil
}

func (r *reader) readU8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) readU16LE() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) readU16BE() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) readU32LE() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) readU32BE() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// readU16 and readU32 read according to the reader's configured
// endianness, set by the DEX decoder once the endian tag has been read.
// The AXML decoder never flips this flag: AXML is little-endian only.
func (r *reader) readU16() (uint16, error) {
	if r.bigEndian {
		return r.readU16BE()
	}
	return r.readU16LE()
}

func (r *reader) readU32() (uint32, error) {
	if r.bigEndian {
		return r.readU32BE()
	}
	return r.readU32LE()
}

// readULEB128 reads an unsigned little-endian base-128 varint. The wire
// encoding is identical to the one implemented by encoding/binary, so the
// reader borrows that implementation rather than hand-rolling it (see
// DESIGN.md for why this one primitive stays on the standard library).
func (r *reader) readULEB128() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, newErr(Truncated, r.pos, "malformed or truncated uleb128")
	}
	r.pos += int64(n)
	return v, nil
}

// readUntilNUL reads bytes up to (and consuming) the first 0x00 byte, or
// up to a hard cap of maxLen bytes if no NUL is found first. It returns
// the bytes before the terminator.
func (r *reader) readUntilNUL(maxLen int) ([]byte, error) {
	start := r.pos
	limit := int64(len(r.buf))
	if maxLen >= 0 && start+int64(maxLen) < limit {
		limit = start + int64(maxLen)
	}
	for i := start; i < limit; i++ {
		if r.buf[i] == 0 {
			out := r.buf[start:i]
			r.pos = i + 1
			return out, nil
		}
	}
	return nil, newErr(Truncated, start, "no NUL terminator within %d bytes", maxLen)
}
