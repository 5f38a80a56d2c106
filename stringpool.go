package andromeda

import (
	"unicode/utf16"
)

// SentinelIndex marks an absent pool reference in every *_idx field.
const SentinelIndex uint32 = 0xFFFFFFFF

// StringPool is the ordered, read-only store every AXML document's
// indices address into. Once populated its indices are stable; nothing
// in this package ever mutates a StringPool after decodeStringPool
// returns it.
type StringPool struct {
	strings []string
}

// Len returns the number of strings in the pool.
func (p *StringPool) Len() int { return len(p.strings) }

// Get resolves idx to its string. SentinelIndex resolves to ("", false)
// without error, matching the "absent" convention used throughout AXML.
func (p *StringPool) Get(idx uint32) (string, bool) {
	if idx == SentinelIndex {
		return "", false
	}
	if idx >= uint32(len(p.strings)) {
		return "", false
	}
	return p.strings[idx], true
}

// decodeStringPool parses a String Pool chunk body per §4.2: a
// string_count/style_count/flags/strings_start/styles_start header
// followed by string_count chunk-relative 32-bit offsets into a strings
// blob. header.start is the absolute offset the chunk header itself
// began at; every offset inside the body is relative to it.
func decodeStringPool(r *reader, header chunkHeader) (*StringPool, error) {
	stringCount, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	styleCount, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	flags, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	stringsStart, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	if _, err := r.readU32LE(); err != nil { // styles_start, unused: styled strings are unsupported
		return nil, err
	}

	if flags&stringPoolUTF8Flag != 0 {
		return nil, newErr(UnsupportedFeature, header.start, "UTF-8 encoded string pools are not supported")
	}
	if styleCount > 0 {
		return nil, newErr(UnsupportedFeature, header.start, "styled strings (style_count=%d) are not supported", styleCount)
	}

	offsets := make([]uint32, stringCount)
	for i := range offsets {
		off, err := r.readU32LE()
		if err != nil {
			return nil, err
		}
		offsets[i] = off
	}

	pool := &StringPool{strings: make([]string, stringCount)}
	base := header.start + int64(stringsStart)
	for i, off := range offsets {
		s, err := decodeUTF16PoolString(r, base+int64(off))
		if err != nil {
			return nil, err
		}
		pool.strings[i] = s
	}
	return pool, nil
}

// decodeUTF16PoolString reads one UTF-16LE pool entry at an absolute
// offset: a 2-byte length prefix, then that many 16-bit code units
// terminated by 0x0000, decoded with malformed sequences replaced by
// U+FFFD rather than rejected outright.
func decodeUTF16PoolString(r *reader, at int64) (string, error) {
	saved := r.position()
	defer func() { _ = r.seekTo(saved) }()

	if err := r.seekTo(at); err != nil {
		return "", err
	}
	length, err := r.readU16LE()
	if err != nil {
		return "", err
	}

	units := make([]uint16, 0, length)
	for {
		u, err := r.readU16LE()
		if err != nil {
			return "", err
		}
		if u == 0 {
			break
		}
		units = append(units, u)
	}

	// utf16.Decode already substitutes the replacement character for any
	// unpaired surrogate, matching the "replacing malformed sequences"
	// rule from §4.2.
	return string(utf16.Decode(units)), nil
}
