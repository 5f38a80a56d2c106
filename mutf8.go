package andromeda

import (
	"unicode/utf16"
	"unicode/utf8"
)

// decodeMUTF8 decodes "modified UTF-8": ordinary UTF-8 except the NUL
// code point is encoded as the two-byte overlong sequence 0xC0 0x80, and
// codepoints above the BMP are encoded as a pair of three-byte
// surrogate-half sequences rather than a single four-byte sequence. No
// library in the retrieval pack implements this encoding (see
// DESIGN.md); it is small enough to decode directly off the two
// standard-library surrogate/rune helpers without reimplementing UTF-8
// itself.
func decodeMUTF8(b []byte) string {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c0 := b[i]
		switch {
		case c0&0x80 == 0:
			units = append(units, uint16(c0))
			i++
		case c0&0xe0 == 0xc0 && i+1 < len(b):
			c1 := b[i+1]
			units = append(units, uint16(c0&0x1f)<<6|uint16(c1&0x3f))
			i += 2
		case c0&0xf0 == 0xe0 && i+2 < len(b):
			c1, c2 := b[i+1], b[i+2]
			units = append(units, uint16(c0&0x0f)<<12|uint16(c1&0x3f)<<6|uint16(c2&0x3f))
			i += 3
		default:
			units = append(units, uint16(utf8.RuneError))
			i++
		}
	}
	return string(utf16.Decode(units))
}
