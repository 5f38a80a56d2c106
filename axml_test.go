package andromeda

import (
	"encoding/binary"
	"unicode/utf16"
)

// The helpers below hand-assemble AXML byte buffers for the scenarios in
// §8. Production code in this module never encodes AXML (it is
// documented as read-only, §1); these builders exist only to give the
// decoder real bytes to chew on in tests.

func putU16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

func appendU16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	putU16(b, v)
	return append(buf, b...)
}

func appendU32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	putU32(b, v)
	return append(buf, b...)
}

// buildStringPool returns the bytes of a complete String Pool chunk
// (0x0001), UTF-16LE encoded, with no styles.
func buildStringPool(strings []string) []byte {
	const bodyHeaderSize = 28 // 8 common + 5*4 (count,style,flags,stringsStart,stylesStart)

	var blob []byte
	offsets := make([]uint32, len(strings))
	for i, s := range strings {
		offsets[i] = uint32(len(blob))
		units := utf16.Encode([]rune(s))
		blob = appendU16(blob, uint16(len(units)))
		for _, u := range units {
			blob = appendU16(blob, u)
		}
		blob = appendU16(blob, 0)
	}

	stringsStart := uint32(bodyHeaderSize + 4*len(strings))
	totalSize := stringsStart + uint32(len(blob))

	out := make([]byte, 0, totalSize)
	out = appendU16(out, chunkStringPool)
	out = appendU16(out, bodyHeaderSize)
	out = appendU32(out, totalSize)
	out = appendU32(out, uint32(len(strings)))
	out = appendU32(out, 0) // style_count
	out = appendU32(out, 0) // flags
	out = appendU32(out, stringsStart)
	out = appendU32(out, 0) // styles_start, unused
	for _, off := range offsets {
		out = appendU32(out, off)
	}
	out = append(out, blob...)
	return out
}

func buildStringPoolWithFlags(strings []string, flags uint32) []byte {
	b := buildStringPool(strings)
	// flags sits right after string_count/style_count, at body offset 16.
	putU32(b[16:20], flags)
	return b
}

func buildNamespace(typ uint16, prefixIdx, uriIdx uint32) []byte {
	const headerSize = 16
	const totalSize = headerSize + 8
	out := make([]byte, 0, totalSize)
	out = appendU16(out, typ)
	out = appendU16(out, headerSize)
	out = appendU32(out, uint32(totalSize))
	out = appendU32(out, 0) // line_number
	out = appendU32(out, SentinelIndex) // comment_idx
	out = appendU32(out, prefixIdx)
	out = appendU32(out, uriIdx)
	return out
}

type testAttr struct {
	ns, name, rawValue uint32
	valueType          ValueType
	data               uint32
}

func buildElement(typ uint16, nsIdx, nameIdx uint32, attrs []testAttr) []byte {
	const headerSize = 16
	const attrExtSize = 20 // ns,name,attrStart,attrSize,attrCount,id,class,style
	totalSize := headerSize + attrExtSize + len(attrs)*attributeRecordSize

	out := make([]byte, 0, totalSize)
	out = appendU16(out, typ)
	out = appendU16(out, headerSize)
	out = appendU32(out, uint32(totalSize))
	out = appendU32(out, 0)             // line_number
	out = appendU32(out, SentinelIndex) // comment_idx
	out = appendU32(out, nsIdx)
	out = appendU32(out, nameIdx)
	out = appendU16(out, uint16(attrExtSize)) // attribute_start, relative to attrExt start
	out = appendU16(out, attributeRecordSize) // attribute_size
	out = appendU16(out, uint16(len(attrs)))
	out = appendU16(out, 0) // id_index
	out = appendU16(out, 0) // class_index
	out = appendU16(out, 0) // style_index

	for _, a := range attrs {
		out = appendU32(out, a.ns)
		out = appendU32(out, a.name)
		out = appendU32(out, a.rawValue)
		out = appendU16(out, 8) // value_size
		out = append(out, 0)    // res0
		out = append(out, byte(a.valueType))
		out = appendU32(out, a.data)
	}
	return out
}

func buildEndElement(nsIdx, nameIdx uint32) []byte {
	return buildNamespace(chunkXMLTagEnd, nsIdx, nameIdx)
}

// wrapRoot wraps the concatenation of chunks as the single XML root chunk.
func wrapRoot(chunks ...[]byte) []byte {
	var body []byte
	for _, c := range chunks {
		body = append(body, c...)
	}
	const headerSize = 8
	totalSize := headerSize + len(body)
	out := make([]byte, 0, totalSize)
	out = appendU16(out, chunkXMLRoot)
	out = appendU16(out, headerSize)
	out = appendU32(out, uint32(totalSize))
	out = append(out, body...)
	return out
}
