package andromeda

// Endianness identifies which byte order a DEX file's multi-byte fields
// use, selected by the header's endian_tag.
type Endianness int

const (
	// LittleEndian is the tag 0x12345678, the overwhelmingly common case.
	LittleEndian Endianness = iota
	// ReverseEndian is the byte-reversed tag 0x78563412: every multi-byte
	// field after the header's endian_tag is big-endian. The original
	// reference decoder accepted this tag but kept reading little-endian
	// regardless, which the design notes call out as a bug; this decoder
	// swaps endianness for the remainder of the decode instead (see
	// DESIGN.md).
	ReverseEndian
)

func (e Endianness) String() string {
	if e == ReverseEndian {
		return "reverse"
	}
	return "little"
}

const (
	dexMagic           = "dex\n"
	dexHeaderSize      = 0x70
	dexEndianConstant  = 0x12345678
	dexReverseConstant = 0x78563412
)

// DexHeader is the fixed 0x70-byte header at offset 0 of a DEX file.
type DexHeader struct {
	Version     string
	Checksum    uint32
	Signature   [20]byte
	FileSize    uint32
	HeaderSize  uint32
	Endian      Endianness
	LinkSize    uint32
	LinkOff     uint32
	MapOff      uint32
	DataSize    uint32
	DataOff     uint32
}

type idTable struct {
	size uint32
	off  uint32
}

// ProtoID describes a method prototype: its shorty descriptor, return
// type, and the offset of its parameter type list.
type ProtoID struct {
	ShortyIdx      uint32
	ReturnTypeIdx  uint32
	ParametersOff  uint32
}

// FieldID describes one field reference.
type FieldID struct {
	ClassIdx uint16
	TypeIdx  uint16
	NameIdx  uint32
}

// MethodID describes one method reference.
type MethodID struct {
	ClassIdx uint16
	ProtoIdx uint16
	NameIdx  uint32
}

// ClassDef describes one class definition.
type ClassDef struct {
	ClassIdx        uint32
	AccessFlags     uint32
	SuperclassIdx   uint32
	InterfacesOff   uint32
	SourceFileIdx   uint32
	AnnotationsOff  uint32
	ClassDataOff    uint32
	StaticValuesOff uint32
}

// DexSummary is the decoded table index of a DEX file: the header plus
// every table it declares, per §3.
type DexSummary struct {
	Header    DexHeader
	Strings   []string
	Types     []uint32 // indices into Strings
	Protos    []ProtoID
	Fields    []FieldID
	Methods   []MethodID
	ClassDefs []ClassDef
}

// dexOptions controls decode behavior for the documented open questions
// in §9. The zero value implements the spec's chosen resolution:
// reverse-endian files decode rather than erroring.
type dexOptions struct {
	strictEndian bool // if true, ReverseEndian is UnsupportedFeature instead of decoded
}

// ParseDex parses a complete DEX byte buffer into a DexSummary. It is
// the second of the two pure orchestrator entry points named in §4.6.
func ParseDex(data []byte) (*DexSummary, error) {
	return parseDexWithOptions(data, dexOptions{})
}

func parseDexWithOptions(data []byte, opts dexOptions) (*DexSummary, error) {
	r := newReader(data)

	hdr, tables, err := decodeDexHeader(r, opts)
	if err != nil {
		return nil, err
	}
	r.bigEndian = hdr.Endian == ReverseEndian

	summary := &DexSummary{Header: hdr}

	if summary.Strings, err = decodeDexStrings(r, tables[tblStringIDs]); err != nil {
		return nil, err
	}
	if summary.Types, err = decodeDexTypeIDs(r, tables[tblTypeIDs]); err != nil {
		return nil, err
	}
	if summary.Protos, err = decodeDexProtoIDs(r, tables[tblProtoIDs]); err != nil {
		return nil, err
	}
	if summary.Fields, err = decodeDexFieldIDs(r, tables[tblFieldIDs]); err != nil {
		return nil, err
	}
	if summary.Methods, err = decodeDexMethodIDs(r, tables[tblMethodIDs]); err != nil {
		return nil, err
	}
	if summary.ClassDefs, err = decodeDexClassDefs(r, tables[tblClassDefs]); err != nil {
		return nil, err
	}

	return summary, nil
}

const (
	tblLink = iota
	tblMap
	tblStringIDs
	tblTypeIDs
	tblProtoIDs
	tblFieldIDs
	tblMethodIDs
	tblClassDefs
	tblCount
)

// decodeDexHeader reads the fixed 0x70-byte header described in §6.2 and
// returns it alongside the six ID-table (size, offset) directory entries
// it carries (link and map are kept in the header itself). No record's
// parsing depends on any other's, so the tables
// are decoded independently by the caller afterward (§4.5).
func decodeDexHeader(r *reader, opts dexOptions) (DexHeader, [tblCount]idTable, error) {
	var tables [tblCount]idTable

	magic, err := r.readBytes(4)
	if err != nil {
		return DexHeader{}, tables, err
	}
	if string(magic) != dexMagic {
		return DexHeader{}, tables, newErr(BadMagic, 0, "expected magic %q, got %q", dexMagic, magic)
	}

	versionBytes, err := r.readBytes(4)
	if err != nil {
		return DexHeader{}, tables, err
	}

	hdr := DexHeader{Version: string(versionBytes[:3])}

	checksum, err := r.readU32LE()
	if err != nil {
		return DexHeader{}, tables, err
	}
	hdr.Checksum = checksum

	sig, err := r.readBytes(20)
	if err != nil {
		return DexHeader{}, tables, err
	}
	copy(hdr.Signature[:], sig)

	if hdr.FileSize, err = r.readU32LE(); err != nil {
		return DexHeader{}, tables, err
	}
	if hdr.HeaderSize, err = r.readU32LE(); err != nil {
		return DexHeader{}, tables, err
	}

	endianTag, err := r.readU32LE()
	if err != nil {
		return DexHeader{}, tables, err
	}
	switch endianTag {
	case dexEndianConstant:
		hdr.Endian = LittleEndian
	case dexReverseConstant:
		if opts.strictEndian {
			return DexHeader{}, tables, newErr(UnsupportedFeature, r.position(), "reverse-endian DEX rejected in strict mode")
		}
		hdr.Endian = ReverseEndian
	default:
		// An unrecognized endian tag is tolerated as LittleEndian, matching
		// the reference decoder's faithful behavior (a warning, not a
		// hard failure) rather than rejecting the file outright.
		hdr.Endian = LittleEndian
	}

	// From here on, numeric reads honor the endian tag just decoded.
	r.bigEndian = hdr.Endian == ReverseEndian

	linkSize, err := r.readU32()
	if err != nil {
		return DexHeader{}, tables, err
	}
	linkOff, err := r.readU32()
	if err != nil {
		return DexHeader{}, tables, err
	}
	mapOff, err := r.readU32()
	if err != nil {
		return DexHeader{}, tables, err
	}
	hdr.LinkSize, hdr.LinkOff, hdr.MapOff = linkSize, linkOff, mapOff

	order := []int{tblStringIDs, tblTypeIDs, tblProtoIDs, tblFieldIDs, tblMethodIDs, tblClassDefs}
	for _, idx := range order {
		size, err := r.readU32()
		if err != nil {
			return DexHeader{}, tables, err
		}
		off, err := r.readU32()
		if err != nil {
			return DexHeader{}, tables, err
		}
		tables[idx] = idTable{size: size, off: off}
	}

	dataSize, err := r.readU32()
	if err != nil {
		return DexHeader{}, tables, err
	}
	dataOff, err := r.readU32()
	if err != nil {
		return DexHeader{}, tables, err
	}
	hdr.DataSize, hdr.DataOff = dataSize, dataOff

	return hdr, tables, nil
}

// decodeDexStrings resolves the string-ids table: size absolute offsets
// into the data section, each pointing at a ULEB128 character count
// followed by NUL-terminated MUTF-8 bytes. Per the design notes, this
// reads until the NUL terminator and decodes MUTF-8, rather than
// trusting the ULEB128 count as a byte length (the source's bug — see
// DESIGN.md). The count is still used as a sanity upper bound so a
// corrupt file cannot force an unbounded scan.
func decodeDexStrings(r *reader, t idTable) ([]string, error) {
	if err := r.seekTo(int64(t.off)); err != nil {
		return nil, err
	}
	offsets := make([]uint32, t.size)
	for i := range offsets {
		off, err := r.readU32()
		if err != nil {
			return nil, err
		}
		offsets[i] = off
	}

	out := make([]string, t.size)
	for i, off := range offsets {
		if err := r.seekTo(int64(off)); err != nil {
			return nil, err
		}
		utf16Count, err := r.readULEB128()
		if err != nil {
			return nil, err
		}
		// A UTF-16 character count upper-bounds the MUTF-8 byte length at
		// 3 bytes/char (surrogate pairs can cost up to 6 bytes for 2
		// UTF-16 units, i.e. 3 bytes/unit).
		maxBytes := int(utf16Count)*3 + 4
		raw, err := r.readUntilNUL(maxBytes)
		if err != nil {
			return nil, err
		}
		out[i] = decodeMUTF8(raw)
	}
	return out, nil
}

func decodeDexTypeIDs(r *reader, t idTable) ([]uint32, error) {
	if err := r.seekTo(int64(t.off)); err != nil {
		return nil, err
	}
	out := make([]uint32, t.size)
	for i := range out {
		v, err := r.readU32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeDexProtoIDs(r *reader, t idTable) ([]ProtoID, error) {
	if err := r.seekTo(int64(t.off)); err != nil {
		return nil, err
	}
	out := make([]ProtoID, t.size)
	for i := range out {
		shorty, err := r.readU32()
		if err != nil {
			return nil, err
		}
		retType, err := r.readU32()
		if err != nil {
			return nil, err
		}
		paramsOff, err := r.readU32()
		if err != nil {
			return nil, err
		}
		out[i] = ProtoID{ShortyIdx: shorty, ReturnTypeIdx: retType, ParametersOff: paramsOff}
	}
	return out, nil
}

func decodeDexFieldIDs(r *reader, t idTable) ([]FieldID, error) {
	if err := r.seekTo(int64(t.off)); err != nil {
		return nil, err
	}
	out := make([]FieldID, t.size)
	for i := range out {
		classIdx, err := r.readU16()
		if err != nil {
			return nil, err
		}
		typeIdx, err := r.readU16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.readU32()
		if err != nil {
			return nil, err
		}
		out[i] = FieldID{ClassIdx: classIdx, TypeIdx: typeIdx, NameIdx: nameIdx}
	}
	return out, nil
}

func decodeDexMethodIDs(r *reader, t idTable) ([]MethodID, error) {
	if err := r.seekTo(int64(t.off)); err != nil {
		return nil, err
	}
	out := make([]MethodID, t.size)
	for i := range out {
		classIdx, err := r.readU16()
		if err != nil {
			return nil, err
		}
		protoIdx, err := r.readU16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.readU32()
		if err != nil {
			return nil, err
		}
		out[i] = MethodID{ClassIdx: classIdx, ProtoIdx: protoIdx, NameIdx: nameIdx}
	}
	return out, nil
}

func decodeDexClassDefs(r *reader, t idTable) ([]ClassDef, error) {
	if err := r.seekTo(int64(t.off)); err != nil {
		return nil, err
	}
	out := make([]ClassDef, t.size)
	for i := range out {
		var cd ClassDef
		fields := []*uint32{
			&cd.ClassIdx, &cd.AccessFlags, &cd.SuperclassIdx, &cd.InterfacesOff,
			&cd.SourceFileIdx, &cd.AnnotationsOff, &cd.ClassDataOff, &cd.StaticValuesOff,
		}
		for _, f := range fields {
			v, err := r.readU32()
			if err != nil {
				return nil, err
			}
			*f = v
		}
		out[i] = cd
	}
	return out, nil
}
