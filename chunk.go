package andromeda

// Chunk type codes recognized at AXML chunk boundaries. Any other code
// encountered where one of these is expected is UnknownChunk.
//
// frameworks/base/libs/androidfw/include/androidfw/ResourceTypes.h
const (
	chunkNull          = 0x0000
	chunkStringPool    = 0x0001
	chunkTable         = 0x0002
	chunkXMLRoot       = 0x0003
	chunkXMLNsStart    = 0x0100
	chunkXMLNsEnd      = 0x0101
	chunkXMLTagStart   = 0x0102
	chunkXMLTagEnd     = 0x0103
	chunkXMLText       = 0x0104
	chunkResourceMap   = 0x0180
	chunkTablePackage  = 0x0200
	chunkTableType     = 0x0201
	chunkTableTypeSpec = 0x0202
	chunkTableLibrary  = 0x0203

	chunkHeaderSize = 8 // type:u16 + header_size:u16 + total_size:u32

	stringPoolUTF8Flag = 0x100

	attributeRecordSize = 20 // ns + name + raw_value + value(size,res0,type,data)
)

// chunkHeader is the 8-byte header present at every chunk boundary.
type chunkHeader struct {
	typ        uint16
	headerSize uint16
	totalSize  uint32
	start      int64 // absolute offset the header itself began at
}

// readChunkHeader reads the 8-byte chunk header at the reader's current
// position, recording the starting offset so the caller can compute
// start+total_size for the seek-to-end discipline described in the AXML
// chunk decoder design, regardless of any intermediate seeks the body
// parser performs.
func readChunkHeader(r *reader) (chunkHeader, error) {
	start := r.position()
	typ, err := r.readU16LE()
	if err != nil {
		return chunkHeader{}, err
	}
	headerSize, err := r.readU16LE()
	if err != nil {
		return chunkHeader{}, err
	}
	totalSize, err := r.readU32LE()
	if err != nil {
		return chunkHeader{}, err
	}
	if int64(headerSize) < chunkHeaderSize || int64(totalSize) < int64(headerSize) {
		return chunkHeader{}, newErr(StructuralMismatch, start,
			"chunk header_size=%d total_size=%d inconsistent", headerSize, totalSize)
	}
	return chunkHeader{typ: typ, headerSize: headerSize, totalSize: totalSize, start: start}, nil
}

// end returns the absolute offset one past this chunk, i.e. start+total_size.
func (h chunkHeader) end() int64 { return h.start + int64(h.totalSize) }

// skipToEnd seeks the reader to the end of this chunk regardless of
// wherever the body parser left the cursor.
func (h chunkHeader) skipToEnd(r *reader) error { return r.seekTo(h.end()) }
