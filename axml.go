package andromeda

// Document is the decoded form of an AXML file: a string pool, an
// optional resource map, and a document tree rooted at a single
// namespace node, per the data model in §3.
type Document struct {
	Strings     *StringPool
	ResourceMap []uint32 // parallel to the leading N strings of Strings
	Root        *Namespace
}

// Namespace is the *Namespace AXML node kind: it always closes with a
// matching End Namespace record carrying the same prefix/uri, and
// contains child nodes (elements, and nested namespaces, in document
// order).
type Namespace struct {
	LineNumber uint32
	CommentIdx uint32
	PrefixIdx  uint32
	URIIdx     uint32
	Children   []Node
}

// Element is the *Element AXML node kind.
type Element struct {
	LineNumber uint32
	CommentIdx uint32
	NSIdx      uint32
	NameIdx    uint32
	IDIndex    uint16
	ClassIndex uint16
	StyleIndex uint16
	Attributes []Attribute
	Children   []Node
}

// Attribute is an attribute sub-record attached to an Element; it is not
// itself a tree node.
type Attribute struct {
	NSIdx       uint32
	NameIdx     uint32
	RawValueIdx uint32
	Value       Value
}

// Text is the *Text (CDATA) AXML node kind.
type Text struct {
	LineNumber uint32
	CommentIdx uint32
	DataIdx    uint32
	Value      Value
}

// Node is a tagged union over the three node kinds that can appear in
// the document tree: *Namespace, *Element, *Text. The renderer switches
// on the concrete type; unrecognized concrete types are rejected at
// decode time (they cannot arise here), not at render time.
type Node interface {
	isNode()
}

func (*Namespace) isNode() {}
func (*Element) isNode()   {}
func (*Text) isNode()      {}

// DecodeAXML parses a complete AXML byte buffer into a Document. It is
// one of the two pure orchestrator entry points named in §4.6: it
// performs no I/O, and it either returns a fully formed Document or no
// Document at all.
func DecodeAXML(data []byte) (*Document, error) {
	r := newReader(data)

	root, err := readChunkHeader(r)
	if err != nil {
		return nil, err
	}
	if root.typ != chunkXMLRoot {
		return nil, newErr(StructuralMismatch, root.start, "expected XML root chunk (0x%04x), got 0x%04x", chunkXMLRoot, root.typ)
	}

	d := &Document{}
	state := stateAwaitingPool

	for r.position() < root.end() {
		ch, err := readChunkHeader(r)
		if err != nil {
			return nil, err
		}

		switch ch.typ {
		case chunkStringPool:
			if state != stateAwaitingPool {
				return nil, newErr(StructuralMismatch, ch.start, "unexpected string pool chunk")
			}
			pool, err := decodeStringPool(r, ch)
			if err != nil {
				return nil, err
			}
			d.Strings = pool
			state = stateAfterPool

		case chunkResourceMap:
			if state != stateAfterPool && state != stateAwaitingPool {
				return nil, newErr(StructuralMismatch, ch.start, "unexpected resource map chunk")
			}
			ids, err := decodeResourceMap(r, ch)
			if err != nil {
				return nil, err
			}
			d.ResourceMap = ids
			state = stateInResourceMap

		case chunkXMLNsStart:
			if d.Root != nil {
				return nil, newErr(StructuralMismatch, ch.start, "multiple top-level namespaces are not supported")
			}
			ns, err := decodeNamespaceTree(r, ch, d.Strings)
			if err != nil {
				return nil, err
			}
			d.Root = ns
			state = stateDone

		default:
			// Unknown chunk at the document root: fatal, per §4.2 ("never
			// at the document root").
			return nil, newErr(UnknownChunk, ch.start, "chunk type 0x%04x not allowed at document root", ch.typ)
		}

		if state == stateDone {
			// Per §4.2 Termination: once the root namespace's End
			// Namespace is consumed, the cursor may be anywhere; trailing
			// bytes are not an error and the decoder stops here.
			break
		}

		if err := ch.skipToEnd(r); err != nil {
			return nil, err
		}
	}

	if d.Root == nil {
		return nil, newErr(StructuralMismatch, root.start, "document has no root namespace")
	}
	return d, nil
}

type axmlState int

const (
	stateAwaitingPool axmlState = iota
	stateAfterPool
	stateInResourceMap
	stateDone
)

// decodeResourceMap parses a Resource Map chunk body: (total_size -
// header_size) / 4 little-endian 32-bit resource identifiers.
func decodeResourceMap(r *reader, ch chunkHeader) ([]uint32, error) {
	n := (int64(ch.totalSize) - int64(ch.headerSize)) / 4
	if n < 0 || (int64(ch.totalSize)-int64(ch.headerSize))%4 != 0 {
		return nil, newErr(StructuralMismatch, ch.start, "resource map size not a multiple of 4")
	}
	ids := make([]uint32, n)
	for i := range ids {
		v, err := r.readU32LE()
		if err != nil {
			return nil, err
		}
		ids[i] = v
	}
	return ids, nil
}

// decodeNamespaceTree decodes a Start Namespace chunk and recursively
// consumes chunks until its matching End Namespace, assembling the
// document tree. This implements the "implicit stack" described in
// §4.2 and the state machine in §4.7 directly via Go call-stack
// recursion: each nested Start Namespace/Start Element opens a new
// recursive call, and control returns to the parent the moment its own
// closer is consumed.
func decodeNamespaceTree(r *reader, open chunkHeader, strings *StringPool) (*Namespace, error) {
	lineNumber, commentIdx, err := readNodeHeaderFields(r, open)
	if err != nil {
		return nil, err
	}
	prefixIdx, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	uriIdx, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	if err := open.skipToEnd(r); err != nil {
		return nil, err
	}

	ns := &Namespace{LineNumber: lineNumber, CommentIdx: commentIdx, PrefixIdx: prefixIdx, URIIdx: uriIdx}

	for {
		ch, err := readChunkHeader(r)
		if err != nil {
			return nil, err
		}

		switch ch.typ {
		case chunkXMLNsStart:
			child, err := decodeNamespaceTree(r, ch, strings)
			if err != nil {
				return nil, err
			}
			ns.Children = append(ns.Children, child)
			continue // decodeNamespaceTree already consumed through its own end

		case chunkXMLTagStart:
			child, err := decodeElementTree(r, ch, strings)
			if err != nil {
				return nil, err
			}
			ns.Children = append(ns.Children, child)
			continue

		case chunkXMLNsEnd:
			closePrefix, closeURI, err := readNamespaceEnd(r, ch)
			if err != nil {
				return nil, err
			}
			if closePrefix != ns.PrefixIdx || closeURI != ns.URIIdx {
				return nil, newErr(StructuralMismatch, ch.start, "end namespace does not match its opener")
			}
			if err := ch.skipToEnd(r); err != nil {
				return nil, err
			}
			return ns, nil

		case chunkXMLText:
			text, err := decodeTextNode(r, ch)
			if err != nil {
				return nil, err
			}
			ns.Children = append(ns.Children, text)

		default:
			// Unknown chunk inside a namespace scope: tolerated, skipped
			// to its end, per §4.2's seek-to-end discipline.
		}

		if err := ch.skipToEnd(r); err != nil {
			return nil, err
		}
	}
}

func readNamespaceEnd(r *reader, ch chunkHeader) (prefixIdx, uriIdx uint32, err error) {
	if _, _, err = readNodeHeaderFields(r, ch); err != nil {
		return
	}
	if prefixIdx, err = r.readU32LE(); err != nil {
		return
	}
	uriIdx, err = r.readU32LE()
	return
}

// readNodeHeaderFields reads the line_number/comment_idx pair common to
// every namespace/element/text chunk's header section.
func readNodeHeaderFields(r *reader, ch chunkHeader) (lineNumber, commentIdx uint32, err error) {
	if lineNumber, err = r.readU32LE(); err != nil {
		return
	}
	commentIdx, err = r.readU32LE()
	return
}

// decodeElementTree decodes a Start Element chunk, its attribute
// records, and recursively its children, through its matching End
// Element.
func decodeElementTree(r *reader, open chunkHeader, strings *StringPool) (*Element, error) {
	lineNumber, commentIdx, err := readNodeHeaderFields(r, open)
	if err != nil {
		return nil, err
	}
	nsIdx, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	nameIdx, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	attrStart, err := r.readU16LE()
	if err != nil {
		return nil, err
	}
	attrSize, err := r.readU16LE()
	if err != nil {
		return nil, err
	}
	if attrSize != attributeRecordSize {
		return nil, newErr(StructuralMismatch, open.start, "attribute_size=%d, expected %d", attrSize, attributeRecordSize)
	}
	attrCount, err := r.readU16LE()
	if err != nil {
		return nil, err
	}
	idIndex, err := r.readU16LE()
	if err != nil {
		return nil, err
	}
	classIndex, err := r.readU16LE()
	if err != nil {
		return nil, err
	}
	styleIndex, err := r.readU16LE()
	if err != nil {
		return nil, err
	}

	el := &Element{
		LineNumber: lineNumber, CommentIdx: commentIdx,
		NSIdx: nsIdx, NameIdx: nameIdx,
		IDIndex: idIndex, ClassIndex: classIndex, StyleIndex: styleIndex,
	}

	attrsAt := open.start + int64(open.headerSize) + int64(attrStart)
	if err := r.seekTo(attrsAt); err != nil {
		return nil, err
	}
	el.Attributes = make([]Attribute, attrCount)
	for i := range el.Attributes {
		attr, err := decodeAttribute(r)
		if err != nil {
			return nil, err
		}
		el.Attributes[i] = attr
	}

	if err := open.skipToEnd(r); err != nil {
		return nil, err
	}

	for {
		ch, err := readChunkHeader(r)
		if err != nil {
			return nil, err
		}

		switch ch.typ {
		case chunkXMLNsStart:
			child, err := decodeNamespaceTree(r, ch, strings)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
			continue

		case chunkXMLTagStart:
			child, err := decodeElementTree(r, ch, strings)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
			continue

		case chunkXMLTagEnd:
			closeNS, closeName, err := readElementEnd(r, ch)
			if err != nil {
				return nil, err
			}
			if closeNS != el.NSIdx || closeName != el.NameIdx {
				return nil, newErr(StructuralMismatch, ch.start, "end element does not match its opener")
			}
			if err := ch.skipToEnd(r); err != nil {
				return nil, err
			}
			return el, nil

		case chunkXMLText:
			text, err := decodeTextNode(r, ch)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, text)

		default:
			// tolerated, skipped
		}

		if err := ch.skipToEnd(r); err != nil {
			return nil, err
		}
	}
}

func readElementEnd(r *reader, ch chunkHeader) (nsIdx, nameIdx uint32, err error) {
	if _, _, err = readNodeHeaderFields(r, ch); err != nil {
		return
	}
	if nsIdx, err = r.readU32LE(); err != nil {
		return
	}
	nameIdx, err = r.readU32LE()
	return
}

// decodeAttribute decodes one 20-byte attribute record: ns:u32, name:u32,
// raw_value:u32, value_size:u16, res0:u8, value_type:u8, value_data:u32.
// The reserved zero byte and the type byte occupy a single u16 on the
// wire and must be read as two separate u8s in that order.
func decodeAttribute(r *reader) (Attribute, error) {
	ns, err := r.readU32LE()
	if err != nil {
		return Attribute{}, err
	}
	name, err := r.readU32LE()
	if err != nil {
		return Attribute{}, err
	}
	rawValue, err := r.readU32LE()
	if err != nil {
		return Attribute{}, err
	}
	if _, err := r.readU16LE(); err != nil { // value_size, unused beyond validation that it was readable
		return Attribute{}, err
	}
	res0, err := r.readU8()
	if err != nil {
		return Attribute{}, err
	}
	_ = res0 // reserved, expected zero; not enforced to tolerate minor encoder variance
	typ, err := r.readU8()
	if err != nil {
		return Attribute{}, err
	}
	data, err := r.readU32LE()
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{NSIdx: ns, NameIdx: name, RawValueIdx: rawValue, Value: Value{Type: ValueType(typ), Raw: data}}, nil
}

// decodeTextNode decodes a CDATA chunk body: a string index followed by
// a typed value record (the same 8-byte value layout attributes use,
// without the leading ns/name/raw_value fields).
func decodeTextNode(r *reader, ch chunkHeader) (*Text, error) {
	lineNumber, commentIdx, err := readNodeHeaderFields(r, ch)
	if err != nil {
		return nil, err
	}
	dataIdx, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	if _, err := r.readU16LE(); err != nil { // value_size
		return nil, err
	}
	if _, err := r.readU8(); err != nil { // res0
		return nil, err
	}
	typ, err := r.readU8()
	if err != nil {
		return nil, err
	}
	data, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	return &Text{LineNumber: lineNumber, CommentIdx: commentIdx, DataIdx: dataIdx, Value: Value{Type: ValueType(typ), Raw: data}}, nil
}
