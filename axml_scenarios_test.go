package andromeda

import "testing"

// S1 (AXML minimal): a document with a single namespace node and two
// pool strings, no elements. Render produces the empty string.
func TestScenarioS1Minimal(t *testing.T) {
	pool := buildStringPool([]string{"a", "b"})
	ns := buildNamespace(chunkXMLNsStart, 0, 1)
	nsEnd := buildNamespace(chunkXMLNsEnd, 0, 1)
	data := wrapRoot(pool, ns, nsEnd)

	doc, err := DecodeAXML(data)
	if err != nil {
		t.Fatalf("DecodeAXML: %v", err)
	}
	if doc.Strings.Len() != 2 {
		t.Fatalf("pool len = %d, want 2", doc.Strings.Len())
	}
	if s, _ := doc.Strings.Get(0); s != "a" {
		t.Fatalf("pool[0] = %q, want a", s)
	}
	if s, _ := doc.Strings.Get(1); s != "b" {
		t.Fatalf("pool[1] = %q, want b", s)
	}
	if doc.Root.PrefixIdx != 0 || doc.Root.URIIdx != 1 {
		t.Fatalf("root namespace prefix/uri = %d/%d, want 0/1", doc.Root.PrefixIdx, doc.Root.URIIdx)
	}
	if len(doc.Root.Children) != 0 {
		t.Fatalf("expected no children, got %d", len(doc.Root.Children))
	}

	out, err := (Renderer{}).Render(doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "" {
		t.Fatalf("rendered output = %q, want empty", out)
	}
}

// S2 (AXML one element, one attribute). The attribute's ns field is the
// namespace's uri index (1); §4.3 resolves the printed prefix from the
// pool slot one before it (0, "android"), not from ns_idx itself.
func TestScenarioS2OneElement(t *testing.T) {
	pool := buildStringPool([]string{"android", "http://schemas.android.com/apk/res/android", "manifest", "package", "com.ex"})
	ns := buildNamespace(chunkXMLNsStart, 0, 1)
	el := buildElement(chunkXMLTagStart, SentinelIndex, 2, []testAttr{
		{ns: 1, name: 3, rawValue: 4, valueType: TypeString, data: 4},
	})
	elEnd := buildEndElement(SentinelIndex, 2)
	nsEnd := buildNamespace(chunkXMLNsEnd, 0, 1)
	data := wrapRoot(pool, ns, el, elEnd, nsEnd)

	doc, err := DecodeAXML(data)
	if err != nil {
		t.Fatalf("DecodeAXML: %v", err)
	}

	out, err := (Renderer{}).Render(doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "<manifest android:package=\"com.ex\" >\n</manifest>\n"
	if out != want {
		t.Fatalf("rendered output = %q, want %q", out, want)
	}

	// The faithful renderer must agree here too: data (4) is itself a
	// valid string-pool index into "com.ex".
	out2, err := (Renderer{Faithful: true}).Render(doc)
	if err != nil {
		t.Fatalf("Render (faithful): %v", err)
	}
	if out2 != want {
		t.Fatalf("faithful rendered output = %q, want %q", out2, want)
	}
}

// TestRenderAttributeNamespacePrefix isolates §4.3's ns_prefix rule: the
// prefix printed for a namespaced attribute is pool[ns_idx-1], the slot
// immediately before the URI ns_idx itself addresses — never pool[ns_idx]
// (which would print the URI in place of the prefix).
func TestRenderAttributeNamespacePrefix(t *testing.T) {
	pool := buildStringPool([]string{"android", "http://schemas.android.com/apk/res/android", "root", "name", "v"})
	ns := buildNamespace(chunkXMLNsStart, 0, 1)
	el := buildElement(chunkXMLTagStart, SentinelIndex, 2, []testAttr{
		{ns: 1, name: 3, rawValue: 4, valueType: TypeString, data: 4},
	})
	elEnd := buildEndElement(SentinelIndex, 2)
	nsEnd := buildNamespace(chunkXMLNsEnd, 0, 1)
	data := wrapRoot(pool, ns, el, elEnd, nsEnd)

	doc, err := DecodeAXML(data)
	if err != nil {
		t.Fatalf("DecodeAXML: %v", err)
	}

	out, err := (Renderer{}).Render(doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "<root android:name=\"v\" >\n</root>\n"
	if out != want {
		t.Fatalf("rendered output = %q, want %q (prefix must be pool[ns_idx-1], not pool[ns_idx])", out, want)
	}
}

// S3 (AXML attribute_size violation): StructuralMismatch.
func TestScenarioS3BadAttributeSize(t *testing.T) {
	pool := buildStringPool([]string{"a", "b", "c"})
	ns := buildNamespace(chunkXMLNsStart, 0, 1)
	el := buildElement(chunkXMLTagStart, SentinelIndex, 2, nil)
	// Corrupt attribute_size, which sits right after attribute_start at
	// offset 26 within the element chunk:
	// header(8)+line(4)+comment(4)+ns(4)+name(4)+attrStart(2) = 26
	putU16(el[26:28], 0x10)
	data := wrapRoot(pool, ns, el)

	_, err := DecodeAXML(data)
	if !IsKind(err, StructuralMismatch) {
		t.Fatalf("expected StructuralMismatch, got %v", err)
	}
}

// S4 (AXML UTF-8 flag): UnsupportedFeature.
func TestScenarioS4UTF8Flag(t *testing.T) {
	pool := buildStringPoolWithFlags([]string{"a"}, stringPoolUTF8Flag)
	ns := buildNamespace(chunkXMLNsStart, 0, 0)
	nsEnd := buildNamespace(chunkXMLNsEnd, 0, 0)
	data := wrapRoot(pool, ns, nsEnd)

	_, err := DecodeAXML(data)
	if !IsKind(err, UnsupportedFeature) {
		t.Fatalf("expected UnsupportedFeature, got %v", err)
	}
}

// Per §4.2's Termination rule, the decoder stops the instant the root
// namespace's End Namespace is consumed; a second top-level Start
// Namespace chunk trailing after it is never even inspected, so trailing
// bytes of any shape do not cause an error.
func TestScenarioTrailingBytesIgnored(t *testing.T) {
	pool := buildStringPool([]string{"a", "b"})
	ns1 := buildNamespace(chunkXMLNsStart, 0, 1)
	ns1End := buildNamespace(chunkXMLNsEnd, 0, 1)
	ns2 := buildNamespace(chunkXMLNsStart, 0, 1)
	ns2End := buildNamespace(chunkXMLNsEnd, 0, 1)

	data := wrapRoot(pool, ns1, ns1End)
	extra := append(ns2, ns2End...)
	putU32(data[4:8], uint32(len(data)+len(extra)))
	data = append(data, extra...)

	doc, err := DecodeAXML(data)
	if err != nil {
		t.Fatalf("expected trailing bytes to be tolerated, got %v", err)
	}
	if doc.Root.PrefixIdx != 0 || doc.Root.URIIdx != 1 {
		t.Fatalf("unexpected root namespace: %+v", doc.Root)
	}
}

func TestUniversalInvariantNameIdxInRange(t *testing.T) {
	pool := buildStringPool([]string{"a", "b", "c"})
	ns := buildNamespace(chunkXMLNsStart, 0, 1)
	el := buildElement(chunkXMLTagStart, SentinelIndex, 2, nil)
	elEnd := buildEndElement(SentinelIndex, 2)
	nsEnd := buildNamespace(chunkXMLNsEnd, 0, 1)
	data := wrapRoot(pool, ns, el, elEnd, nsEnd)

	doc, err := DecodeAXML(data)
	if err != nil {
		t.Fatalf("DecodeAXML: %v", err)
	}
	el2 := doc.Root.Children[0].(*Element)
	if el2.NameIdx != SentinelIndex && el2.NameIdx >= uint32(doc.Strings.Len()) {
		t.Fatalf("name_idx %d out of range for pool len %d", el2.NameIdx, doc.Strings.Len())
	}
}

func TestRoundTripIdempotence(t *testing.T) {
	pool := buildStringPool([]string{"a", "b"})
	ns := buildNamespace(chunkXMLNsStart, 0, 1)
	nsEnd := buildNamespace(chunkXMLNsEnd, 0, 1)
	data := wrapRoot(pool, ns, nsEnd)

	d1, err := DecodeAXML(data)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	d2, err := DecodeAXML(data)
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	if d1.Root.PrefixIdx != d2.Root.PrefixIdx || d1.Root.URIIdx != d2.Root.URIIdx {
		t.Fatal("re-decoding the same buffer produced different documents")
	}
}
