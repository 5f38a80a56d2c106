package andromeda

import (
	"archive/zip"
	"bytes"
	"testing"
)

// buildTestAPK assembles an in-memory ZIP carrying a minimal AXML
// manifest and a minimal DEX, exercising the archive layer end to end
// without touching a real file.
func buildTestAPK(t *testing.T) []byte {
	t.Helper()

	pool := buildStringPool([]string{"manifest"})
	ns := buildNamespace(chunkXMLNsStart, SentinelIndex, SentinelIndex)
	el := buildElement(chunkXMLTagStart, SentinelIndex, 0, nil)
	elEnd := buildEndElement(SentinelIndex, 0)
	nsEnd := buildNamespace(chunkXMLNsEnd, SentinelIndex, SentinelIndex)
	manifest := wrapRoot(pool, ns, el, elEnd, nsEnd)

	dex := buildDexHeader([4]byte{'d', 'e', 'x', '\n'}, dexEndianConstant)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mw, err := zw.CreateHeader(&zip.FileHeader{Name: defaultManifestEntry, Method: zip.Store})
	if err != nil {
		t.Fatalf("CreateHeader(manifest): %v", err)
	}
	if _, err := mw.Write(manifest); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	dw, err := zw.CreateHeader(&zip.FileHeader{Name: defaultDexEntry, Method: zip.Deflate})
	if err != nil {
		t.Fatalf("CreateHeader(dex): %v", err)
	}
	if _, err := dw.Write(dex); err != nil {
		t.Fatalf("write dex: %v", err)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	return buf.Bytes()
}

func TestArchiveRoundTripManifestAndDex(t *testing.T) {
	data := buildTestAPK(t)

	a, err := OpenArchiveReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenArchiveReader: %v", err)
	}
	defer a.Close()

	doc, err := DecodeManifestFromArchive(a, "")
	if err != nil {
		t.Fatalf("DecodeManifestFromArchive: %v", err)
	}
	if doc.Root == nil || len(doc.Root.Children) != 1 {
		t.Fatalf("unexpected manifest document: %+v", doc)
	}

	sum, err := ParseClassesDexFromArchive(a, "")
	if err != nil {
		t.Fatalf("ParseClassesDexFromArchive: %v", err)
	}
	if sum.Header.Endian != LittleEndian {
		t.Fatalf("endian = %v, want LittleEndian", sum.Header.Endian)
	}
}

func TestArchiveMissingEntry(t *testing.T) {
	data := buildTestAPK(t)
	a, err := OpenArchiveReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenArchiveReader: %v", err)
	}
	defer a.Close()

	if _, err := ReadArchiveEntry(a, "nope.txt"); err == nil {
		t.Fatal("expected error for missing entry")
	}
}
