package andromeda

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"
	"sync"

	"github.com/klauspost/compress/flate"
)

// archiveSubEntry is one raw, scan-recovered local-file-header location
// for a name that the central directory either omitted or duplicated.
type archiveSubEntry struct {
	offset int64
	method uint16
}

// Archive opens a ZIP's table of named entries, tolerating the broken or
// deliberately crafted layouts real APKs are known to ship: a missing or
// inconsistent central directory, or more than one local file header
// sharing a name. Besides the plain-file ReadFile helper in apk.go, it is
// the only component in this module that performs I/O (§4.8); the
// decoders it feeds never touch a file or a network socket. Only the lookup-by-name surface §4.9's orchestrator needs is
// exposed — this is not a general-purpose ZIP library.
type Archive struct {
	File map[string]*ArchiveFile

	source    io.ReadSeeker
	ownedFile *os.File
}

// ArchiveFile is one named entry, which can stand in for more than one
// physical entry sharing a name: ReadAll walks every entry that name
// maps to and returns the first one that reads cleanly, so a duplicate
// or corrupted physical entry doesn't sink a lookup a later one could
// have satisfied.
type ArchiveFile struct {
	Name string

	source         io.ReadSeeker
	internalReader io.Reader
	internalCloser io.Closer

	zipEntry *zip.File

	entries  []archiveSubEntry
	curEntry int
}

// Open prepares this entry for reading. Call Next() in a loop afterward
// to walk every physical entry this name maps to, reading each with Read.
func (f *ArchiveFile) Open() error {
	if f.internalReader != nil {
		return errors.New("entry is already open")
	}

	if f.zipEntry != nil {
		f.curEntry = 0
		rc, err := f.zipEntry.Open()
		if err != nil {
			return err
		}
		f.internalReader = rc
		f.internalCloser = rc
	} else {
		f.curEntry = -1
	}
	return nil
}

// Read reads from the currently open physical entry. It returns io.EOF
// at the end of the current entry even if Next() would yield another.
func (f *ArchiveFile) Read(p []byte) (int, error) {
	if f.internalReader == nil {
		if f.curEntry == -1 && !f.Next() {
			return 0, io.ErrUnexpectedEOF
		}
		if f.curEntry >= len(f.entries) {
			return 0, io.ErrUnexpectedEOF
		}

		if _, err := f.source.Seek(f.entries[f.curEntry].offset, io.SeekStart); err != nil {
			return 0, err
		}

		switch f.entries[f.curEntry].method {
		case zip.Store:
			f.internalReader = f.source
		default: // zip.Deflate: an unknown method code is treated as deflate
			rc := flate.NewReader(f.source)
			f.internalReader = rc
			f.internalCloser = rc
		}
	}
	return f.internalReader.Read(p)
}

// Next advances to the next physical entry sharing this name, closing
// the current one first. It returns false once none remain.
func (f *ArchiveFile) Next() bool {
	if len(f.entries) == 0 && f.internalReader != nil {
		f.curEntry++
		return f.curEntry == 1
	}

	f.Close()

	if f.curEntry+1 >= len(f.entries) {
		return false
	}
	f.curEntry++
	return true
}

// Close releases the currently open physical entry, if any.
func (f *ArchiveFile) Close() error {
	if f.internalReader != nil {
		if f.internalCloser != nil {
			f.internalCloser.Close()
			f.internalCloser = nil
		}
		f.internalReader = nil
	}
	return nil
}

// ReadAll opens, reads every physical entry up to limit bytes in turn
// until one succeeds, and closes the entry.
func (f *ArchiveFile) ReadAll(limit int64) ([]byte, error) {
	if err := f.Open(); err != nil {
		return nil, err
	}
	defer f.Close()

	var data []byte
	var lastErr error
	for f.Next() {
		data, lastErr = ioutil.ReadAll(io.LimitReader(f, limit))
		if lastErr == nil {
			return data, nil
		}
	}
	if lastErr == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return nil, lastErr
}

// Close closes the archive and every ArchiveFile it produced.
func (a *Archive) Close() error {
	if a.source == nil {
		return nil
	}
	for _, f := range a.File {
		f.Close()
	}
	var err error
	if a.ownedFile != nil {
		err = a.ownedFile.Close()
		a.ownedFile = nil
	}
	a.source = nil
	return err
}

type readAtWrapper struct {
	io.ReadSeeker
}

func (wr *readAtWrapper) ReadAt(b []byte, off int64) (n int, err error) {
	if readerAt, ok := wr.ReadSeeker.(io.ReaderAt); ok {
		return readerAt.ReadAt(b, off)
	}

	oldpos, err := wr.Seek(off, io.SeekCurrent)
	if err != nil {
		return
	}
	if _, err = wr.Seek(off, io.SeekStart); err != nil {
		return
	}
	if n, err = wr.Read(b); err != nil {
		return
	}
	_, err = wr.Seek(oldpos, io.SeekStart)
	return
}

// OpenArchive opens path as an APK/ZIP for reading.
func OpenArchive(path string) (a *Archive, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	a, err = OpenArchiveReader(f)
	if err != nil {
		f.Close()
	} else {
		a.ownedFile = f
	}
	return
}

// OpenArchiveReader opens an already-materialized reader as an APK/ZIP.
// It may seek the reader to arbitrary positions.
func OpenArchiveReader(source io.ReadSeeker) (a *Archive, err error) {
	a = &Archive{
		File:   make(map[string]*ArchiveFile),
		source: source,
	}

	f := &readAtWrapper{source}

	var zipinfo *zip.Reader
	zipinfo, err = tryReadZip(f)
	if err == nil {
		for i, zf := range zipinfo.File {
			if zf.Method != zip.Store && zf.Method != zip.Deflate {
				// An unknown compression method is treated as deflate,
				// except for the two entries known to be stored raw by
				// some packagers.
				switch zf.Name {
				case "AndroidManifest.xml", "resources.arsc":
					zipinfo.File[i].Method = zip.Store
					zipinfo.File[i].CompressedSize64 = zipinfo.File[i].UncompressedSize64
				default:
					zipinfo.File[i].Method = zip.Deflate
				}
			}

			cl := path.Clean(zf.Name)
			if a.File[cl] == nil {
				a.File[cl] = &ArchiveFile{Name: cl, source: f, zipEntry: zf}
			}
		}
		return
	}

	// The central directory was unreadable: fall back to a raw scan for
	// local file headers, the way a damaged-but-installable APK still is.
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return
	}

	var off int64
	for {
		off, err = findNextLocalFileHeader(f)
		if off == -1 || err != nil {
			return
		}

		var nameLen, extraLen, method uint16
		if _, err = f.Seek(off+8, io.SeekStart); err != nil {
			return
		}
		if err = binary.Read(f, binary.LittleEndian, &method); err != nil {
			return
		}
		if _, err = f.Seek(off+26, io.SeekStart); err != nil {
			return
		}
		if err = binary.Read(f, binary.LittleEndian, &nameLen); err != nil {
			return
		}
		if err = binary.Read(f, binary.LittleEndian, &extraLen); err != nil {
			return
		}

		buf := make([]byte, nameLen)
		if _, err = f.ReadAt(buf, off+30); err != nil {
			return
		}

		fileName := path.Clean(string(buf))
		fileOffset := off + 30 + int64(nameLen) + int64(extraLen)

		af := a.File[fileName]
		if af == nil {
			af = &ArchiveFile{Name: fileName, source: f, curEntry: -1}
			a.File[fileName] = af
		}

		af.entries = append([]archiveSubEntry{{offset: fileOffset, method: method}}, af.entries...)

		if _, err = f.Seek(off+4, io.SeekStart); err != nil {
			return
		}
	}
}

func tryReadZip(f *readAtWrapper) (r *zip.Reader, err error) {
	defer func() {
		if pn := recover(); pn != nil {
			err = fmt.Errorf("%v", pn)
			r = nil
		}
	}()

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return
	}
	r, err = zip.NewReader(f, size)
	if err != nil {
		return
	}
	r.RegisterDecompressor(zip.Deflate, newPooledFlateReader)
	return
}

func findNextLocalFileHeader(f io.ReadSeeker) (offset int64, err error) {
	start, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, err
	}
	defer func() {
		if _, serr := f.Seek(start, io.SeekStart); serr != nil && err == nil {
			err = serr
		}
	}()

	buf := make([]byte, 64*1024)
	signature := []byte{0x50, 0x4B, 0x03, 0x04}

	matched := 0
	offset = start

	for {
		n, rerr := f.Read(buf)
		if rerr != nil && rerr != io.EOF {
			return -1, rerr
		}
		if n == 0 {
			return -1, nil
		}

		for i := 0; i < n; i++ {
			if buf[i] == signature[matched] {
				matched++
				if matched == len(signature) {
					offset += int64(i) - int64(len(signature)-1)
					return offset, nil
				}
			} else {
				matched = 0
			}
		}
		offset += int64(n)
	}
}

// flateReaderPool recycles flate.Reader instances across archive entries,
// avoiding an allocation per compressed file in an archive with many
// entries (APKs routinely carry several thousand).
var flateReaderPool sync.Pool

func newPooledFlateReader(r io.Reader) io.ReadCloser {
	fr, ok := flateReaderPool.Get().(io.ReadCloser)
	if ok {
		fr.(flate.Resetter).Reset(r, nil)
	} else {
		fr = flate.NewReader(r)
	}
	return &pooledFlateReader{fr: fr}
}

type pooledFlateReader struct {
	mu sync.Mutex
	fr io.ReadCloser
}

func (r *pooledFlateReader) Read(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fr == nil {
		return 0, errors.New("read after close")
	}
	return r.fr.Read(p)
}

func (r *pooledFlateReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.fr != nil {
		err = r.fr.Close()
		flateReaderPool.Put(r.fr)
		r.fr = nil
	}
	return err
}
