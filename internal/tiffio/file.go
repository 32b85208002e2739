// Package tiffio reads pages and ScanImage metadata from multi-page TIFF and
// BigTIFF files. Files are opened on first use and only the requested rows
// and columns of a page are read from disk.
package tiffio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"

	"github.com/ecobost/scanreader/internal/utils"
)

// ReadAtCloser is the handle a File reads through.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Opener opens the file at path.
type Opener func(path string) (ReadAtCloser, error)

func openOS(path string) (ReadAtCloser, error) {
	return os.Open(path) //nolint:gosec // G304: path is supplied by the caller on purpose
}

// File is a lazily opened multi-page TIFF. It is safe for concurrent use.
type File struct {
	path   string
	opener Opener

	mu     sync.Mutex
	r      ReadAtCloser
	l      layout
	first  uint64
	pages  []page
	walked bool
	closed bool
}

// New returns a File for path. Nothing is opened until the file is read.
func New(path string) *File {
	return NewWithOpener(path, openOS)
}

// NewWithOpener returns a File that opens path through opener.
func NewWithOpener(path string, opener Opener) *File {
	return &File{path: path, opener: opener}
}

// Path returns the file name.
func (f *File) Path() string {
	return f.path
}

// IsOpen reports whether the underlying handle is currently open.
func (f *File) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r != nil
}

// ensureOpen opens the handle and parses the TIFF header. Callers hold f.mu.
func (f *File) ensureOpen() error {
	if f.closed {
		return utils.ErrClosed
	}
	if f.r != nil {
		return nil
	}
	r, err := f.opener(f.path)
	if err != nil {
		return utils.WrapError("open "+f.path, err)
	}
	l, first, err := readHeader(r)
	if err != nil {
		_ = r.Close()
		return utils.WrapError(f.path, err)
	}
	f.r, f.l, f.first = r, l, first
	return nil
}

// walk reads every IFD of the file once. Callers hold f.mu.
func (f *File) walk() error {
	if err := f.ensureOpen(); err != nil {
		return err
	}
	if f.walked {
		return nil
	}

	seen := make(map[uint64]bool)
	var pages []page
	for offset := f.first; offset != 0; {
		if seen[offset] {
			return fmt.Errorf("%s: ifd chain loops at offset %d", f.path, offset)
		}
		seen[offset] = true

		entries, next, err := readIFD(f.r, f.l, offset)
		if err != nil {
			return utils.WrapError(fmt.Sprintf("%s: page %d", f.path, len(pages)), err)
		}
		p, err := parsePage(f.l, offset, entries)
		if err != nil {
			return utils.WrapError(fmt.Sprintf("%s: page %d", f.path, len(pages)), err)
		}
		pages = append(pages, p)
		offset = next
	}

	f.pages = pages
	f.walked = true
	return nil
}

// NumPages returns the number of pages (IFDs) in the file.
func (f *File) NumPages() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.walk(); err != nil {
		return 0, err
	}
	return len(f.pages), nil
}

// PageSize returns the height and width of page (0-based).
func (f *File) PageSize(pageIdx int) (height, width int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.walk(); err != nil {
		return 0, 0, err
	}
	if pageIdx < 0 || pageIdx >= len(f.pages) {
		return 0, 0, errors.Wrapf(utils.ErrIndexBounds, "%s: page %d of %d", f.path, pageIdx, len(f.pages))
	}
	p := f.pages[pageIdx]
	return p.height, p.width, nil
}

// ReadPage copies the pixels at rows x cols of page (0-based) into dst in
// row-major order. dst must hold len(rows)*len(cols) values.
func (f *File) ReadPage(pageIdx int, rows, cols []int, dst []int16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.walk(); err != nil {
		return err
	}
	if pageIdx < 0 || pageIdx >= len(f.pages) {
		return errors.Wrapf(utils.ErrIndexBounds, "%s: page %d of %d", f.path, pageIdx, len(f.pages))
	}
	if len(dst) < len(rows)*len(cols) {
		return fmt.Errorf("destination holds %d values, need %d", len(dst), len(rows)*len(cols))
	}
	if len(rows) == 0 || len(cols) == 0 {
		return nil
	}

	p := f.pages[pageIdx]
	for _, y := range rows {
		if y < 0 || y >= p.height {
			return errors.Wrapf(utils.ErrIndexBounds, "row %d of page with height %d", y, p.height)
		}
	}
	for _, x := range cols {
		if x < 0 || x >= p.width {
			return errors.Wrapf(utils.ErrIndexBounds, "column %d of page with width %d", x, p.width)
		}
	}
	if p.samplesPerPixel != 1 {
		return errors.Wrapf(utils.ErrUnsupported, "%d samples per pixel", p.samplesPerPixel)
	}
	if p.bitsPerSample != 8 && p.bitsPerSample != 16 {
		return errors.Wrapf(utils.ErrUnsupported, "%d bits per sample", p.bitsPerSample)
	}

	if p.compression == compressionNone {
		return f.readStrips(p, rows, cols, dst)
	}
	return f.readDecoded(p, rows, cols, dst)
}

// readStrips reads the needed column span of every requested row straight
// from the uncompressed strips.
func (f *File) readStrips(p page, rows, cols []int, dst []int16) error {
	bytesPerSample := p.bitsPerSample / 8
	rowBytes := p.width * bytesPerSample

	lo, hi := cols[0], cols[0]
	for _, x := range cols {
		lo, hi = min(lo, x), max(hi, x)
	}
	span := (hi - lo + 1) * bytesPerSample
	buf := utils.GetBuffer(span)
	defer utils.ReleaseBuffer(buf)

	for i, y := range rows {
		strip := y / p.rowsPerStrip
		if strip >= len(p.stripOffsets) {
			return fmt.Errorf("%s: row %d in missing strip %d", f.path, y, strip)
		}
		//nolint:gosec // G115: strip offsets fit in int64 for io.ReaderAt
		at := int64(p.stripOffsets[strip]) + int64((y%p.rowsPerStrip)*rowBytes+lo*bytesPerSample)
		if _, err := f.r.ReadAt(buf, at); err != nil {
			return utils.WrapError(fmt.Sprintf("%s: row %d read failed", f.path, y), err)
		}

		out := dst[i*len(cols) : (i+1)*len(cols)]
		for j, x := range cols {
			k := (x - lo) * bytesPerSample
			out[j] = decodeSample(buf[k:k+bytesPerSample], f.l.order, p.signed)
		}
	}
	return nil
}

func decodeSample(b []byte, order binary.ByteOrder, signed bool) int16 {
	if len(b) == 1 {
		if signed {
			return int16(int8(b[0]))
		}
		return int16(b[0])
	}
	//nolint:gosec // G115: int16 reinterpretation of the raw sample is intended
	return int16(order.Uint16(b))
}

// readDecoded decodes a compressed page with x/image/tiff and crops it.
func (f *File) readDecoded(p page, rows, cols []int, dst []int16) error {
	if f.l.bigTIFF {
		return errors.Wrapf(utils.ErrUnsupported, "compression %d in BigTIFF", p.compression)
	}
	view := pageView{r: f.r, order: f.l.order, ifd: uint32(p.offset)} //nolint:gosec // classic offsets are 32-bit
	img, err := tiff.Decode(io.NewSectionReader(view, 0, math.MaxInt64))
	if err != nil {
		return utils.WrapError(fmt.Sprintf("%s: decoding page at %d", f.path, p.offset), err)
	}

	b := img.Bounds()
	var at func(x, y int) int16
	switch im := img.(type) {
	case *image.Gray16:
		at = func(x, y int) int16 {
			//nolint:gosec // G115: int16 reinterpretation of the raw sample is intended
			return int16(im.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
		}
	case *image.Gray:
		at = func(x, y int) int16 { return int16(im.GrayAt(b.Min.X+x, b.Min.Y+y).Y) }
	default:
		return errors.Wrapf(utils.ErrUnsupported, "decoded image type %T", img)
	}

	for i, y := range rows {
		for j, x := range cols {
			dst[i*len(cols)+j] = at(x, y)
		}
	}
	return nil
}

// pageView presents the file as if page's IFD were the first one, so a
// single-image decoder can read any page.
type pageView struct {
	r     io.ReaderAt
	order binary.ByteOrder
	ifd   uint32
}

func (v pageView) ReadAt(b []byte, off int64) (int, error) {
	n, err := v.r.ReadAt(b, off)
	var first [4]byte
	v.order.PutUint32(first[:], v.ifd)
	for i := 0; i < n; i++ {
		if pos := off + int64(i); pos >= 4 && pos < 8 {
			b[i] = first[pos-4]
		}
	}
	return n, err
}

// Metadata is the ScanImage metadata stored in a file.
type Metadata struct {
	// Header is the flat "SI.key = value" text.
	Header string
	// RoiGroups is the raw ROI JSON, empty when the file has none.
	RoiGroups []byte
}

const (
	scanImageMagic   = 117637889
	scanImageVersion = 3
)

// ReadMetadata reads the ScanImage header and ROI JSON. The binary block
// that follows the TIFF header is preferred. Older files keep the header in
// the Software or ImageDescription tag of the first page and the ROI JSON in
// its Artist tag.
func (f *File) ReadMetadata() (Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureOpen(); err != nil {
		return Metadata{}, err
	}

	md, ok, err := f.readScanImageBlock()
	if err != nil {
		return Metadata{}, err
	}
	if !ok {
		entries, _, err := readIFD(f.r, f.l, f.first)
		if err != nil {
			return Metadata{}, utils.WrapError(f.path, err)
		}
		p, err := parsePage(f.l, f.first, entries)
		if err != nil {
			return Metadata{}, utils.WrapError(f.path, err)
		}
		switch {
		case strings.Contains(p.software, "SI."):
			md.Header = p.software
		case strings.Contains(p.description, "SI."):
			md.Header = p.description
		}
		if strings.Contains(p.artist, "RoiGroups") {
			md.RoiGroups = []byte(p.artist)
		}
	}

	if !strings.Contains(md.Header, "SI.") {
		return Metadata{}, errors.Wrap(utils.ErrNotScanImage, f.path)
	}
	return md, nil
}

func (f *File) readScanImageBlock() (Metadata, bool, error) {
	var base int64 = 8
	if f.l.bigTIFF {
		base = 16
	}
	magic, err := utils.ReadUint32(f.r, base, f.l.order)
	if err != nil || magic != scanImageMagic {
		return Metadata{}, false, nil //nolint:nilerr // a short file simply has no block
	}
	var head [16]byte
	if _, err := f.r.ReadAt(head[:], base); err != nil {
		return Metadata{}, false, utils.WrapError(f.path+": ScanImage block read failed", err)
	}
	if v := f.l.order.Uint32(head[4:8]); v != scanImageVersion {
		return Metadata{}, false, errors.Wrapf(utils.ErrUnsupported, "%s: ScanImage metadata version %d", f.path, v)
	}

	headerSize := uint64(f.l.order.Uint32(head[8:12]))
	roiSize := uint64(f.l.order.Uint32(head[12:16]))
	if err := utils.ValidateBufferSize(headerSize, utils.MaxHeaderSize, "ScanImage header"); err != nil {
		return Metadata{}, false, utils.WrapError(f.path, err)
	}
	if roiSize > utils.MaxHeaderSize {
		return Metadata{}, false, fmt.Errorf("%s: ROI metadata size %d exceeds maximum", f.path, roiSize)
	}

	data := make([]byte, headerSize+roiSize)
	if _, err := f.r.ReadAt(data, base+16); err != nil {
		return Metadata{}, false, utils.WrapError(f.path+": ScanImage metadata read failed", err)
	}
	md := Metadata{Header: string(bytes.TrimRight(data[:headerSize], "\x00"))}
	if roi := bytes.TrimRight(data[headerSize:], "\x00"); len(bytes.TrimSpace(roi)) > 0 {
		md.RoiGroups = roi
	}
	return md, true, nil
}

// Close releases the handle. It is safe to call more than once; after Close
// every read fails with ErrClosed.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.r == nil {
		return nil
	}
	err := f.r.Close()
	f.r = nil
	return err
}
