package testing

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"sort"
)

// Page is one grayscale page of a synthetic TIFF, row-major.
type Page struct {
	Height int
	Width  int
	Pixels []int16
}

// NewPage returns a page whose pixel (y, x) is value(y, x).
func NewPage(height, width int, value func(y, x int) int16) Page {
	p := Page{Height: height, Width: width, Pixels: make([]int16, height*width)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p.Pixels[y*width+x] = value(y, x)
		}
	}
	return p
}

// TIFFOptions controls the layout of a synthetic TIFF.
type TIFFOptions struct {
	BigTIFF   bool
	BigEndian bool

	// Header and RoiGroups are written as a ScanImage metadata block after
	// the TIFF header, or into the Software and Artist tags of the first
	// page when HeaderInTags is set.
	Header       string
	RoiGroups    string
	HeaderInTags bool

	// RowsPerStrip splits pages into strips; zero means one strip per page.
	RowsPerStrip int
	// Deflate compresses strips with zlib (TIFF compression 8).
	Deflate bool
	// Unsigned omits the SampleFormat tag.
	Unsigned bool
}

type tiffEntry struct {
	tag   uint16
	typ   uint16
	vals  []uint64
	ascii string
}

type tiffWriter struct {
	buf   bytes.Buffer
	order binary.ByteOrder
	big   bool
}

func (w *tiffWriter) pad() {
	if w.buf.Len()%2 == 1 {
		w.buf.WriteByte(0)
	}
}

func (w *tiffWriter) u16(v uint16) { _ = binary.Write(&w.buf, w.order, v) }
func (w *tiffWriter) u32(v uint32) { _ = binary.Write(&w.buf, w.order, v) }
func (w *tiffWriter) u64(v uint64) { _ = binary.Write(&w.buf, w.order, v) }

func (w *tiffWriter) offset(v uint64) {
	if w.big {
		w.u64(v)
	} else {
		w.u32(uint32(v)) //nolint:gosec // synthetic files stay below 4GB
	}
}

func (w *tiffWriter) patchOffset(at int, v uint64) {
	b := w.buf.Bytes()
	if w.big {
		w.order.PutUint64(b[at:], v)
	} else {
		w.order.PutUint32(b[at:], uint32(v)) //nolint:gosec // synthetic files stay below 4GB
	}
}

func (w *tiffWriter) encodeValue(e tiffEntry) []byte {
	var b bytes.Buffer
	if e.typ == 2 {
		b.WriteString(e.ascii)
		b.WriteByte(0)
		return b.Bytes()
	}
	for _, v := range e.vals {
		switch e.typ {
		case 3:
			_ = binary.Write(&b, w.order, uint16(v)) //nolint:gosec // tag values are small
		case 4:
			_ = binary.Write(&b, w.order, uint32(v)) //nolint:gosec // tag values are small
		case 16:
			_ = binary.Write(&b, w.order, v)
		}
	}
	return b.Bytes()
}

// writeIFD writes entries and returns the position of the IFD and of its
// next-IFD field.
func (w *tiffWriter) writeIFD(entries []tiffEntry) (ifdAt, nextAt int) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	inline := 4
	if w.big {
		inline = 8
	}
	values := make([][]byte, len(entries))
	outOfLine := make([]uint64, len(entries))
	for i, e := range entries {
		values[i] = w.encodeValue(e)
		if len(values[i]) > inline {
			w.pad()
			outOfLine[i] = uint64(w.buf.Len())
			w.buf.Write(values[i])
		}
	}

	w.pad()
	ifdAt = w.buf.Len()
	if w.big {
		w.u64(uint64(len(entries)))
	} else {
		w.u16(uint16(len(entries))) //nolint:gosec // few entries
	}
	for i, e := range entries {
		w.u16(e.tag)
		w.u16(e.typ)
		count := uint64(len(e.vals))
		if e.typ == 2 {
			count = uint64(len(values[i]))
		}
		if w.big {
			w.u64(count)
		} else {
			w.u32(uint32(count)) //nolint:gosec // small counts
		}
		if len(values[i]) > inline {
			w.offset(outOfLine[i])
		} else {
			field := make([]byte, inline)
			copy(field, values[i])
			w.buf.Write(field)
		}
	}
	nextAt = w.buf.Len()
	w.offset(0)
	return ifdAt, nextAt
}

// BuildTIFF encodes pages as a multi-page 16-bit grayscale TIFF.
func BuildTIFF(pages []Page, opts TIFFOptions) []byte {
	w := &tiffWriter{order: binary.LittleEndian, big: opts.BigTIFF}
	if opts.BigEndian {
		w.order = binary.BigEndian
		w.buf.WriteString("MM")
	} else {
		w.buf.WriteString("II")
	}

	var firstAt int
	if opts.BigTIFF {
		w.u16(43)
		w.u16(8)
		w.u16(0)
		firstAt = w.buf.Len()
		w.u64(0)
	} else {
		w.u16(42)
		firstAt = w.buf.Len()
		w.u32(0)
	}

	if opts.Header != "" && !opts.HeaderInTags {
		header := append([]byte(opts.Header), 0)
		roi := []byte(opts.RoiGroups)
		if len(roi) > 0 {
			roi = append(roi, 0)
		}
		w.u32(117637889)
		w.u32(3)
		w.u32(uint32(len(header))) //nolint:gosec // small metadata
		w.u32(uint32(len(roi)))    //nolint:gosec // small metadata
		w.buf.Write(header)
		w.buf.Write(roi)
	}

	prevNext := firstAt
	for i, p := range pages {
		rowsPerStrip := opts.RowsPerStrip
		if rowsPerStrip <= 0 || rowsPerStrip > p.Height {
			rowsPerStrip = p.Height
		}

		var offsets, counts []uint64
		for top := 0; top < p.Height; top += rowsPerStrip {
			bottom := min(top+rowsPerStrip, p.Height)
			var raw bytes.Buffer
			for _, v := range p.Pixels[top*p.Width : bottom*p.Width] {
				_ = binary.Write(&raw, w.order, uint16(v)) //nolint:gosec // raw sample bits
			}
			data := raw.Bytes()
			if opts.Deflate {
				var z bytes.Buffer
				zw := zlib.NewWriter(&z)
				_, _ = zw.Write(data)
				_ = zw.Close()
				data = z.Bytes()
			}
			w.pad()
			offsets = append(offsets, uint64(w.buf.Len()))
			counts = append(counts, uint64(len(data)))
			w.buf.Write(data)
		}

		longType := uint16(4)
		if opts.BigTIFF {
			longType = 16
		}
		compression := uint64(1)
		if opts.Deflate {
			compression = 8
		}
		entries := []tiffEntry{
			{tag: 256, typ: 4, vals: []uint64{uint64(p.Width)}},
			{tag: 257, typ: 4, vals: []uint64{uint64(p.Height)}},
			{tag: 258, typ: 3, vals: []uint64{16}},
			{tag: 259, typ: 3, vals: []uint64{compression}},
			{tag: 262, typ: 3, vals: []uint64{1}},
			{tag: 273, typ: longType, vals: offsets},
			{tag: 277, typ: 3, vals: []uint64{1}},
			{tag: 278, typ: 4, vals: []uint64{uint64(rowsPerStrip)}},
			{tag: 279, typ: longType, vals: counts},
		}
		if !opts.Unsigned {
			entries = append(entries, tiffEntry{tag: 339, typ: 3, vals: []uint64{2}})
		}
		if i == 0 && opts.HeaderInTags {
			entries = append(entries, tiffEntry{tag: 305, typ: 2, ascii: opts.Header})
			if opts.RoiGroups != "" {
				entries = append(entries, tiffEntry{tag: 315, typ: 2, ascii: opts.RoiGroups})
			}
		}

		ifdAt, nextAt := w.writeIFD(entries)
		w.patchOffset(prevNext, uint64(ifdAt))
		prevNext = nextAt
	}
	return w.buf.Bytes()
}
