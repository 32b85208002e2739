package tiffio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ecobost/scanreader/internal/utils"
)

// TIFF tags read by the page walker.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagImageDesc       = 270
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagSoftware        = 305
	tagArtist          = 315
	tagSampleFormat    = 339
)

// TIFF field types.
const (
	typeByte   = 1
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeSShort = 8
	typeSLong  = 9
	typeLong8  = 16
	typeIFD8   = 18
)

const (
	compressionNone    = 1
	sampleFormatSigned = 2
)

func typeSize(typ uint16) int {
	switch typ {
	case typeByte, typeASCII, 6, 7:
		return 1
	case typeShort, typeSShort:
		return 2
	case typeLong, typeSLong, 11, 13:
		return 4
	case 5, 10, 12, typeLong8, 17, typeIFD8:
		return 8
	}
	return 0
}

// entry is one IFD entry with its value bytes resolved.
type entry struct {
	tag   uint16
	typ   uint16
	count uint64
	data  []byte
}

func (e entry) uints(order binary.ByteOrder) []uint64 {
	size := typeSize(e.typ)
	if size == 0 {
		return nil
	}
	out := make([]uint64, 0, e.count)
	for i := uint64(0); i < e.count; i++ {
		b := e.data[int(i)*size:]
		switch e.typ {
		case typeByte:
			out = append(out, uint64(b[0]))
		case typeShort, typeSShort:
			out = append(out, uint64(order.Uint16(b)))
		case typeLong, typeSLong:
			out = append(out, uint64(order.Uint32(b)))
		case typeLong8, typeIFD8:
			out = append(out, order.Uint64(b))
		default:
			return nil
		}
	}
	return out
}

func (e entry) first(order binary.ByteOrder) (uint64, bool) {
	vals := e.uints(order)
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

func (e entry) ascii() string {
	s := string(e.data)
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}

// page is the geometry and strip table of one IFD.
type page struct {
	offset          uint64
	width           int
	height          int
	bitsPerSample   int
	samplesPerPixel int
	signed          bool
	compression     int
	rowsPerStrip    int
	stripOffsets    []uint64
	stripByteCounts []uint64
	description     string
	software        string
	artist          string
}

// layout holds the byte-level constants of classic TIFF or BigTIFF.
type layout struct {
	order   binary.ByteOrder
	bigTIFF bool
}

func (l layout) countSize() int {
	if l.bigTIFF {
		return 8
	}
	return 2
}

func (l layout) entrySize() int {
	if l.bigTIFF {
		return 20
	}
	return 12
}

func (l layout) offsetSize() int {
	if l.bigTIFF {
		return 8
	}
	return 4
}

// readHeader parses the file header and returns the first IFD offset.
func readHeader(r io.ReaderAt) (layout, uint64, error) {
	buf := utils.GetBuffer(16)
	defer utils.ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf[:8], 0); err != nil {
		return layout{}, 0, utils.WrapError("tiff header read failed", err)
	}

	var l layout
	switch string(buf[:2]) {
	case "II":
		l.order = binary.LittleEndian
	case "MM":
		l.order = binary.BigEndian
	default:
		return layout{}, 0, fmt.Errorf("not a TIFF file: byte order mark %q", buf[:2])
	}

	switch l.order.Uint16(buf[2:4]) {
	case 42:
		return l, uint64(l.order.Uint32(buf[4:8])), nil
	case 43:
		l.bigTIFF = true
		if _, err := r.ReadAt(buf[8:16], 8); err != nil {
			return layout{}, 0, utils.WrapError("bigtiff header read failed", err)
		}
		if l.order.Uint16(buf[4:6]) != 8 {
			return layout{}, 0, fmt.Errorf("unsupported bigtiff offset size %d", l.order.Uint16(buf[4:6]))
		}
		return l, l.order.Uint64(buf[8:16]), nil
	default:
		return layout{}, 0, fmt.Errorf("not a TIFF file: version %d", l.order.Uint16(buf[2:4]))
	}
}

// readIFD parses the IFD at offset and returns its entries and the offset of
// the next IFD (0 at the end of the chain).
func readIFD(r io.ReaderAt, l layout, offset uint64) ([]entry, uint64, error) {
	//nolint:gosec // G115: TIFF offsets fit in int64 for io.ReaderAt
	at := int64(offset)
	var n uint64
	var err error
	if l.bigTIFF {
		n, err = utils.ReadUint64(r, at, l.order)
	} else {
		var n16 uint16
		n16, err = utils.ReadUint16(r, at, l.order)
		n = uint64(n16)
	}
	if err != nil {
		return nil, 0, utils.WrapError(fmt.Sprintf("ifd count read at %d failed", offset), err)
	}
	if n == 0 || n > utils.MaxTagEntries {
		return nil, 0, fmt.Errorf("ifd at %d has %d entries", offset, n)
	}

	table := make([]byte, int(n)*l.entrySize()+l.offsetSize())
	if _, err := r.ReadAt(table, at+int64(l.countSize())); err != nil {
		return nil, 0, utils.WrapError(fmt.Sprintf("ifd table read at %d failed", offset), err)
	}

	entries := make([]entry, 0, n)
	for i := 0; i < int(n); i++ {
		raw := table[i*l.entrySize() : (i+1)*l.entrySize()]
		e := entry{tag: l.order.Uint16(raw[0:2]), typ: l.order.Uint16(raw[2:4])}
		var valueField []byte
		if l.bigTIFF {
			e.count = l.order.Uint64(raw[4:12])
			valueField = raw[12:20]
		} else {
			e.count = uint64(l.order.Uint32(raw[4:8]))
			valueField = raw[8:12]
		}

		size := uint64(typeSize(e.typ))
		if size == 0 {
			continue
		}
		if e.count > utils.MaxHeaderSize {
			return nil, 0, fmt.Errorf("tag %d: count %d exceeds maximum", e.tag, e.count)
		}
		total := size * e.count
		if total == 0 {
			continue
		}
		if err := utils.ValidateBufferSize(total, utils.MaxHeaderSize, fmt.Sprintf("tag %d", e.tag)); err != nil {
			return nil, 0, err
		}
		if total <= uint64(len(valueField)) {
			e.data = append([]byte(nil), valueField[:total]...)
		} else {
			var at uint64
			if l.bigTIFF {
				at = l.order.Uint64(valueField)
			} else {
				at = uint64(l.order.Uint32(valueField))
			}
			e.data = make([]byte, total)
			//nolint:gosec // G115: TIFF offsets fit in int64 for io.ReaderAt
			if _, err := r.ReadAt(e.data, int64(at)); err != nil {
				return nil, 0, utils.WrapError(fmt.Sprintf("tag %d value read failed", e.tag), err)
			}
		}
		entries = append(entries, e)
	}

	nextField := table[int(n)*l.entrySize():]
	var next uint64
	if l.bigTIFF {
		next = l.order.Uint64(nextField)
	} else {
		next = uint64(l.order.Uint32(nextField))
	}
	return entries, next, nil
}

// parsePage extracts the page geometry from IFD entries.
func parsePage(l layout, offset uint64, entries []entry) (page, error) {
	p := page{
		offset:          offset,
		bitsPerSample:   1,
		samplesPerPixel: 1,
		compression:     compressionNone,
	}
	for _, e := range entries {
		switch e.tag {
		case tagImageWidth:
			v, _ := e.first(l.order)
			p.width = int(v)
		case tagImageLength:
			v, _ := e.first(l.order)
			p.height = int(v)
		case tagBitsPerSample:
			v, _ := e.first(l.order)
			p.bitsPerSample = int(v)
		case tagSamplesPerPixel:
			v, _ := e.first(l.order)
			p.samplesPerPixel = int(v)
		case tagCompression:
			v, _ := e.first(l.order)
			p.compression = int(v)
		case tagRowsPerStrip:
			v, _ := e.first(l.order)
			p.rowsPerStrip = int(v)
		case tagStripOffsets:
			p.stripOffsets = e.uints(l.order)
		case tagStripByteCounts:
			p.stripByteCounts = e.uints(l.order)
		case tagSampleFormat:
			v, _ := e.first(l.order)
			p.signed = v == sampleFormatSigned
		case tagImageDesc:
			p.description = e.ascii()
		case tagSoftware:
			p.software = e.ascii()
		case tagArtist:
			p.artist = e.ascii()
		}
	}

	if p.width <= 0 || p.height <= 0 {
		return page{}, fmt.Errorf("ifd at %d: invalid size %dx%d", offset, p.height, p.width)
	}
	if len(p.stripOffsets) == 0 {
		return page{}, fmt.Errorf("ifd at %d: no strip offsets", offset)
	}
	if p.rowsPerStrip <= 0 || p.rowsPerStrip > p.height {
		p.rowsPerStrip = p.height
	}
	return p, nil
}
