package scanreader

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// pixelValue encodes the global 0-based page and the page coordinates.
func pixelValue(page, y, x int) int16 {
	return int16(page*1000 + y*30 + x)
}

// memFile serves pages first..first+n-1 of a recording from memory.
type memFile struct {
	first    int
	n        int
	reads    int
	closes   int
	err      error
	closeErr error
}

func (m *memFile) NumPages() (int, error) { return m.n, nil }

func (m *memFile) ReadPage(page int, rows, cols []int, dst []int16) error {
	m.reads++
	if m.err != nil {
		return m.err
	}
	if page < 0 || page >= m.n {
		return fmt.Errorf("page %d of %d", page, m.n)
	}
	for i, y := range rows {
		for j, x := range cols {
			dst[i*len(cols)+j] = pixelValue(m.first+page, y, x)
		}
	}
	return nil
}

func (m *memFile) Close() error {
	m.closes++
	return m.closeErr
}

func memFiles(counts ...int) []*memFile {
	out := make([]*memFile, len(counts))
	first := 0
	for i, n := range counts {
		out[i] = &memFile{first: first, n: n}
		first += n
	}
	return out
}

func pageFiles(ms []*memFile) []PageFile {
	out := make([]PageFile, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

func totalReads(ms []*memFile) int {
	n := 0
	for _, m := range ms {
		n += m.reads
	}
	return n
}

// uniformHeader describes 2 channels, 3 depths and 4x5 pages.
const uniformHeader = `SI.VERSION_MAJOR = '2016b'
SI.hChannels.channelSave = [1;2]
SI.hStackManager.zs = [0 10 20]
SI.hRoiManager.linesPerFrame = 4
SI.hRoiManager.pixelsPerLine = 5
SI.hRoiManager.mroiEnable = 0
SI.hRoiManager.scanFrameRate = 30
SI.hScan2D.bidirectional = true
SI.hScan2D.scannerFrequency = 8000
`

// newUniformScan spreads 19 pages (3 complete frames and one extra page)
// over two files.
func newUniformScan(t *testing.T, opts ...Option) (*Scan, []*memFile) {
	t.Helper()
	files := memFiles(10, 9)
	s, err := New(ParseHeader(uniformHeader), nil, pageFiles(files), opts...)
	require.NoError(t, err)
	return s, files
}

// multiROIHeader describes one channel, one depth and 8x6 pages.
const multiROIHeader = `SI.VERSION_MAJOR = 5.2
SI.hChannels.channelSave = 1
SI.hStackManager.zs = 0
SI.hRoiManager.linesPerFrame = 8
SI.hRoiManager.pixelsPerLine = 6
SI.hRoiManager.mroiEnable = 1
SI.hScan2D.bidirectional = false
SI.hScan2D.scannerFrequency = 12000
SI.hScan2D.flytoTimePerScanfield = 0
SI.objectiveResolution = 10
`

// testROIs returns three ROIs at 0.1 degrees per pixel: a 3x4 ROI, a 2x4
// ROI directly below it and a 3x6 ROI elsewhere.
func testROIs() []*ROI {
	return []*ROI{
		NewROI(1, "top", []Scanfield{{CenterX: 0.2, CenterY: 0.15, SizeX: 0.4, SizeY: 0.3, Width: 4, Height: 3}}, false),
		NewROI(2, "bottom", []Scanfield{{CenterX: 0.2, CenterY: 0.4, SizeX: 0.4, SizeY: 0.2, Width: 4, Height: 2}}, false),
		NewROI(3, "apart", []Scanfield{{CenterX: 5, CenterY: 5, SizeX: 0.6, SizeY: 0.3, Width: 6, Height: 3}}, false),
	}
}

func newMultiROIScan(t *testing.T, opts ...Option) (*Scan, []*memFile) {
	t.Helper()
	files := memFiles(4)
	s, err := New(ParseHeader(multiROIHeader), testROIs(), pageFiles(files), opts...)
	require.NoError(t, err)
	return s, files
}
