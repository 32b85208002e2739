package tiffio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	mocktesting "github.com/ecobost/scanreader/internal/testing"
	"github.com/ecobost/scanreader/internal/utils"
)

const testHeader = "SI.VERSION_MAJOR = '2016b'\nSI.hChannels.channelSave = [1;2]\n"

func testPages(n, height, width int) []mocktesting.Page {
	pages := make([]mocktesting.Page, n)
	for i := range pages {
		pages[i] = mocktesting.NewPage(height, width, func(y, x int) int16 {
			return int16(i*100 + y*10 + x)
		})
	}
	return pages
}

// memFile returns a File backed by data and the mock that serves it.
func memFile(t *testing.T, data []byte) (*File, *mocktesting.MockReaderAt, *int) {
	t.Helper()
	mock := mocktesting.NewMockReaderAt(data)
	opens := 0
	f := NewWithOpener("mem.tif", func(string) (ReadAtCloser, error) {
		opens++
		return mock, nil
	})
	return f, mock, &opens
}

func TestFile_LazyOpen(t *testing.T) {
	data := mocktesting.BuildTIFF(testPages(3, 4, 5), mocktesting.TIFFOptions{Header: testHeader})
	f, mock, opens := memFile(t, data)

	require.False(t, f.IsOpen())
	require.Equal(t, 0, *opens)
	require.Equal(t, 0, mock.Reads())

	n, err := f.NumPages()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, f.IsOpen())

	_, err = f.NumPages()
	require.NoError(t, err)
	require.Equal(t, 1, *opens)
}

func TestFile_ReadPage(t *testing.T) {
	tests := []struct {
		name string
		opts mocktesting.TIFFOptions
	}{
		{"classic little endian", mocktesting.TIFFOptions{}},
		{"classic big endian strips", mocktesting.TIFFOptions{BigEndian: true, RowsPerStrip: 3}},
		{"bigtiff", mocktesting.TIFFOptions{BigTIFF: true}},
		{"bigtiff big endian strips", mocktesting.TIFFOptions{BigTIFF: true, BigEndian: true, RowsPerStrip: 2}},
		{"deflate", mocktesting.TIFFOptions{Deflate: true, Unsigned: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mocktesting.BuildTIFF(testPages(4, 6, 7), tt.opts)
			f, _, _ := memFile(t, data)

			n, err := f.NumPages()
			require.NoError(t, err)
			require.Equal(t, 4, n)

			h, w, err := f.PageSize(2)
			require.NoError(t, err)
			require.Equal(t, 6, h)
			require.Equal(t, 7, w)

			rows, cols := []int{1, 4, 5}, []int{0, 3, 6}
			dst := make([]int16, len(rows)*len(cols))
			require.NoError(t, f.ReadPage(2, rows, cols, dst))

			var want []int16
			for _, y := range rows {
				for _, x := range cols {
					want = append(want, int16(200+y*10+x))
				}
			}
			require.Equal(t, want, dst)
		})
	}
}

func TestFile_ReadPageSigned(t *testing.T) {
	page := mocktesting.NewPage(2, 2, func(y, x int) int16 { return int16(-(y*2 + x + 1)) })
	f, _, _ := memFile(t, mocktesting.BuildTIFF([]mocktesting.Page{page}, mocktesting.TIFFOptions{}))

	dst := make([]int16, 4)
	require.NoError(t, f.ReadPage(0, []int{0, 1}, []int{0, 1}, dst))
	require.Equal(t, []int16{-1, -2, -3, -4}, dst)
}

func TestFile_ReadPageRepeatedAndUnordered(t *testing.T) {
	f, _, _ := memFile(t, mocktesting.BuildTIFF(testPages(1, 4, 4), mocktesting.TIFFOptions{}))

	dst := make([]int16, 4)
	require.NoError(t, f.ReadPage(0, []int{3, 3}, []int{2, 0}, dst))
	require.Equal(t, []int16{32, 30, 32, 30}, dst)
}

func TestFile_ReadPageBounds(t *testing.T) {
	f, _, _ := memFile(t, mocktesting.BuildTIFF(testPages(2, 3, 3), mocktesting.TIFFOptions{}))
	dst := make([]int16, 1)

	tests := []struct {
		name       string
		page       int
		rows, cols []int
	}{
		{"page past end", 2, []int{0}, []int{0}},
		{"negative page", -1, []int{0}, []int{0}},
		{"row past end", 0, []int{3}, []int{0}},
		{"column past end", 1, []int{0}, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.ReadPage(tt.page, tt.rows, tt.cols, dst)
			require.ErrorIs(t, err, utils.ErrIndexBounds)
		})
	}

	require.Error(t, f.ReadPage(0, []int{0, 1}, []int{0}, dst), "short destination")
	require.NoError(t, f.ReadPage(0, nil, []int{0}, nil), "empty selection")
}

func TestFile_ReadMetadata(t *testing.T) {
	roi := `{"RoiGroups":{"imagingRoiGroup":{"rois":[]}}}`

	tests := []struct {
		name    string
		opts    mocktesting.TIFFOptions
		wantROI bool
	}{
		{"block", mocktesting.TIFFOptions{Header: testHeader, RoiGroups: roi}, true},
		{"block without rois", mocktesting.TIFFOptions{Header: testHeader}, false},
		{"bigtiff block", mocktesting.TIFFOptions{BigTIFF: true, Header: testHeader, RoiGroups: roi}, true},
		{"tags", mocktesting.TIFFOptions{Header: testHeader, RoiGroups: roi, HeaderInTags: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, _ := memFile(t, mocktesting.BuildTIFF(testPages(1, 2, 2), tt.opts))
			md, err := f.ReadMetadata()
			require.NoError(t, err)
			require.Equal(t, testHeader, md.Header)
			if tt.wantROI {
				require.JSONEq(t, roi, string(md.RoiGroups))
			} else {
				require.Empty(t, md.RoiGroups)
			}
		})
	}

	t.Run("plain tiff", func(t *testing.T) {
		f, _, _ := memFile(t, mocktesting.BuildTIFF(testPages(1, 2, 2), mocktesting.TIFFOptions{}))
		_, err := f.ReadMetadata()
		require.ErrorIs(t, err, utils.ErrNotScanImage)
	})
}

func TestFile_NotTIFF(t *testing.T) {
	f, _, _ := memFile(t, []byte("GIF89a not a tiff at all"))
	_, err := f.NumPages()
	require.Error(t, err)
	require.False(t, f.IsOpen())
}

func TestFile_Close(t *testing.T) {
	f, mock, _ := memFile(t, mocktesting.BuildTIFF(testPages(1, 2, 2), mocktesting.TIFFOptions{}))

	require.NoError(t, f.Close(), "close before open")
	require.Equal(t, 0, mock.Closes())

	f, mock, _ = memFile(t, mocktesting.BuildTIFF(testPages(1, 2, 2), mocktesting.TIFFOptions{}))
	_, err := f.NumPages()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	require.Equal(t, 1, mock.Closes())
	require.False(t, f.IsOpen())

	_, err = f.NumPages()
	require.ErrorIs(t, err, utils.ErrClosed)
}

func TestFile_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan_00001.tif")
	data := mocktesting.BuildTIFF(testPages(5, 3, 4), mocktesting.TIFFOptions{Header: testHeader})
	require.NoError(t, os.WriteFile(path, data, 0o600))

	f := New(path)
	defer func() { require.NoError(t, f.Close()) }()

	require.Equal(t, path, f.Path())
	n, err := f.NumPages()
	require.NoError(t, err)
	require.Equal(t, 5, n)

	dst := make([]int16, 2)
	require.NoError(t, f.ReadPage(4, []int{2}, []int{1, 3}, dst))
	require.Equal(t, []int16{421, 423}, dst)

	_, err = New(filepath.Join(t.TempDir(), "missing.tif")).NumPages()
	require.Error(t, err)
}
