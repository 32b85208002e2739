package pages

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/ecobost/scanreader/internal/ndarray"
	"github.com/ecobost/scanreader/internal/utils"
)

// File is one underlying file holding a run of consecutive pages.
type File interface {
	// NumPages returns the number of pages in the file.
	NumPages() (int, error)
	// ReadPage copies rows×cols of the 0-based page into dst, row-major.
	ReadPage(page int, rows, cols []int, dst []int16) error
}

// Reader reads pages spread over several files as if they were one sequence.
type Reader struct {
	files  []File
	layout Layout

	mu sync.Mutex
	// starts[i] is the first global page of files[i]; starts[len(files)] is
	// the total page count. Computed on first use.
	starts []int
}

// NewReader creates a reader over files, in recording order.
func NewReader(files []File, layout Layout) *Reader {
	return &Reader{files: files, layout: layout}
}

// Layout returns the page interleaving of the reader.
func (r *Reader) Layout() Layout {
	return r.layout
}

func (r *Reader) ensureStarts() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.starts != nil {
		return nil
	}
	starts := make([]int, len(r.files)+1)
	for i, f := range r.files {
		n, err := f.NumPages()
		if err != nil {
			return utils.WrapError(fmt.Sprintf("counting pages of file %d", i), err)
		}
		starts[i+1] = starts[i] + n
	}
	r.starts = starts
	return nil
}

// NumPages returns the total number of pages across all files.
func (r *Reader) NumPages() (int, error) {
	if err := r.ensureStarts(); err != nil {
		return 0, err
	}
	return r.starts[len(r.files)], nil
}

// FilePages returns the number of pages of every file.
func (r *Reader) FilePages() ([]int, error) {
	if err := r.ensureStarts(); err != nil {
		return nil, err
	}
	counts := make([]int, len(r.files))
	for i := range counts {
		counts[i] = r.starts[i+1] - r.starts[i]
	}
	return counts, nil
}

// NumFrames returns the number of complete frames. Pages of a trailing
// incomplete frame are not addressable.
func (r *Reader) NumFrames() (int, error) {
	total, err := r.NumPages()
	if err != nil {
		return 0, err
	}
	perFrame := r.layout.PagesPerFrame()
	if perFrame <= 0 {
		return 0, nil
	}
	return total / perFrame, nil
}

// Locate returns the file holding the 0-based global page and the page's
// index within that file.
func (r *Reader) Locate(page int) (int, int, error) {
	if err := r.ensureStarts(); err != nil {
		return 0, 0, err
	}
	total := r.starts[len(r.files)]
	if page < 0 || page >= total {
		return 0, 0, errors.Wrapf(utils.ErrInternalAddressing, "page %d outside [0,%d)", page, total)
	}
	file := sort.SearchInts(r.starts, page+1) - 1
	return file, page - r.starts[file], nil
}

// Read returns the rows×cols crop of every requested page as an array shaped
// (depth, y, x, channel, frame). All pages are located before any is read.
func (r *Reader) Read(depths, channels, frames, rows, cols []int) (*ndarray.Array, error) {
	out, err := ndarray.New(len(depths), len(rows), len(cols), len(channels), len(frames))
	if err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return out, nil
	}

	pageList := r.layout.Pages(depths, channels, frames)
	type location struct{ file, local int }
	locations := make([]location, len(pageList))
	for i, p := range pageList {
		file, local, err := r.Locate(p)
		if err != nil {
			return nil, err
		}
		locations[i] = location{file, local}
	}

	strides := out.Strides()
	buf := make([]int16, len(rows)*len(cols))
	i := 0
	for fi := range frames {
		for di := range depths {
			for ci := range channels {
				loc := locations[i]
				if err := r.files[loc.file].ReadPage(loc.local, rows, cols, buf); err != nil {
					return nil, errors.Wrapf(err, "reading page %d (file %d, page %d)", pageList[i], loc.file, loc.local)
				}
				base := di*strides[0] + ci*strides[3] + fi*strides[4]
				for y := range rows {
					for x := range cols {
						out.Data[base+y*strides[1]+x*strides[2]] = buf[y*len(cols)+x]
					}
				}
				i++
			}
		}
	}
	return out, nil
}
