// Package fields reconstructs the logical imaging fields of a scan from its
// page geometry and ROI definitions.
//
// A Field is a rectangle at one scanning depth. It is assembled from one or
// more subfields; subfield j is cut from the page at (CutY[j], CutX[j]) and
// pasted into the field at (PasteY[j], PasteX[j]). All ranges are 0-based and
// half-open.
package fields

import "fmt"

// Range is a half-open interval [Start, Stop) of rows or columns.
type Range struct {
	Start int
	Stop  int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	if r.Stop < r.Start {
		return 0
	}
	return r.Stop - r.Start
}

// Contains reports whether i lies in r.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.Stop
}

// Shift returns r moved by n.
func (r Range) Shift(n int) Range {
	return Range{Start: r.Start + n, Stop: r.Stop + n}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.Stop)
}

// Descriptor is the geometry an ROI reports for one scanning depth. Y and X
// are the center of the field in scan-angle degrees.
type Descriptor struct {
	Height          int
	Width           int
	Depth           float64
	Y               float64
	X               float64
	HeightInDegrees float64
	WidthInDegrees  float64
}

// ROI is anything that can describe its field at a given depth.
type ROI interface {
	// ID returns the 1-based ROI identifier.
	ID() int
	// FieldAt returns the field the ROI images at depth, if any.
	FieldAt(depth float64) (Descriptor, bool)
}

// Field is a logical imaging region at one scanning depth.
type Field struct {
	Depth           float64
	Slice           int // 0-based scanning-depth index
	Height          int
	Width           int
	RoiID           int
	Y               float64
	X               float64
	HeightInDegrees float64
	WidthInDegrees  float64

	CutY         []Range
	CutX         []Range
	PasteY       []Range
	PasteX       []Range
	SubfieldRois []int
}

// NumSubfields returns the number of cut/paste pairs.
func (f *Field) NumSubfields() int {
	return len(f.CutY)
}

// Validate checks that the subfield lists are parallel, that every cut window
// has the size of its paste window, and that the paste windows tile the field
// exactly once.
func (f *Field) Validate() error {
	n := len(f.CutY)
	if len(f.CutX) != n || len(f.PasteY) != n || len(f.PasteX) != n || len(f.SubfieldRois) != n {
		return fmt.Errorf("field at depth %g: subfield lists have different lengths", f.Depth)
	}

	covered := make([]int, f.Height*f.Width)
	for j := 0; j < n; j++ {
		if f.CutY[j].Len() != f.PasteY[j].Len() || f.CutX[j].Len() != f.PasteX[j].Len() {
			return fmt.Errorf("field at depth %g: subfield %d cut %vx%v does not match paste %vx%v",
				f.Depth, j, f.CutY[j], f.CutX[j], f.PasteY[j], f.PasteX[j])
		}
		py, px := f.PasteY[j], f.PasteX[j]
		if py.Start < 0 || px.Start < 0 || py.Stop > f.Height || px.Stop > f.Width {
			return fmt.Errorf("field at depth %g: subfield %d paste %vx%v outside %dx%d",
				f.Depth, j, py, px, f.Height, f.Width)
		}
		for y := py.Start; y < py.Stop; y++ {
			for x := px.Start; x < px.Stop; x++ {
				covered[y*f.Width+x]++
			}
		}
	}

	for i, c := range covered {
		if c != 1 {
			return fmt.Errorf("field at depth %g: pixel (%d,%d) covered %d times",
				f.Depth, i/f.Width, i%f.Width, c)
		}
	}
	return nil
}

// Mask returns, for every pixel of the field, the id of the ROI it was cut
// from, row-major.
func (f *Field) Mask() []int {
	mask := make([]int, f.Height*f.Width)
	for j := range f.PasteY {
		for y := f.PasteY[j].Start; y < f.PasteY[j].Stop; y++ {
			for x := f.PasteX[j].Start; x < f.PasteX[j].Stop; x++ {
				mask[y*f.Width+x] = f.SubfieldRois[j]
			}
		}
	}
	return mask
}

func (f *Field) top() float64    { return f.Y - f.HeightInDegrees/2 }
func (f *Field) bottom() float64 { return f.Y + f.HeightInDegrees/2 }
func (f *Field) left() float64   { return f.X - f.WidthInDegrees/2 }
func (f *Field) right() float64  { return f.X + f.WidthInDegrees/2 }
