package fields

import (
	"slices"

	"gonum.org/v1/gonum/floats/scalar"
)

// Tolerances for comparing field edges in scan-angle degrees.
const (
	edgeAbsTol = 1e-6
	edgeRelTol = 1e-6
)

// contiguity tells where a second field sits relative to a first one.
type contiguity int

const (
	notContiguous contiguity = iota
	above
	below
	leftOf
	rightOf
)

// Merge records one absorption performed by JoinContiguous.
type Merge struct {
	Slice    int
	Into     int // RoiID of the surviving field
	Absorbed int // RoiID of the absorbed field
}

// JoinContiguous merges fields that form a larger rectangle at the same
// scanning depth. After every merge the search restarts from the first field
// of that depth, since an enlarged field may now border fields it did not
// border before. Surviving fields keep their relative order.
func JoinContiguous(in []*Field) ([]*Field, []Merge) {
	fields := slices.Clone(in)

	var seen []int
	for _, f := range fields {
		if !slices.Contains(seen, f.Slice) {
			seen = append(seen, f.Slice)
		}
	}

	var merges []Merge
	for _, slice := range seen {
		for {
			i, j, pos := firstContiguousPair(fields, slice)
			if pos == notContiguous {
				break
			}
			merges = append(merges, Merge{Slice: slice, Into: fields[i].RoiID, Absorbed: fields[j].RoiID})
			fields[i].absorb(fields[j], pos)
			fields = slices.Delete(fields, j, j+1)
		}
	}
	return fields, merges
}

func firstContiguousPair(fields []*Field, slice int) (int, int, contiguity) {
	for i := range fields {
		if fields[i].Slice != slice {
			continue
		}
		for j := i + 1; j < len(fields); j++ {
			if fields[j].Slice != slice {
				continue
			}
			if pos := fields[i].contiguityWith(fields[j]); pos != notContiguous {
				return i, j, pos
			}
		}
	}
	return -1, -1, notContiguous
}

func near(a, b float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, edgeAbsTol, edgeRelTol)
}

// contiguityWith reports where other lies if it shares a full edge with f.
func (f *Field) contiguityWith(other *Field) contiguity {
	if f.Width == other.Width && near(f.WidthInDegrees, other.WidthInDegrees) && near(f.X, other.X) {
		switch {
		case near(f.bottom(), other.top()):
			return below
		case near(f.top(), other.bottom()):
			return above
		}
	}
	if f.Height == other.Height && near(f.HeightInDegrees, other.HeightInDegrees) && near(f.Y, other.Y) {
		switch {
		case near(f.right(), other.left()):
			return rightOf
		case near(f.left(), other.right()):
			return leftOf
		}
	}
	return notContiguous
}

// absorb appends other's subfields to f. Paste windows are shifted so that
// they keep describing positions within the enlarged field.
func (f *Field) absorb(other *Field, pos contiguity) {
	otherPasteY := slices.Clone(other.PasteY)
	otherPasteX := slices.Clone(other.PasteX)

	switch pos {
	case below:
		top := f.top()
		shiftRanges(otherPasteY, f.Height)
		f.Height += other.Height
		f.HeightInDegrees += other.HeightInDegrees
		f.Y = top + f.HeightInDegrees/2
	case above:
		top := other.top()
		shiftRanges(f.PasteY, other.Height)
		f.Height += other.Height
		f.HeightInDegrees += other.HeightInDegrees
		f.Y = top + f.HeightInDegrees/2
	case rightOf:
		left := f.left()
		shiftRanges(otherPasteX, f.Width)
		f.Width += other.Width
		f.WidthInDegrees += other.WidthInDegrees
		f.X = left + f.WidthInDegrees/2
	case leftOf:
		left := other.left()
		shiftRanges(f.PasteX, other.Width)
		f.Width += other.Width
		f.WidthInDegrees += other.WidthInDegrees
		f.X = left + f.WidthInDegrees/2
	}

	f.CutY = append(f.CutY, other.CutY...)
	f.CutX = append(f.CutX, other.CutX...)
	f.PasteY = append(f.PasteY, otherPasteY...)
	f.PasteX = append(f.PasteX, otherPasteX...)
	f.SubfieldRois = append(f.SubfieldRois, other.SubfieldRois...)
}

func shiftRanges(rs []Range, n int) {
	for i := range rs {
		rs[i] = rs[i].Shift(n)
	}
}
