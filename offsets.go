package scanreader

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FieldOffsets returns, for every field, the time in seconds at which each
// pixel was recorded relative to the start of its volume. Lines of a
// bidirectional scan alternate direction.
//
// Offsets are only defined for uniform scans.
func (s *Scan) FieldOffsets() ([]*mat.Dense, error) {
	if s.multiROI {
		return nil, fmt.Errorf("field offsets of a multi-ROI scan: %w", ErrUnsupported)
	}
	secondsPerLine := s.SecondsPerLine()
	if math.IsNaN(secondsPerLine) {
		return nil, fmt.Errorf("field offsets without scanner frequency: %w", ErrUnsupported)
	}
	fill := s.facts.FillFractionTemporal.Or(1)
	secondsPerPage := s.secondsPerPage()
	bidirectional := s.IsBidirectional()

	out := make([]*mat.Dense, len(s.fields))
	for i, f := range s.fields {
		start := float64(f.Slice) * secondsPerPage
		m := mat.NewDense(f.Height, f.Width, nil)
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				col := x
				if bidirectional && y%2 == 1 {
					col = f.Width - 1 - x
				}
				m.Set(y, x, start+float64(y)*secondsPerLine+float64(col)/float64(f.Width)*fill*secondsPerLine)
			}
		}
		out[i] = m
	}
	return out, nil
}
