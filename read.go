package scanreader

import (
	"fmt"
	"slices"

	"github.com/ecobost/scanreader/internal/fields"
	"github.com/ecobost/scanreader/internal/ndarray"
)

// Read returns the pixels selected by key, one element per axis in the
// order field, y, x, channel, frame. Missing trailing elements select the
// whole axis. Each element may be:
//
//   - All(), ":" or nil: the whole axis
//   - an integer or Int: one 1-based index; the axis is dropped from the result
//   - []int or List: 1-based indices in the given order
//   - "a:b", "a:step:b" or Range(a, b): an inclusive range
//
// Every index is checked before any pixel is read.
//
// Example:
//
//	// Field 2, all rows and columns, channel 1, frames 10 to 19.
//	arr, err := scan.Read(2, ":", ":", 1, "10:19")
//	// arr.Shape == [height, width, 10]
func (s *Scan) Read(key ...any) (*Array, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	sels, err := parseKey(key)
	if err != nil {
		return nil, err
	}

	fieldIdx, err := sels[axisField].resolve(axisField, len(s.fields))
	if err != nil {
		return nil, err
	}
	channels, err := sels[axisChannel].resolve(axisChannel, s.numChannels)
	if err != nil {
		return nil, err
	}
	numFrames, err := s.NumFrames()
	if err != nil {
		return nil, err
	}
	frames, err := sels[axisFrame].resolve(axisFrame, numFrames)
	if err != nil {
		return nil, err
	}

	var out *Array
	if len(fieldIdx) == 0 {
		out, err = s.emptyRead(sels, len(channels), len(frames))
	} else {
		var ys, xs []int
		if ys, xs, err = s.resolveYX(sels, fieldIdx); err != nil {
			return nil, err
		}
		if s.multiROI {
			out, err = s.readMultiROI(fieldIdx, ys, xs, channels, frames)
		} else {
			out, err = s.readUniform(fieldIdx, ys, xs, channels, frames)
		}
	}
	if err != nil {
		return nil, err
	}

	var squeeze []int
	for axis, sel := range sels {
		if sel.scalar {
			squeeze = append(squeeze, axis)
		}
	}
	return out.Squeeze(squeeze...)
}

// emptyRead builds the result of a read that selects no field. y and x
// have no extent to resolve against.
func (s *Scan) emptyRead(sels [numAxes]selector, numChannels, numFrames int) (*Array, error) {
	ny, err := sels[axisY].countUnbounded(axisY)
	if err != nil {
		return nil, err
	}
	nx, err := sels[axisX].countUnbounded(axisX)
	if err != nil {
		return nil, err
	}
	return ndarray.New(0, ny, nx, numChannels, numFrames)
}

// resolveYX resolves the y and x selectors against every selected field.
// All fields must yield the same rows and columns.
func (s *Scan) resolveYX(sels [numAxes]selector, fieldIdx []int) ([]int, []int, error) {
	var ys, xs []int
	for i, fi := range fieldIdx {
		f := s.fields[fi]
		fy, err := sels[axisY].resolve(axisY, f.Height)
		if err != nil {
			return nil, nil, err
		}
		fx, err := sels[axisX].resolve(axisX, f.Width)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			ys, xs = fy, fx
			continue
		}
		if !slices.Equal(fy, ys) || !slices.Equal(fx, xs) {
			first := s.fields[fieldIdx[0]]
			return nil, nil, fmt.Errorf("field %d (%dx%d) and field %d (%dx%d) select different pixels: %w",
				fieldIdx[0]+1, first.Height, first.Width, fi+1, f.Height, f.Width, ErrFieldDimensionMismatch)
		}
	}
	return ys, xs, nil
}

// readUniform reads full-page fields, where page and field coordinates
// coincide, with a single page read.
func (s *Scan) readUniform(fieldIdx, ys, xs, channels, frames []int) (*Array, error) {
	depths := make([]int, len(fieldIdx))
	for i, fi := range fieldIdx {
		depths[i] = s.fields[fi].Slice
	}
	return s.reader.Read(depths, channels, frames, ys, xs)
}

// readMultiROI reads every subfield of the selected fields and pastes the
// requested pixels into place.
func (s *Scan) readMultiROI(fieldIdx, ys, xs, channels, frames []int) (*Array, error) {
	out, err := ndarray.New(len(fieldIdx), len(ys), len(xs), len(channels), len(frames))
	if err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return out, nil
	}
	dst := out.Strides()

	for i, fi := range fieldIdx {
		f := s.fields[fi]
		for j := 0; j < f.NumSubfields(); j++ {
			outY, pageY := project(ys, f.PasteY[j], f.CutY[j])
			outX, pageX := project(xs, f.PasteX[j], f.CutX[j])
			if len(outY) == 0 || len(outX) == 0 {
				continue
			}

			part, err := s.reader.Read([]int{f.Slice}, channels, frames, pageY, pageX)
			if err != nil {
				return nil, err
			}
			src := part.Strides()
			for r, oy := range outY {
				for c, ox := range outX {
					for ch := range channels {
						for fr := range frames {
							out.Data[i*dst[0]+oy*dst[1]+ox*dst[2]+ch*dst[3]+fr*dst[4]] =
								part.Data[r*src[1]+c*src[2]+ch*src[3]+fr*src[4]]
						}
					}
				}
			}
		}
	}
	return out, nil
}

// project keeps the requested field coordinates that fall in the paste
// window and maps them into the cut window of the page. It returns the
// positions in the request and the matching page coordinates.
func project(requested []int, paste, cut fields.Range) (positions, page []int) {
	for i, v := range requested {
		if paste.Contains(v) {
			positions = append(positions, i)
			page = append(page, cut.Start+v-paste.Start)
		}
	}
	return positions, page
}
