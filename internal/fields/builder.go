package fields

import (
	"fmt"
	"math"

	"github.com/ecobost/scanreader/internal/utils"
)

// SecondsPerLine returns the time the scanner spends on one line. A
// bidirectional resonant scanner records a line on each half period.
func SecondsPerLine(scannerFrequency float64, bidirectional bool) float64 {
	if scannerFrequency <= 0 {
		return math.NaN()
	}
	period := 1 / scannerFrequency
	if bidirectional {
		return period / 2
	}
	return period
}

// FlyToLines converts the fly-to time between scanfields into page lines.
// Bidirectional scans always skip an even number of lines.
func FlyToLines(flyToSeconds, scannerFrequency float64, bidirectional bool) int {
	secondsPerLine := SecondsPerLine(scannerFrequency, bidirectional)
	if math.IsNaN(secondsPerLine) || flyToSeconds <= 0 {
		return 0
	}
	lines := flyToSeconds / secondsPerLine
	if bidirectional {
		return int(2 * math.Ceil(lines/2))
	}
	return int(math.Ceil(lines))
}

// BuildMultiROI lays out the fields of every ROI at every scanning depth.
// Fields of one depth are stacked top to bottom in ROI order within the same
// page, separated by flyToLines rows.
func BuildMultiROI(depths []float64, rois []ROI, pageHeight, flyToLines int) ([]*Field, error) {
	var out []*Field
	for slice, depth := range depths {
		startingLine := 0
		for _, roi := range rois {
			desc, ok := roi.FieldAt(depth)
			if !ok {
				continue
			}
			if startingLine+desc.Height > pageHeight {
				return nil, utils.WrapError(
					fmt.Sprintf("roi %d at depth %g needs lines [%d,%d) of a %d-line page (fly-to lines: %d)",
						roi.ID(), depth, startingLine, startingLine+desc.Height, pageHeight, flyToLines),
					utils.ErrFieldLayoutOverflow)
			}

			out = append(out, &Field{
				Depth:           depth,
				Slice:           slice,
				Height:          desc.Height,
				Width:           desc.Width,
				RoiID:           roi.ID(),
				Y:               desc.Y,
				X:               desc.X,
				HeightInDegrees: desc.HeightInDegrees,
				WidthInDegrees:  desc.WidthInDegrees,
				CutY:            []Range{{startingLine, startingLine + desc.Height}},
				CutX:            []Range{{0, desc.Width}},
				PasteY:          []Range{{0, desc.Height}},
				PasteX:          []Range{{0, desc.Width}},
				SubfieldRois:    []int{roi.ID()},
			})
			startingLine += desc.Height + flyToLines
		}
	}
	return out, nil
}

// BuildUniform returns one full-page field per scanning depth.
func BuildUniform(depths []float64, pageHeight, pageWidth int) []*Field {
	out := make([]*Field, 0, len(depths))
	for slice, depth := range depths {
		out = append(out, &Field{
			Depth:        depth,
			Slice:        slice,
			Height:       pageHeight,
			Width:        pageWidth,
			CutY:         []Range{{0, pageHeight}},
			CutX:         []Range{{0, pageWidth}},
			PasteY:       []Range{{0, pageHeight}},
			PasteX:       []Range{{0, pageWidth}},
			SubfieldRois: []int{0},
		})
	}
	return out
}
