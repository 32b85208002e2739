// Package roi models ScanImage regions of interest and the field each one
// images at a given scanning depth.
package roi

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/interp"

	"github.com/ecobost/scanreader/internal/fields"
)

// depthTol is the tolerance for matching a scanning depth to a scanfield z.
const depthTol = 1e-6

// Scanfield is the imaging geometry of an ROI at one z.
type Scanfield struct {
	Z       float64
	CenterX float64 // degrees
	CenterY float64 // degrees
	SizeX   float64 // degrees
	SizeY   float64 // degrees
	Width   int     // pixels
	Height  int     // pixels
}

func (s Scanfield) descriptor(depth float64) fields.Descriptor {
	return fields.Descriptor{
		Height:          s.Height,
		Width:           s.Width,
		Depth:           depth,
		Y:               s.CenterY,
		X:               s.CenterX,
		HeightInDegrees: s.SizeY,
		WidthInDegrees:  s.SizeX,
	}
}

// ROI is a region of interest defined by one or more scanfields.
type ROI struct {
	id                int
	Name              string
	Scanfields        []Scanfield // sorted by Z, unique Z
	DiscretePlaneMode bool
}

// New returns an ROI with a 1-based id. Scanfields are sorted by z; when two
// share a z the first one wins.
func New(id int, name string, scanfields []Scanfield, discrete bool) *ROI {
	sorted := slices.Clone(scanfields)
	slices.SortStableFunc(sorted, func(a, b Scanfield) int { return cmp.Compare(a.Z, b.Z) })
	sorted = slices.CompactFunc(sorted, func(a, b Scanfield) bool { return a.Z == b.Z })
	return &ROI{id: id, Name: name, Scanfields: sorted, DiscretePlaneMode: discrete}
}

// ID returns the 1-based ROI id.
func (r *ROI) ID() int {
	return r.id
}

// FieldAt returns the field the ROI images at depth.
//
// In discrete plane mode only depths matching a scanfield produce a field.
// Otherwise a single scanfield applies at every depth, and several scanfields
// are linearly interpolated between their lowest and highest z.
func (r *ROI) FieldAt(depth float64) (fields.Descriptor, bool) {
	if len(r.Scanfields) == 0 {
		return fields.Descriptor{}, false
	}

	if r.DiscretePlaneMode {
		for _, sf := range r.Scanfields {
			if scalar.EqualWithinAbs(sf.Z, depth, depthTol) {
				return sf.descriptor(depth), true
			}
		}
		return fields.Descriptor{}, false
	}

	if len(r.Scanfields) == 1 {
		return r.Scanfields[0].descriptor(depth), true
	}

	zs := make([]float64, len(r.Scanfields))
	for i, sf := range r.Scanfields {
		zs[i] = sf.Z
	}
	if depth < floats.Min(zs)-depthTol || depth > floats.Max(zs)+depthTol {
		return fields.Descriptor{}, false
	}

	at := func(prop func(Scanfield) float64) float64 {
		ys := make([]float64, len(r.Scanfields))
		for i, sf := range r.Scanfields {
			ys[i] = prop(sf)
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(zs, ys); err != nil {
			return math.NaN()
		}
		return pl.Predict(depth)
	}

	return fields.Descriptor{
		Height:          int(math.Round(at(func(s Scanfield) float64 { return float64(s.Height) }))),
		Width:           int(math.Round(at(func(s Scanfield) float64 { return float64(s.Width) }))),
		Depth:           depth,
		Y:               at(func(s Scanfield) float64 { return s.CenterY }),
		X:               at(func(s Scanfield) float64 { return s.CenterX }),
		HeightInDegrees: at(func(s Scanfield) float64 { return s.SizeY }),
		WidthInDegrees:  at(func(s Scanfield) float64 { return s.SizeX }),
	}, true
}

// AsFieldROIs adapts rois to the field builder.
func AsFieldROIs(rois []*ROI) []fields.ROI {
	out := make([]fields.ROI, len(rois))
	for i, r := range rois {
		out[i] = r
	}
	return out
}
