package roi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ecobost/scanreader/internal/utils"
)

// ScanImage serializes MATLAB structs, so a field holding one element is
// written as a bare value and several elements as an array.
type oneOrMany []json.RawMessage

func (o *oneOrMany) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var many []json.RawMessage
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	*o = oneOrMany{json.RawMessage(data)}
	return nil
}

// flag accepts MATLAB logicals written as booleans or numbers.
type flag struct {
	set   bool
	value bool
}

func (f *flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flag{set: true, value: b}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected logical, got %s", data)
	}
	*f = flag{set: true, value: n != 0}
	return nil
}

type roiGroupFile struct {
	RoiGroups struct {
		ImagingRoiGroup struct {
			Rois oneOrMany `json:"rois"`
		} `json:"imagingRoiGroup"`
	} `json:"RoiGroups"`
}

type roiJSON struct {
	Name              string    `json:"name"`
	Zs                oneOrMany `json:"zs"`
	Scanfields        oneOrMany `json:"scanfields"`
	DiscretePlaneMode flag      `json:"discretePlaneMode"`
	Enable            flag      `json:"enable"`
}

type scanfieldJSON struct {
	CenterXY          []float64 `json:"centerXY"`
	SizeXY            []float64 `json:"sizeXY"`
	PixelResolutionXY []float64 `json:"pixelResolutionXY"`
}

// ParseRoiGroups reads the imaging ROI group from ScanImage ROI metadata.
// Disabled ROIs are skipped; the rest are numbered from 1 in file order.
func ParseRoiGroups(data []byte) ([]*ROI, error) {
	var file roiGroupFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, utils.WrapError("roi group decode failed", err)
	}

	var rois []*ROI
	for i, raw := range file.RoiGroups.ImagingRoiGroup.Rois {
		var r roiJSON
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, utils.WrapError(fmt.Sprintf("roi %d decode failed", i+1), err)
		}
		if r.Enable.set && !r.Enable.value {
			continue
		}

		scanfields, err := r.scanfields()
		if err != nil {
			return nil, utils.WrapError(fmt.Sprintf("roi %d (%s)", i+1, r.Name), err)
		}
		rois = append(rois, New(len(rois)+1, r.Name, scanfields, r.DiscretePlaneMode.value))
	}
	return rois, nil
}

func (r roiJSON) scanfields() ([]Scanfield, error) {
	zs := make([]float64, len(r.Zs))
	for i, raw := range r.Zs {
		if err := json.Unmarshal(raw, &zs[i]); err != nil {
			return nil, fmt.Errorf("zs[%d]: %w", i, err)
		}
	}
	if len(zs) != len(r.Scanfields) {
		return nil, fmt.Errorf("%d zs for %d scanfields", len(zs), len(r.Scanfields))
	}

	out := make([]Scanfield, len(r.Scanfields))
	for i, raw := range r.Scanfields {
		var sf scanfieldJSON
		if err := json.Unmarshal(raw, &sf); err != nil {
			return nil, fmt.Errorf("scanfield %d: %w", i, err)
		}
		if len(sf.CenterXY) != 2 || len(sf.SizeXY) != 2 || len(sf.PixelResolutionXY) != 2 {
			return nil, fmt.Errorf("scanfield %d: centerXY, sizeXY and pixelResolutionXY need two values", i)
		}
		out[i] = Scanfield{
			Z:       zs[i],
			CenterX: sf.CenterXY[0],
			CenterY: sf.CenterXY[1],
			SizeX:   sf.SizeXY[0],
			SizeY:   sf.SizeXY[1],
			Width:   int(sf.PixelResolutionXY[0]),
			Height:  int(sf.PixelResolutionXY[1]),
		}
	}
	return out, nil
}
