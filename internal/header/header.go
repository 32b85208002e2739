// Package header extracts typed acquisition facts from the free-text
// ScanImage header.
//
// The header is a list of MATLAB assignments such as
//
//	SI.hChannels.channelSave = [1;2]
//	SI.hRoiManager.linesPerFrame = 512
//
// It is parsed once into an immutable Facts value. Keys that are absent or
// unparsable leave the corresponding fact unset; that is never an error.
package header

import (
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Opt is an optional fact.
type Opt[T any] struct {
	Value T
	Set   bool
}

func some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Set: true}
}

// Get returns the value and whether it was set.
func (o Opt[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// Or returns the value, or def when unset.
func (o Opt[T]) Or(def T) T {
	if !o.Set {
		return def
	}
	return o.Value
}

// Facts are the header values the reader depends on.
type Facts struct {
	Version                 Opt[int]
	NumChannels             Opt[int]
	ScanningDepths          Opt[[]float64]
	Bidirectional           Opt[bool]
	ScannerFrequency        Opt[float64]
	FlybackSeconds          Opt[float64]
	FlyToSeconds            Opt[float64]
	PageHeight              Opt[int]
	PageWidth               Opt[int]
	MultiROI                Opt[bool]
	ObjectiveResolution     Opt[float64]
	MotorPosition           Opt[[]float64]
	ScanFrameRate           Opt[float64]
	FillFractionTemporal    Opt[float64]
	Zoom                    Opt[float64]
	FastZ                   Opt[bool]
	NumDiscardFlybackFrames Opt[int]

	text   string
	values map[string]Value
}

var (
	assignmentRE = regexp.MustCompile(`^\s*(?:scanimage\.)?SI\.([A-Za-z0-9_.]+)\s*=\s*(.*?)\s*$`)
	versionRE    = regexp.MustCompile(`^\d+`)
)

// Parse reads every SI assignment in text.
func Parse(text string) *Facts {
	f := &Facts{text: text, values: make(map[string]Value)}

	for _, line := range strings.Split(text, "\n") {
		m := assignmentRE.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		f.values[m[1]] = parseValue(m[2])
	}

	f.Version = f.version()
	f.NumChannels = f.numChannels()
	f.ScanningDepths = f.scanningDepths()
	f.Bidirectional = f.boolean("hScan2D.bidirectional")
	f.ScannerFrequency = f.float("hScan2D.scannerFrequency")
	f.FlybackSeconds = f.float("hScan2D.flybackTimePerFrame")
	f.FlyToSeconds = f.float("hScan2D.flytoTimePerScanfield")
	f.PageHeight = f.integer("hRoiManager.linesPerFrame")
	f.PageWidth = f.integer("hRoiManager.pixelsPerLine")
	f.MultiROI = f.boolean("hRoiManager.mroiEnable")
	f.ObjectiveResolution = f.float("objectiveResolution")
	f.MotorPosition = f.list("hMotors.motorPosition")
	f.ScanFrameRate = f.float("hRoiManager.scanFrameRate")
	f.FillFractionTemporal = f.float("hScan2D.fillFractionTemporal")
	f.Zoom = f.float("hRoiManager.scanZoomFactor")
	f.FastZ = f.boolean("hFastZ.enable")
	f.NumDiscardFlybackFrames = f.integer("hFastZ.numDiscardFlybackFrames")
	return f
}

// Text returns the header the facts were parsed from.
func (f *Facts) Text() string {
	return f.text
}

// Lookup returns the raw value of a key, without the SI. prefix.
func (f *Facts) Lookup(key string) (Value, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *Facts) float(key string) Opt[float64] {
	if v, ok := f.values[key]; ok {
		if x, ok := v.Float(); ok {
			return some(x)
		}
	}
	return Opt[float64]{}
}

func (f *Facts) integer(key string) Opt[int] {
	if v, ok := f.values[key]; ok {
		if x, ok := v.Int(); ok {
			return some(x)
		}
	}
	return Opt[int]{}
}

func (f *Facts) boolean(key string) Opt[bool] {
	if v, ok := f.values[key]; ok {
		if x, ok := v.Bool(); ok {
			return some(x)
		}
	}
	return Opt[bool]{}
}

func (f *Facts) list(key string) Opt[[]float64] {
	if v, ok := f.values[key]; ok {
		if xs, ok := v.Floats(); ok && len(xs) > 0 {
			return some(xs)
		}
	}
	return Opt[[]float64]{}
}

// version accepts both '2016b' style strings and numeric majors like 5.1.
func (f *Facts) version() Opt[int] {
	v, ok := f.values["VERSION_MAJOR"]
	if !ok {
		return Opt[int]{}
	}
	if s, ok := v.Str(); ok {
		if n, err := strconv.Atoi(versionRE.FindString(s)); err == nil {
			return some(n)
		}
		return Opt[int]{}
	}
	if x, ok := v.Float(); ok {
		return some(int(x))
	}
	return Opt[int]{}
}

func (f *Facts) numChannels() Opt[int] {
	saved := f.list("hChannels.channelSave")
	if !saved.Set {
		return Opt[int]{}
	}
	return some(len(saved.Value))
}

// scanningDepths prefers the stack definition, then the fast-z position,
// then the z motor.
func (f *Facts) scanningDepths() Opt[[]float64] {
	if zs := f.list("hStackManager.zs"); zs.Set && !floats.HasNaN(zs.Value) {
		return zs
	}
	if z := f.float("hFastZ.position"); z.Set {
		return some([]float64{z.Value})
	}
	if motor := f.list("hMotors.motorPosition"); motor.Set && len(motor.Value) >= 3 {
		return some([]float64{motor.Value[2]})
	}
	return Opt[[]float64]{}
}
