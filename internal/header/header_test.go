package header

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const multiROIHeader = `SI.VERSION_MAJOR = '2016b'
SI.VERSION_MINOR = '0'
SI.hChannels.channelSave = [1;2]
SI.hFastZ.enable = true
SI.hFastZ.numDiscardFlybackFrames = 1
SI.hMotors.motorPosition = [-1.5 20 -310]
SI.hRoiManager.linesPerFrame = 1024
SI.hRoiManager.mroiEnable = 1
SI.hRoiManager.pixelsPerLine = 256
SI.hRoiManager.scanFrameRate = 13.1
SI.hRoiManager.scanZoomFactor = 1
SI.hScan2D.bidirectional = true
SI.hScan2D.fillFractionTemporal = 0.712
SI.hScan2D.flybackTimePerFrame = 0.001
SI.hScan2D.flytoTimePerScanfield = 0.001
SI.hScan2D.scannerFrequency = 7910.49
SI.hStackManager.zs = [0 15 30]
SI.objectiveResolution = 15.5
`

func TestParse_MultiROI(t *testing.T) {
	f := Parse(multiROIHeader)

	require.Equal(t, some(2016), f.Version)
	require.Equal(t, some(2), f.NumChannels)
	require.Equal(t, some([]float64{0, 15, 30}), f.ScanningDepths)
	require.Equal(t, some(true), f.Bidirectional)
	require.Equal(t, some(7910.49), f.ScannerFrequency)
	require.Equal(t, some(0.001), f.FlybackSeconds)
	require.Equal(t, some(0.001), f.FlyToSeconds)
	require.Equal(t, some(1024), f.PageHeight)
	require.Equal(t, some(256), f.PageWidth)
	require.Equal(t, some(true), f.MultiROI)
	require.Equal(t, some(15.5), f.ObjectiveResolution)
	require.Equal(t, some([]float64{-1.5, 20, -310}), f.MotorPosition)
	require.Equal(t, some(13.1), f.ScanFrameRate)
	require.Equal(t, some(0.712), f.FillFractionTemporal)
	require.Equal(t, some(1.0), f.Zoom)
	require.Equal(t, some(true), f.FastZ)
	require.Equal(t, some(1), f.NumDiscardFlybackFrames)
	require.Equal(t, multiROIHeader, f.Text())

	v, ok := f.Lookup("VERSION_MINOR")
	require.True(t, ok)
	require.Equal(t, "'0'", v.Raw())
}

func TestParse_LegacyPrefixAndFallbacks(t *testing.T) {
	text := "scanimage.SI.VERSION_MAJOR = 5.1\r\n" +
		"scanimage.SI.hChannels.channelSave = 1\r\n" +
		"scanimage.SI.hMotors.motorPosition = [0 0 -120]\r\n" +
		"scanimage.SI.hScan2D.bidirectional = false\r\n"
	f := Parse(text)

	require.Equal(t, some(5), f.Version)
	require.Equal(t, some(1), f.NumChannels)
	require.Equal(t, some([]float64{-120}), f.ScanningDepths)
	require.Equal(t, some(false), f.Bidirectional)
	require.False(t, f.MultiROI.Set)
	require.False(t, f.PageHeight.Set)
	require.Equal(t, 512, f.PageHeight.Or(512))
}

func TestParse_DepthFallbacks(t *testing.T) {
	f := Parse("SI.hStackManager.zs = [NaN]\nSI.hFastZ.position = 42\n")
	require.Equal(t, some([]float64{42}), f.ScanningDepths)

	f = Parse("SI.hStackManager.zs = 7\n")
	require.Equal(t, some([]float64{7}), f.ScanningDepths)

	f = Parse("")
	require.False(t, f.ScanningDepths.Set)
}

func TestParse_MissingIsUnset(t *testing.T) {
	f := Parse("this is not a header\nSI.hScan2D.scannerFrequency = 'fast'\n")
	_, ok := f.ScannerFrequency.Get()
	require.False(t, ok)
	require.False(t, f.Version.Set)
	require.False(t, f.NumChannels.Set)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw    string
		float  float64
		scalar bool
		list   []float64
	}{
		{raw: "12.5", float: 12.5, scalar: true, list: []float64{12.5}},
		{raw: "true", float: 1, scalar: true, list: []float64{1}},
		{raw: "[1 2;3]", list: []float64{1, 2, 3}},
		{raw: "[]", list: nil},
		{raw: "[1,2]", list: []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := parseValue(tt.raw)
			f, ok := v.Float()
			require.Equal(t, tt.scalar, ok)
			if ok {
				require.Equal(t, tt.float, f)
			}
			list, ok := v.Floats()
			require.True(t, ok)
			require.Equal(t, tt.list, list)
		})
	}

	s, ok := parseValue("'abc'").Str()
	require.True(t, ok)
	require.Equal(t, "abc", s)

	n, ok := parseValue("-2.6").Int()
	require.True(t, ok)
	require.Equal(t, -3, n)

	nan, ok := parseValue("NaN").Float()
	require.True(t, ok)
	require.True(t, math.IsNaN(nan))
}
