package scanreader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKey_Padding(t *testing.T) {
	sels, err := parseKey([]any{2, "1:3"})
	require.NoError(t, err)

	require.True(t, sels[axisField].scalar)
	require.Equal(t, []int{2}, sels[axisField].list)
	require.False(t, sels[axisY].scalar)
	require.NotNil(t, sels[axisY].span)
	for _, axis := range []int{axisX, axisChannel, axisFrame} {
		require.True(t, sels[axis].full, axisNames[axis])
	}
}

func TestParseKey_ListIsCopied(t *testing.T) {
	list := []int{1, 2}
	sels, err := parseKey([]any{list})
	require.NoError(t, err)
	list[0] = 9
	require.Equal(t, []int{1, 2}, sels[axisField].list)
}

func TestSelectorResolve(t *testing.T) {
	tests := []struct {
		name   string
		elem   any
		extent int
		want   []int
	}{
		{"full", ":", 3, []int{0, 1, 2}},
		{"nil", nil, 2, []int{0, 1}},
		{"scalar", 3, 3, []int{2}},
		{"list keeps order", []int{3, 1, 3}, 3, []int{2, 0, 2}},
		{"range", "2:4", 5, []int{1, 2, 3}},
		{"stepped range", "1:2:6", 6, []int{0, 2, 4}},
		{"step past stop", "1:3:5", 5, []int{0, 3}},
		{"descending", "3:-1:1", 3, []int{2, 1, 0}},
		{"open start", ":2", 5, []int{0, 1}},
		{"missing step is malformed", "::-2", 5, nil},
		{"inverted", Range(3, 2), 5, []int{}},
		{"inverted past extent", "10:9", 5, []int{}},
		{"empty list", List{}, 5, []int{}},
		{"full of empty axis", All(), 0, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := parseElement(tt.elem)
			if tt.want == nil {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			got, err := sel.resolve(axisFrame, tt.extent)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSelectorResolve_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		elem   any
		extent int
	}{
		{"scalar zero", 0, 3},
		{"scalar past end", 4, 3},
		{"list", []int{1, 4}, 3},
		{"range end", "2:4", 3},
		{"stepped range last element", "1:2:5", 4},
		{"negative", -2, 3},
		{"huge range", "1:1000000000", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := parseElement(tt.elem)
			require.NoError(t, err)
			_, err = sel.resolve(axisChannel, tt.extent)
			require.ErrorIs(t, err, ErrIndexBounds)
			require.Contains(t, err.Error(), "channel")
		})
	}
}

func TestSelectorCountUnbounded(t *testing.T) {
	tests := []struct {
		elem any
		want int
	}{
		{":", 0},
		{"3:", 0},
		{"2:5", 4},
		{"5:2", 0},
		{"1:2:6", 3},
		{[]int{7, 8}, 2},
		{4, 1},
	}
	for _, tt := range tests {
		sel, err := parseElement(tt.elem)
		require.NoError(t, err)
		got, err := sel.countUnbounded(axisY)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "%v", tt.elem)
	}

	sel, err := parseElement([]int{1, 0})
	require.NoError(t, err)
	_, err = sel.countUnbounded(axisY)
	require.ErrorIs(t, err, ErrIndexBounds)
}

func TestIndexError_Message(t *testing.T) {
	_, err := parseKey([]any{1, 2, 3, 4, 5, 6})
	require.ErrorIs(t, err, ErrIndexType)
	require.Contains(t, err.Error(), "too many indices")

	_, err = parseKey([]any{1, 2.5})
	require.ErrorIs(t, err, ErrIndexType)
	require.Contains(t, err.Error(), "y unsupported key type float64")
}
