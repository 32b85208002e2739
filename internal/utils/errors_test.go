package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanError_Error(t *testing.T) {
	tests := []struct {
		name     string
		context  string
		cause    error
		expected string
	}{
		{
			name:     "simple error",
			context:  "reading page 3",
			cause:    errors.New("unexpected EOF"),
			expected: "reading page 3: unexpected EOF",
		},
		{
			name:     "sentinel cause",
			context:  "building fields",
			cause:    ErrFieldLayoutOverflow,
			expected: "building fields: fields do not fit in the page",
		},
		{
			name:     "empty context",
			context:  "",
			cause:    errors.New("some error"),
			expected: ": some error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ScanError{Context: tt.context, Cause: tt.cause}
			require.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestWrapError_Nil(t *testing.T) {
	require.Nil(t, WrapError("some operation", nil))
}

func TestWrapError_ChainedWrapping(t *testing.T) {
	level1 := WrapError("level 1", ErrIndexBounds)
	level2 := WrapError("level 2", level1)

	require.True(t, errors.Is(level2, ErrIndexBounds))
	require.Contains(t, level2.Error(), "level 2")
	require.Contains(t, level2.Error(), "level 1")

	var scanErr *ScanError
	require.True(t, errors.As(level2, &scanErr))
	require.Equal(t, "level 2", scanErr.Context)

	unwrapped := errors.Unwrap(level2)
	require.True(t, errors.As(unwrapped, &scanErr))
	require.Equal(t, "level 1", scanErr.Context)
	require.Equal(t, ErrIndexBounds, errors.Unwrap(unwrapped))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrIndexType, ErrIndexBounds, ErrFieldDimensionMismatch,
		ErrFieldLayoutOverflow, ErrInternalAddressing, ErrUnsupported,
		ErrClosed, ErrNotScanImage,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				require.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}
