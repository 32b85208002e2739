package utils

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer of the reader. The root package
// re-exports these so callers can test with errors.Is.
var (
	ErrIndexType              = errors.New("invalid index type")
	ErrIndexBounds            = errors.New("index out of bounds")
	ErrFieldDimensionMismatch = errors.New("requested fields have different dimensions")
	ErrFieldLayoutOverflow    = errors.New("fields do not fit in the page")
	ErrInternalAddressing     = errors.New("page address outside every file")
	ErrUnsupported            = errors.New("unsupported feature")
	ErrClosed                 = errors.New("scan is closed")
	ErrNotScanImage           = errors.New("not a ScanImage file")
)

// ScanError represents a structured reader error.
type ScanError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError creates a contextual error.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &ScanError{
		Context: context,
		Cause:   cause,
	}
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *ScanError) Unwrap() error {
	return e.Cause
}
