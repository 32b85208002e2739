package utils

import (
	"fmt"
	"math"
)

// MaxOutputElements limits a single indexing result to 2^31 pixels (4GB of int16).
const MaxOutputElements = 1 << 31

// CheckMultiplyOverflow checks if multiplying two non-negative ints would overflow.
func CheckMultiplyOverflow(a, b int) error {
	if a < 0 || b < 0 {
		return fmt.Errorf("negative operand: %d * %d", a, b)
	}
	if a == 0 || b == 0 {
		return nil
	}
	if a > math.MaxInt/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds int max", a, b)
	}
	return nil
}

// SafeMultiply multiplies two ints and returns the result if no overflow occurs.
func SafeMultiply(a, b int) (int, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// ElementCount returns the product of shape with overflow checking.
// A shape with a zero extent has zero elements; an empty shape is a scalar.
func ElementCount(shape []int) (int, error) {
	total := 1
	for i, n := range shape {
		var err error
		total, err = SafeMultiply(total, n)
		if err != nil {
			return 0, fmt.Errorf("element count overflow at dimension %d: %w", i, err)
		}
	}
	if total > MaxOutputElements {
		return 0, fmt.Errorf("element count %d exceeds maximum %d", total, MaxOutputElements)
	}
	return total, nil
}

// ValidateBufferSize validates that a buffer size is within reasonable limits.
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size == 0 {
		return fmt.Errorf("%s: size cannot be zero", description)
	}
	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}
	return nil
}

// Common metadata size limits.
const (
	// MaxHeaderSize limits the ScanImage header text to 64MB.
	MaxHeaderSize = 64 * 1024 * 1024

	// MaxTagEntries limits a single IFD to 4096 entries.
	MaxTagEntries = 4096
)
