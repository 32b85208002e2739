// Package ndarray provides the dense row-major container returned by scan reads.
package ndarray

import (
	"fmt"
	"slices"

	"github.com/ecobost/scanreader/internal/utils"
)

// Array is a dense N-dimensional int16 array stored in row-major order.
type Array struct {
	Shape []int
	Data  []int16
}

// New allocates a zeroed array with the given shape.
func New(shape ...int) (*Array, error) {
	n, err := utils.ElementCount(shape)
	if err != nil {
		return nil, utils.WrapError("array allocation failed", err)
	}
	return &Array{
		Shape: slices.Clone(shape),
		Data:  make([]int16, n),
	}, nil
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.Data)
}

// NDim returns the number of dimensions.
func (a *Array) NDim() int {
	return len(a.Shape)
}

// Strides returns the element stride of every dimension.
func (a *Array) Strides() []int {
	strides := make([]int, len(a.Shape))
	acc := 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= a.Shape[i]
	}
	return strides
}

// Offset returns the linear offset of a 0-based multi-index.
func (a *Array) Offset(idx ...int) int {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("ndarray: got %d indices for %d dimensions", len(idx), len(a.Shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.Shape[i] {
			panic(fmt.Sprintf("ndarray: index %d out of range [0,%d) in dimension %d", v, a.Shape[i], i))
		}
		off = off*a.Shape[i] + v
	}
	return off
}

// At returns the element at a 0-based multi-index.
func (a *Array) At(idx ...int) int16 {
	return a.Data[a.Offset(idx...)]
}

// Set stores v at a 0-based multi-index.
func (a *Array) Set(v int16, idx ...int) {
	a.Data[a.Offset(idx...)] = v
}

// Squeeze returns a view of a with the given axes removed. Every removed
// axis must have extent 1; data is shared with a.
func (a *Array) Squeeze(axes ...int) (*Array, error) {
	drop := make(map[int]bool, len(axes))
	for _, ax := range axes {
		if ax < 0 || ax >= len(a.Shape) {
			return nil, fmt.Errorf("squeeze axis %d out of range for %d dimensions", ax, len(a.Shape))
		}
		if a.Shape[ax] != 1 {
			return nil, fmt.Errorf("cannot squeeze axis %d with extent %d", ax, a.Shape[ax])
		}
		drop[ax] = true
	}

	shape := make([]int, 0, len(a.Shape)-len(drop))
	for i, n := range a.Shape {
		if !drop[i] {
			shape = append(shape, n)
		}
	}
	return &Array{Shape: shape, Data: a.Data}, nil
}

// Equal reports whether a and b have the same shape and data.
func (a *Array) Equal(b *Array) bool {
	return slices.Equal(a.Shape, b.Shape) && slices.Equal(a.Data, b.Data)
}
