package scanreader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ecobost/scanreader/internal/utils"
)

// Axes of the logical scan array, in key order.
const (
	axisField = iota
	axisY
	axisX
	axisChannel
	axisFrame
	numAxes
)

var axisNames = [numAxes]string{"field", "y", "x", "channel", "frame"}

// Int selects a single 1-based index. The axis is squeezed from the result.
type Int int

// List selects 1-based indices in the given order; duplicates are kept.
type List []int

type fullRange struct{}

// span is an inclusive 1-based range. A zero start or stop means the first
// or last index of the axis.
type span struct {
	start, step, stop int
}

// All selects every index of an axis.
func All() any {
	return fullRange{}
}

// Range selects start..stop inclusive. An inverted range selects nothing.
func Range(start, stop int) any {
	return span{start: start, step: 1, stop: stop}
}

// RangeStep selects start, start+step, ... up to stop inclusive.
func RangeStep(start, step, stop int) any {
	return span{start: start, step: step, stop: stop}
}

// IndexError describes a key that cannot be applied to the scan. It wraps
// ErrIndexType or ErrIndexBounds.
type IndexError struct {
	Axis   string
	Detail string
	Err    error
}

func (e *IndexError) Error() string {
	if e.Axis == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	}
	return fmt.Sprintf("%v: %s %s", e.Err, e.Axis, e.Detail)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// selector is one parsed key element, not yet bound to an axis extent.
type selector struct {
	full   bool
	scalar bool
	list   []int
	span   *span
}

// parseKey validates the key syntax and pads it to every axis.
func parseKey(key []any) ([numAxes]selector, error) {
	var sels [numAxes]selector
	if len(key) > numAxes {
		return sels, &IndexError{
			Detail: fmt.Sprintf("too many indices: %d given, scan has %d axes", len(key), numAxes),
			Err:    utils.ErrIndexType,
		}
	}
	for i := range sels {
		if i >= len(key) {
			sels[i] = selector{full: true}
			continue
		}
		sel, err := parseElement(key[i])
		if err != nil {
			return sels, &IndexError{Axis: axisNames[i], Detail: err.Error(), Err: utils.ErrIndexType}
		}
		sels[i] = sel
	}
	return sels, nil
}

func parseElement(e any) (selector, error) {
	switch v := e.(type) {
	case nil, fullRange:
		return selector{full: true}, nil
	case string:
		return parseRangeString(v)
	case span:
		if v.step == 0 {
			return selector{}, fmt.Errorf("range step cannot be zero")
		}
		return selector{span: &v}, nil
	case List:
		return selector{list: append([]int{}, v...)}, nil
	case []int:
		return selector{list: append([]int{}, v...)}, nil
	case Int:
		return selector{scalar: true, list: []int{int(v)}}, nil
	}

	if n, ok := asInt(e); ok {
		return selector{scalar: true, list: []int{n}}, nil
	}
	return selector{}, fmt.Errorf("unsupported key type %T", e)
}

func asInt(e any) (int, bool) {
	switch v := e.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), v <= uint(maxInt) //nolint:gosec // range checked
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), v <= uint64(maxInt) //nolint:gosec // range checked
	}
	return 0, false
}

const maxInt = int(^uint(0) >> 1)

// parseRangeString accepts ":", "a:b", "a:step:b", and open ends such as
// "a:" or ":b".
func parseRangeString(s string) (selector, error) {
	s = strings.TrimSpace(s)
	if s == ":" {
		return selector{full: true}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return selector{}, fmt.Errorf("malformed range %q", s)
	}

	sp := span{step: 1}
	var err error
	if sp.start, err = rangeBound(parts[0]); err != nil {
		return selector{}, fmt.Errorf("malformed range %q: %w", s, err)
	}
	if sp.stop, err = rangeBound(parts[len(parts)-1]); err != nil {
		return selector{}, fmt.Errorf("malformed range %q: %w", s, err)
	}
	if len(parts) == 3 {
		if sp.step, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
			return selector{}, fmt.Errorf("malformed range %q: %w", s, err)
		}
		if sp.step == 0 {
			return selector{}, fmt.Errorf("range %q has zero step", s)
		}
	}
	return selector{span: &sp}, nil
}

func rangeBound(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("indices start at 1")
	}
	return n, nil
}

// resolve turns a selector into 0-based indices on an axis of the given
// extent. Every index is checked before the list is built.
func (s selector) resolve(axis, extent int) ([]int, error) {
	switch {
	case s.full:
		out := make([]int, extent)
		for i := range out {
			out[i] = i
		}
		return out, nil

	case s.span != nil:
		start, stop, step := s.span.start, s.span.stop, s.span.step
		if start == 0 {
			start = 1
			if step < 0 {
				start = extent
			}
		}
		if stop == 0 {
			stop = extent
			if step < 0 {
				stop = 1
			}
		}
		if (step > 0 && start > stop) || (step < 0 && start < stop) {
			return []int{}, nil
		}
		count := (stop-start)/step + 1
		last := start + (count-1)*step
		for _, v := range []int{start, last} {
			if err := checkBounds(axis, v, extent); err != nil {
				return nil, err
			}
		}
		out := make([]int, count)
		for i := range out {
			out[i] = start + i*step - 1
		}
		return out, nil

	default:
		out := make([]int, len(s.list))
		for i, v := range s.list {
			if err := checkBounds(axis, v, extent); err != nil {
				return nil, err
			}
			out[i] = v - 1
		}
		return out, nil
	}
}

// countUnbounded is used for y and x when no field is selected, so there is
// no extent to check against. A full or open range counts as empty and
// explicit indices only need to be positive.
func (s selector) countUnbounded(axis int) (int, error) {
	switch {
	case s.full:
		return 0, nil
	case s.span != nil:
		sp := s.span
		if sp.start == 0 || sp.stop == 0 || (sp.step > 0 && sp.start > sp.stop) || (sp.step < 0 && sp.start < sp.stop) {
			return 0, nil
		}
		for _, v := range []int{sp.start, sp.stop} {
			if err := checkBounds(axis, v, maxInt); err != nil {
				return 0, err
			}
		}
		return (sp.stop-sp.start)/sp.step + 1, nil
	default:
		for _, v := range s.list {
			if err := checkBounds(axis, v, maxInt); err != nil {
				return 0, err
			}
		}
		return len(s.list), nil
	}
}

func checkBounds(axis, v, extent int) error {
	if v < 1 || v > extent {
		detail := fmt.Sprintf("index %d out of range 1..%d", v, extent)
		if extent == maxInt {
			detail = fmt.Sprintf("index %d must be at least 1", v)
		}
		return &IndexError{Axis: axisNames[axis], Detail: detail, Err: utils.ErrIndexBounds}
	}
	return nil
}
