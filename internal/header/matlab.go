package header

import (
	"math"
	"strconv"
	"strings"
)

// Value is a MATLAB literal as written in a ScanImage header: a number,
// logical, string or numeric array.
type Value struct {
	raw     string
	numbers []float64
	isArray bool
	str     string
	isStr   bool
}

// parseValue parses the right-hand side of a "key = value" header line.
func parseValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	v := Value{raw: raw}

	switch {
	case strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") && len(raw) >= 2:
		v.str, v.isStr = raw[1:len(raw)-1], true
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		v.isArray = true
		body := strings.NewReplacer(";", " ", ",", " ").Replace(raw[1 : len(raw)-1])
		for _, tok := range strings.Fields(body) {
			if f, ok := parseNumber(tok); ok {
				v.numbers = append(v.numbers, f)
			}
		}
	default:
		if f, ok := parseNumber(raw); ok {
			v.numbers = []float64{f}
		}
	}
	return v
}

func parseNumber(tok string) (float64, bool) {
	switch strings.ToLower(tok) {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Raw returns the literal text.
func (v Value) Raw() string { return v.raw }

// Float returns the scalar numeric value.
func (v Value) Float() (float64, bool) {
	if v.isArray || len(v.numbers) != 1 {
		return 0, false
	}
	return v.numbers[0], true
}

// Int returns the scalar value rounded to an int.
func (v Value) Int() (int, bool) {
	f, ok := v.Float()
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// Bool returns a logical value; any non-zero scalar is true.
func (v Value) Bool() (bool, bool) {
	f, ok := v.Float()
	if !ok {
		return false, false
	}
	return f != 0, true
}

// Floats returns the value as a list; a scalar becomes a one-element list.
func (v Value) Floats() ([]float64, bool) {
	if v.isStr || (!v.isArray && len(v.numbers) == 0) {
		return nil, false
	}
	return v.numbers, true
}

// Str returns the quoted string value.
func (v Value) Str() (string, bool) {
	return v.str, v.isStr
}
