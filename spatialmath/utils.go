package spatialmath

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ParseFloats splits up space or comma delimited numbers, as used in flags like "--translation 0,0,-10".
func ParseFloats(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	converted := make([]float64, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", field)
		}
		converted = append(converted, value)
	}
	return converted, nil
}

// ParseVector parses exactly three numbers into a vector.
func ParseVector(s string) (r3.Vector, error) {
	values, err := ParseFloats(s)
	if err != nil {
		return r3.Vector{}, err
	}
	return VectorFromSlice(values)
}

// VectorFromSlice converts a three element slice into a vector.
func VectorFromSlice(values []float64) (r3.Vector, error) {
	if len(values) != 3 {
		return r3.Vector{}, errors.Errorf("expected 3 values for a vector, got %d", len(values))
	}
	return r3.Vector{X: values[0], Y: values[1], Z: values[2]}, nil
}

// RotationFromRowMajor converts nine row-major values into a rotation matrix.
func RotationFromRowMajor(values []float64) (mgl64.Mat3, error) {
	if len(values) != 9 {
		return mgl64.Mat3{}, errors.Errorf("expected 9 values for a rotation matrix, got %d", len(values))
	}
	var r mgl64.Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r.Set(row, col, values[row*3+col])
		}
	}
	return r, nil
}
