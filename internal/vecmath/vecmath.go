// Package vecmath holds the vector helpers shared by the guidance programs.
//
// Vectors are in the host's world frame. Orientation frames are rotation matrices whose
// columns are a block's right, up and backward axes.
package vecmath

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/corax/nail/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrEmptyVector is returned when there is no text to parse.
	ErrEmptyVector = errors.New("empty vector literal")
	// ErrInvalidVector is returned when the text is not three finite numbers.
	ErrInvalidVector = errors.New("invalid vector literal")
)

const axisNames = "XYZ"

// ParseVector parses "x,y,z", "x y z" or the host's own "{X:x Y:y Z:z}" form.
func ParseVector(s string) (mgl64.Vec3, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return mgl64.Vec3{}, ErrEmptyVector
	}

	if strings.HasPrefix(s, "{") != strings.HasSuffix(s, "}") {
		return mgl64.Vec3{}, ErrInvalidVector
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) != 3 {
		return mgl64.Vec3{}, ErrInvalidVector
	}

	var v mgl64.Vec3
	for i, field := range fields {
		if label, value, found := strings.Cut(field, ":"); found {
			if !strings.EqualFold(label, axisNames[i:i+1]) {
				return mgl64.Vec3{}, ErrInvalidVector
			}
			field = value
		}
		f, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return mgl64.Vec3{}, ErrInvalidVector
		}
		v[i] = f
	}
	return v, nil
}

// FormatVector prints v in the host's vector format, losslessly.
func FormatVector(v mgl64.Vec3) string {
	var b strings.Builder
	b.WriteByte('{')
	for i := 0; i < 3; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(axisNames[i])
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(v[i], 'f', -1, 64))
	}
	b.WriteByte('}')
	return b.String()
}

// Distance is the straight-line distance between a and b.
func Distance(a, b mgl64.Vec3) float64 {
	return a.Sub(b).Len()
}

// Forward returns the forward axis of an orientation frame.
func Forward(frame mgl64.Mat3) mgl64.Vec3 {
	return frame.Col(2).Mul(-1)
}

// ToLocal expresses a world-space direction in the given frame using its transpose.
func ToLocal(frame mgl64.Mat3, v mgl64.Vec3) mgl64.Vec3 {
	return frame.Transpose().Mul3x1(v)
}

// Normalize returns v scaled to unit length, or the zero vector when v has no length.
func Normalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// ToPosition converts a vector to a core position.
func ToPosition(v mgl64.Vec3) core.Position3D {
	return core.Position3D{X: v[0], Y: v[1], Z: v[2]}
}

// FromPosition converts a core position to a vector.
func FromPosition(p core.Position3D) mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}
