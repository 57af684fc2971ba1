package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Euler angles use the Y-X-Z (yaw, pitch, roll) order: a rotation built from
// (x, y, z) degrees is qY(y)·qX(x)·qZ(z).

// Axis selects one or more Euler components. It is a bit set.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY
	AxisZ

	AxisXY  = AxisX | AxisY
	AxisYZ  = AxisY | AxisZ
	AxisXZ  = AxisX | AxisZ
	AxisXYZ = AxisX | AxisY | AxisZ
)

// Valid reports whether a names at least one axis and nothing else.
func (a Axis) Valid() bool {
	return a != 0 && a&^AxisXYZ == 0
}

// Single reports whether a names exactly one axis.
func (a Axis) Single() bool {
	return a == AxisX || a == AxisY || a == AxisZ
}

func (a Axis) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
	s := ""
	if a&AxisX != 0 {
		s += "X"
	}
	if a&AxisY != 0 {
		s += "Y"
	}
	if a&AxisZ != 0 {
		s += "Z"
	}
	return s
}

// ParseAxis parses "X", "YZ", "XYZ" and so on.
func ParseAxis(s string) (Axis, error) {
	var a Axis
	for _, r := range s {
		var bit Axis
		switch r {
		case 'X', 'x':
			bit = AxisX
		case 'Y', 'y':
			bit = AxisY
		case 'Z', 'z':
			bit = AxisZ
		default:
			return 0, fmt.Errorf("%w: %q", ErrUnknownAxis, s)
		}
		if a&bit != 0 {
			return 0, fmt.Errorf("%w: %q repeats an axis", ErrUnknownAxis, s)
		}
		a |= bit
	}
	if !a.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAxis, s)
	}
	return a, nil
}

func checkAxis(a Axis) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownAxis, uint8(a))
	}
	return nil
}

// FromEulerDegrees builds a rotation from pitch (X), yaw (Y) and roll (Z)
// in degrees.
func FromEulerDegrees(e Vec) quat.Number {
	hx, hy, hz := Radians(e.X)/2, Radians(e.Y)/2, Radians(e.Z)/2
	sp, cp := math.Sincos(hx)
	sy, cy := math.Sincos(hy)
	sr, cr := math.Sincos(hz)
	return quat.Number{
		Imag: cy*sp*cr + sy*cp*sr,
		Jmag: sy*cp*cr - cy*sp*sr,
		Kmag: cy*cp*sr - sy*sp*cr,
		Real: cy*cp*cr + sy*sp*sr,
	}
}

// ToEulerDegrees decomposes q into pitch (X), yaw (Y) and roll (Z) degrees.
// At the pitch singularity the roll is folded into the yaw.
func ToEulerDegrees(q quat.Number) Vec {
	q = Normalized(q)
	x, y, z, w := q.Imag, q.Jmag, q.Kmag, q.Real
	const limit = 0.4999999

	zAxisY := y*z - x*w
	var e Vec
	switch {
	case zAxisY < -limit:
		e = Vec{X: math.Pi / 2, Y: 2 * math.Atan2(y, w)}
	case zAxisY > limit:
		e = Vec{X: -math.Pi / 2, Y: 2 * math.Atan2(y, w)}
	default:
		e = Vec{
			X: math.Asin(Clamp(-2*zAxisY, -1, 1)),
			Y: math.Atan2(2*(z*x+y*w), z*z-x*x-y*y+w*w),
			Z: math.Atan2(2*(x*y+z*w), -z*z-x*x+y*y+w*w),
		}
	}
	return Vec{
		X: NormalizeDegrees(Degrees(e.X)),
		Y: NormalizeDegrees(Degrees(e.Y)),
		Z: NormalizeDegrees(Degrees(e.Z)),
	}
}

// NormalizeDegrees wraps a into [-180, 180).
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a+180, 360)
	if a < 0 {
		a += 360
	}
	return a - 180
}

// ClampDegrees wraps a into [-180, 180) and clamps it to [low, high].
// Bounds given in the wrong order are swapped.
func ClampDegrees(a, low, high float64) float64 {
	if low > high {
		low, high = high, low
	}
	return Clamp(NormalizeDegrees(a), low, high)
}

// AxisCap keeps the Euler components named by Axis, clamped to [Low, High]
// degrees.
type AxisCap struct {
	Axis      Axis
	Low, High float64
}

// RemoveRotationAxisWithCap keeps only the Euler components listed in caps,
// clamped to their bounds, and zeroes the rest.
func RemoveRotationAxisWithCap(q quat.Number, caps ...AxisCap) (quat.Number, error) {
	e := ToEulerDegrees(q)
	var out Vec
	for _, c := range caps {
		if err := checkAxis(c.Axis); err != nil {
			return q, err
		}
		if c.Axis&AxisX != 0 {
			out.X = ClampDegrees(e.X, c.Low, c.High)
		}
		if c.Axis&AxisY != 0 {
			out.Y = ClampDegrees(e.Y, c.Low, c.High)
		}
		if c.Axis&AxisZ != 0 {
			out.Z = ClampDegrees(e.Z, c.Low, c.High)
		}
	}
	return FromEulerDegrees(out), nil
}

// ReverseRotation negates the Euler components named by axis.
func ReverseRotation(q quat.Number, axis Axis) (quat.Number, error) {
	if err := checkAxis(axis); err != nil {
		return q, err
	}
	e := ToEulerDegrees(q)
	if axis&AxisX != 0 {
		e.X = -e.X
	}
	if axis&AxisY != 0 {
		e.Y = -e.Y
	}
	if axis&AxisZ != 0 {
		e.Z = -e.Z
	}
	return FromEulerDegrees(e), nil
}

// ExchangeRotationAxis swaps two Euler components of q.
func ExchangeRotationAxis(q quat.Number, a, b Axis) (quat.Number, error) {
	if !a.Single() || !b.Single() {
		return q, fmt.Errorf("%w: exchange needs single axes, got %v and %v", ErrUnknownAxis, a, b)
	}
	e := ToEulerDegrees(q)
	get := func(ax Axis) float64 {
		switch ax {
		case AxisX:
			return e.X
		case AxisY:
			return e.Y
		}
		return e.Z
	}
	va, vb := get(a), get(b)
	out := e
	for _, p := range [...]struct {
		ax Axis
		v  float64
	}{{a, vb}, {b, va}} {
		switch p.ax {
		case AxisX:
			out.X = p.v
		case AxisY:
			out.Y = p.v
		case AxisZ:
			out.Z = p.v
		}
	}
	return FromEulerDegrees(out), nil
}
