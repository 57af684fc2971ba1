// Package geom provides the rotation primitives used by the retargeting
// engine: vectors, quaternions, Euler angles in degrees, orthonormal bases
// and spherical coordinates local to a basis.
//
// All vectors live in the solver frame: +X to the image right, +Y up, +Z
// away from the camera. In that frame x × y = z, which is what this package
// calls a left-handed basis (the convention of the renderer the rotations
// are produced for).
package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Vec is a 3D vector.
type Vec = r3.Vector

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-9

var (
	// ErrDegenerate is returned when a computation needs a non-zero length
	// vector (or non-collinear points) and does not get one.
	ErrDegenerate = errors.New("degenerate geometry")
	// ErrInvalidBasis is returned when three axes do not form a valid basis.
	ErrInvalidBasis = errors.New("invalid basis")
	// ErrUnknownAxis is returned for an Axis value outside the defined set.
	ErrUnknownAxis = errors.New("unknown axis")
	// ErrInvalidOrder is returned by Basis.Transpose for a malformed order.
	ErrInvalidOrder = errors.New("invalid transpose order")
)

// V is shorthand for building a Vec.
func V(x, y, z float64) Vec {
	return Vec{X: x, Y: y, Z: z}
}

// Finite reports whether every component of v is a finite number.
func Finite(v Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Normalize returns v scaled to unit length. Zero and non-finite vectors
// fail with ErrDegenerate instead of producing NaN.
func Normalize(v Vec) (Vec, error) {
	if !Finite(v) {
		return Vec{}, fmt.Errorf("%w: non-finite vector %v", ErrDegenerate, v)
	}
	n := v.Norm()
	if n < Epsilon {
		return Vec{}, fmt.Errorf("%w: zero-length vector", ErrDegenerate)
	}
	return v.Mul(1 / n), nil
}

// PlaneNormal returns the unit normal of the plane through p0, p1 and p2,
// oriented as (p1-p0) × (p2-p0).
func PlaneNormal(p0, p1, p2 Vec) (Vec, error) {
	n, err := Normalize(p1.Sub(p0).Cross(p2.Sub(p0)))
	if err != nil {
		return Vec{}, fmt.Errorf("plane normal: %w", err)
	}
	return n, nil
}

// ProjectOnPlane removes from v its component along the plane normal n.
// n must be unit length.
func ProjectOnPlane(v, n Vec) Vec {
	return v.Sub(n.Mul(v.Dot(n)))
}

// Mean returns the centroid of points. An empty slice yields the zero vector.
func Mean(points []Vec) Vec {
	if len(points) == 0 {
		return Vec{}
	}
	var sum Vec
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

// Remap linearly maps v from [fromLow, fromHigh] onto [toLow, toHigh],
// clamping to the target range.
func Remap(v, fromLow, fromHigh, toLow, toHigh float64) float64 {
	if fromHigh == fromLow {
		return toLow
	}
	t := (v - fromLow) / (fromHigh - fromLow)
	t = Clamp(t, 0, 1)
	return toLow + t*(toHigh-toLow)
}

// Clamp restricts v to [low, high].
func Clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
