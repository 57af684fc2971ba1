package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// fingerWrapThreshold is where a finger direction is treated as having
// curled past the pole.
const fingerWrapThreshold = -math.Pi / 6

// CalcSphericalCoord expresses the direction pos in spherical coordinates
// local to b. theta is the turn about b.y away from b.x (positive toward
// -z), phi the elevation toward b.y.
//
// For fingers, theta below -π/6 is remapped to π/2 - theta. The mapping is
// asymmetric on purpose and only meaningful for finger and limb bases.
func CalcSphericalCoord(pos Vec, b Basis, isFinger bool) (theta, phi float64, err error) {
	d, err := Normalize(pos)
	if err != nil {
		return 0, 0, fmt.Errorf("spherical coordinates: %w", err)
	}
	z := b.x.Cross(b.y)
	lx, ly, lz := d.Dot(b.x), d.Dot(b.y), d.Dot(z)
	theta = math.Atan2(-lz, lx)
	phi = math.Atan2(ly, math.Hypot(lx, lz))
	if isFinger && theta < fingerWrapThreshold {
		theta = math.Pi/2 - theta
	}
	return theta, phi, nil
}

// SphericalToQuaternion returns the rotation that takes b.x to the
// direction (theta, phi) local to b. The roll about the new direction is
// fixed by keeping the new z axis perpendicular to b.y.
func SphericalToQuaternion(b Basis, theta, phi float64) (quat.Number, error) {
	yaw := QuatFromAxisAngle(b.y, theta)
	pivot := Rotate(yaw, b.x.Cross(b.y))
	q0 := Normalized(quat.Mul(QuatFromAxisAngle(pivot, phi), yaw))

	newX, err := Normalize(Rotate(q0, b.x))
	if err != nil {
		return Identity(), fmt.Errorf("spherical to quaternion: %w", err)
	}
	newZ, err := Normalize(newX.Cross(b.y))
	if err != nil {
		// Pointing straight along b.y: the yaw is undefined and q0 stands.
		return q0, nil
	}
	newY := newZ.Cross(newX)
	target, err := NewBasis(newX, newY, newZ)
	if err != nil {
		return Identity(), fmt.Errorf("spherical to quaternion: %w", err)
	}
	return Normalized(quat.Mul(QuatFromBasis(target), Inverse(QuatFromBasis(b)))), nil
}
