package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Quaternions are gonum numbers with Real as w and Imag, Jmag, Kmag as
// x, y, z. All rotation helpers assume unit quaternions.

// Identity returns the identity rotation.
func Identity() quat.Number {
	return quat.Number{Real: 1}
}

// Q builds a quaternion from x, y, z, w components.
func Q(x, y, z, w float64) quat.Number {
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// QuatFromAxisAngle returns the rotation of angle radians about axis.
// A zero axis yields the identity.
func QuatFromAxisAngle(axis Vec, angle float64) quat.Number {
	n := axis.Norm()
	if n < Epsilon {
		return Identity()
	}
	s := math.Sin(angle/2) / n
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

// Rotate applies q to v.
func Rotate(q quat.Number, v Vec) Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Inverse returns the inverse rotation of a unit quaternion.
func Inverse(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// Normalized returns q scaled to unit length. A zero quaternion yields the
// identity.
func Normalized(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < Epsilon {
		return Identity()
	}
	return quat.Scale(1/n, q)
}

// FiniteQuat reports whether every component of q is finite.
func FiniteQuat(q quat.Number) bool {
	return !quat.IsNaN(q) && !quat.IsInf(q)
}

// QuatBetweenVectors returns the shortest rotation taking the direction of
// from onto the direction of to.
func QuatBetweenVectors(from, to Vec) (quat.Number, error) {
	a, err := Normalize(from)
	if err != nil {
		return Identity(), err
	}
	b, err := Normalize(to)
	if err != nil {
		return Identity(), err
	}
	d := a.Dot(b)
	switch {
	case d >= 1-1e-12:
		return Identity(), nil
	case d <= -1+1e-12:
		// Opposite directions: half turn about any perpendicular axis.
		return QuatFromAxisAngle(a.Ortho(), math.Pi), nil
	}
	c := a.Cross(b)
	return Normalized(quat.Number{Real: 1 + d, Imag: c.X, Jmag: c.Y, Kmag: c.Z}), nil
}

// Slerp interpolates between a and b along the shortest arc.
func Slerp(a, b quat.Number, t float64) quat.Number {
	cos := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if cos < 0 {
		b = quat.Scale(-1, b)
		cos = -cos
	}
	if cos > 1-1e-9 {
		return Normalized(quat.Add(quat.Scale(1-t, a), quat.Scale(t, b)))
	}
	theta := math.Acos(cos)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return quat.Add(quat.Scale(wa, a), quat.Scale(wb, b))
}

// Scale returns the fraction f of the rotation q, measured from identity.
func Scale(q quat.Number, f float64) quat.Number {
	return Slerp(Identity(), q, f)
}

// Angle returns the rotation angle of q in radians, in [0, π].
func Angle(q quat.Number) float64 {
	w := math.Abs(Normalized(q).Real)
	return 2 * math.Acos(math.Min(w, 1))
}

// EqualByRotation reports whether a and b rotate the three unit axes to
// the same place within eps. It treats q and -q as equal.
func EqualByRotation(a, b quat.Number, eps float64) bool {
	for _, v := range [...]Vec{V(1, 0, 0), V(0, 1, 0), V(0, 0, 1)} {
		if Rotate(a, v).Sub(Rotate(b, v)).Norm() > eps {
			return false
		}
	}
	return true
}
