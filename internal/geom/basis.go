package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// DefaultBasisEpsilon is the tolerance used by NewBasis.
const DefaultBasisEpsilon = 1e-6

// unitTolerance bounds how far an axis length may drift from one.
const unitTolerance = 1e-4

// Basis is an orthonormal frame. The zero value is not valid; build one with
// NewBasis. A Basis is a value: every operation returns a new one.
type Basis struct {
	x, y, z    Vec
	leftHanded bool
	eps        float64
}

// Canonical is the identity frame.
var Canonical = Basis{x: V(1, 0, 0), y: V(0, 1, 0), z: V(0, 0, 1), leftHanded: true, eps: DefaultBasisEpsilon}

// NewBasis builds a left-handed basis (x × y = z) and verifies it.
func NewBasis(x, y, z Vec) (Basis, error) {
	return NewBasisWith(x, y, z, true, DefaultBasisEpsilon)
}

// NewBasisWith builds a basis with explicit handedness and tolerance.
// A right-handed basis satisfies x × y = -z.
func NewBasisWith(x, y, z Vec, leftHanded bool, eps float64) (Basis, error) {
	b := Basis{x: x, y: y, z: z, leftHanded: leftHanded, eps: eps}
	if err := b.Verify(); err != nil {
		return Basis{}, err
	}
	return b, nil
}

// MustBasis is NewBasis for package-level tables of known-good frames.
func MustBasis(x, y, z Vec) Basis {
	b, err := NewBasis(x, y, z)
	if err != nil {
		panic(err)
	}
	return b
}

// X returns the x axis.
func (b Basis) X() Vec { return b.x }

// Y returns the y axis.
func (b Basis) Y() Vec { return b.y }

// Z returns the z axis.
func (b Basis) Z() Vec { return b.z }

// LeftHanded reports whether x × y = z.
func (b Basis) LeftHanded() bool { return b.leftHanded }

// Axes returns x, y and z.
func (b Basis) Axes() [3]Vec { return [3]Vec{b.x, b.y, b.z} }

// Verify checks that the axes are finite, unit length and that x × y
// points along z (or -z for a right-handed basis).
func (b Basis) Verify() error {
	for i, a := range b.Axes() {
		if !Finite(a) {
			return fmt.Errorf("%w: axis %d is not finite", ErrInvalidBasis, i)
		}
		if math.Abs(a.Norm()-1) > unitTolerance {
			return fmt.Errorf("%w: axis %d has length %g", ErrInvalidBasis, i, a.Norm())
		}
	}
	want := b.z
	if !b.leftHanded {
		want = want.Mul(-1)
	}
	c := b.x.Cross(b.y)
	if math.Abs(c.Norm()-1) > unitTolerance {
		return fmt.Errorf("%w: x and y are not orthogonal", ErrInvalidBasis)
	}
	if !sameDirection(c, want, b.eps) {
		return fmt.Errorf("%w: x × y = %v, want %v", ErrInvalidBasis, c, want)
	}
	return nil
}

func sameDirection(a, b Vec, eps float64) bool {
	na, nb := a.Norm(), b.Norm()
	if na < Epsilon || nb < Epsilon {
		return false
	}
	return 1-a.Dot(b)/(na*nb) < eps
}

// RotateByQuaternion rotates every axis by q.
func (b Basis) RotateByQuaternion(q quat.Number) (Basis, error) {
	return NewBasisWith(Rotate(q, b.x), Rotate(q, b.y), Rotate(q, b.z), b.leftHanded, b.eps)
}

// NegateAxes flips the named axes. Flipping an odd number of axes flips
// the handedness of the result.
func (b Basis) NegateAxes(axis Axis) (Basis, error) {
	if err := checkAxis(axis); err != nil {
		return Basis{}, err
	}
	x, y, z := b.x, b.y, b.z
	flips := 0
	if axis&AxisX != 0 {
		x = x.Mul(-1)
		flips++
	}
	if axis&AxisY != 0 {
		y = y.Mul(-1)
		flips++
	}
	if axis&AxisZ != 0 {
		z = z.Mul(-1)
		flips++
	}
	return NewBasisWith(x, y, z, b.leftHanded != (flips%2 == 1), b.eps)
}

// Transpose reorders the axes: the new axis i is the old axis order[i].
// An odd permutation flips the handedness of the result.
func (b Basis) Transpose(order [3]int) (Basis, error) {
	seen := [3]bool{}
	for _, i := range order {
		if i < 0 || i > 2 || seen[i] {
			return Basis{}, fmt.Errorf("%w: %v", ErrInvalidOrder, order)
		}
		seen[i] = true
	}
	axes := b.Axes()
	inversions := 0
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if order[i] > order[j] {
				inversions++
			}
		}
	}
	return NewBasisWith(axes[order[0]], axes[order[1]], axes[order[2]], b.leftHanded != (inversions%2 == 1), b.eps)
}

// QuatFromBasis returns the rotation taking the canonical axes onto b.
// For a right-handed basis the third column is taken as x × y.
func QuatFromBasis(b Basis) quat.Number {
	x, y := b.x, b.y
	z := x.Cross(y)
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var q quat.Number
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := 0.5 / math.Sqrt(tr+1)
		q = quat.Number{Real: 0.25 / s, Imag: (m21 - m12) * s, Jmag: (m02 - m20) * s, Kmag: (m10 - m01) * s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return Normalized(q)
}

// QuaternionBetweenBases returns the rotation that maps b1 onto b2.
func QuaternionBetweenBases(b1, b2 Basis) quat.Number {
	return Normalized(quat.Mul(QuatFromBasis(b2), Inverse(QuatFromBasis(b1))))
}

// QuaternionBetweenBasesAfter undoes prev from both bases before measuring
// the rotation between them. It turns a world-space change of a bone whose
// ancestors have rotated by prev into a parent-local rotation.
func QuaternionBetweenBasesAfter(b1, b2 Basis, prev quat.Number) (quat.Number, error) {
	inv := Inverse(prev)
	l1, err := b1.RotateByQuaternion(inv)
	if err != nil {
		return Identity(), err
	}
	l2, err := b2.RotateByQuaternion(inv)
	if err != nil {
		return Identity(), err
	}
	return QuaternionBetweenBases(l1, l2), nil
}

// GetBasis derives a left-handed basis from three points: p0 is the origin,
// p1 fixes +x and p2 lies in the xy half-plane with positive y.
func GetBasis(p0, p1, p2 Vec) (Basis, error) {
	x, err := Normalize(p1.Sub(p0))
	if err != nil {
		return Basis{}, fmt.Errorf("get basis x: %w", err)
	}
	v2 := p2.Sub(p0)
	z, err := Normalize(x.Cross(v2))
	if err != nil {
		return Basis{}, fmt.Errorf("get basis z: %w", err)
	}
	y, err := Normalize(v2.Sub(x.Mul(v2.Dot(x))))
	if err != nil {
		return Basis{}, fmt.Errorf("get basis y: %w", err)
	}
	return NewBasis(x, y, z)
}

func (b Basis) String() string {
	return fmt.Sprintf("Basis{x:%v y:%v z:%v}", b.x, b.y, b.z)
}
