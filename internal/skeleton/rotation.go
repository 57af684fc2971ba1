package skeleton

import (
	"gonum.org/v1/gonum/num/quat"

	"github.com/ayusman/mimic/internal/geom"
)

// Rotation is a bone's local rotation paired with the rest frame it is
// relative to.
type Rotation struct {
	Q    quat.Number
	Base geom.Basis
}

// Quat is the wire form of a rotation.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// QuatOf converts a gonum quaternion.
func QuatOf(q quat.Number) Quat {
	return Quat{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}

// Number converts back to a gonum quaternion.
func (q Quat) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// RotationMap is a snapshot of every bone's local rotation, by name.
type RotationMap map[string]Quat
