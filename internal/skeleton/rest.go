package skeleton

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/ayusman/mimic/internal/geom"
)

// Rest frames of a T-pose avatar facing -Z with its left hand at +X and Y
// up. Each frame's x axis runs along the bone. Non-thumb finger frames
// share the hand frame, whose y axis is the curl axis; the thumb frame's
// y axis is its flexion axis.
var (
	half = math.Sqrt(0.5)

	armLeft    = geom.MustBasis(geom.V(1, 0, 0), geom.V(0, 1, 0), geom.V(0, 0, 1))
	armRight   = geom.MustBasis(geom.V(-1, 0, 0), geom.V(0, 1, 0), geom.V(0, 0, -1))
	handLeft   = geom.MustBasis(geom.V(1, 0, 0), geom.V(0, 0, -1), geom.V(0, 1, 0))
	handRight  = geom.MustBasis(geom.V(-1, 0, 0), geom.V(0, 0, 1), geom.V(0, 1, 0))
	thumbLeft  = geom.MustBasis(geom.V(half, 0, -half), geom.V(0, -1, 0), geom.V(-half, 0, -half))
	thumbRight = geom.MustBasis(geom.V(-half, 0, -half), geom.V(0, 1, 0), geom.V(half, 0, -half))
	legLeft    = geom.MustBasis(geom.V(0, -1, 0), geom.V(1, 0, 0), geom.V(0, 0, 1))
	legRight   = geom.MustBasis(geom.V(0, -1, 0), geom.V(-1, 0, 0), geom.V(0, 0, -1))
	foot       = geom.MustBasis(geom.V(0, 0, -1), geom.V(0, 1, 0), geom.V(1, 0, 0))
)

// RestBasis returns the rest frame of id. Bones without a dedicated frame
// use the canonical one.
func RestBasis(id BoneID) geom.Basis {
	left := id.Side == Left
	pick := func(l, r geom.Basis) geom.Basis {
		if left {
			return l
		}
		return r
	}
	switch k := id.Kind; {
	case k == UpperArm || k == LowerArm:
		return pick(armLeft, armRight)
	case k.Thumb():
		return pick(thumbLeft, thumbRight)
	case k == Hand || k.Finger():
		return pick(handLeft, handRight)
	case k == UpperLeg || k == LowerLeg:
		return pick(legLeft, legRight)
	case k == Foot:
		return foot
	}
	return geom.Canonical
}

// Convention converts between the rotations the solver computes and the
// ones the renderer expects. The mapping is its own inverse.
type Convention struct {
	axis geom.Axis
}

var (
	// MirrorY reverses the yaw.
	MirrorY = Convention{axis: geom.AxisY}
	// MirrorYZ reverses yaw and roll, mirroring the rotation across the
	// YZ plane.
	MirrorYZ = Convention{axis: geom.AxisYZ}
)

// ConventionOf returns the convention of id: hips and spine reverse only
// the yaw, every other bone is mirrored.
func ConventionOf(id BoneID) Convention {
	if id.Side == Center && (id.Kind == Hips || id.Kind == Spine) {
		return MirrorY
	}
	return MirrorYZ
}

// Apply converts q between solver and renderer form.
func (c Convention) Apply(q quat.Number) (quat.Number, error) {
	return geom.ReverseRotation(q, c.axis)
}

func (c Convention) String() string { return "mirror" + c.axis.String() }
