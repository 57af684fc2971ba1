package retarget

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/geom"
	"github.com/ayusman/mimic/internal/skeleton"
)

// limb lists the pose landmarks of one side.
type limb struct {
	shoulder, elbow, wrist, index, pinky int
	hip, knee, ankle, heel, footIndex    int
}

var limbs = map[skeleton.Side]limb{
	skeleton.Left: {
		shoulder: detector.LeftShoulder, elbow: detector.LeftElbow, wrist: detector.LeftWrist,
		index: detector.LeftIndex, pinky: detector.LeftPinky,
		hip: detector.LeftHip, knee: detector.LeftKnee, ankle: detector.LeftAnkle,
		heel: detector.LeftHeel, footIndex: detector.LeftFootIndex,
	},
	skeleton.Right: {
		shoulder: detector.RightShoulder, elbow: detector.RightElbow, wrist: detector.RightWrist,
		index: detector.RightIndex, pinky: detector.RightPinky,
		hip: detector.RightHip, knee: detector.RightKnee, ankle: detector.RightAnkle,
		heel: detector.RightHeel, footIndex: detector.RightFootIndex,
	},
}

// Rest-pose normals of the hand and foot, the references for limb twist.
var (
	forearmNormal = map[skeleton.Side]geom.Vec{
		skeleton.Left:  geom.V(0, -1, 0),
		skeleton.Right: geom.V(0, 1, 0),
	}
	shinNormal = geom.V(-1, 0, 0)
)

func (e *Engine) solvePose() error {
	ws := e.ws
	if ws.fresh(detector.LeftHip, detector.RightHip, detector.LeftShoulder, detector.RightShoulder) {
		if err := e.solveHips(); err != nil {
			return err
		}
		if err := e.solveSpine(); err != nil {
			return err
		}
	}
	for _, side := range sides {
		if err := e.solveArm(side); err != nil {
			return err
		}
		if err := e.solveLeg(side); err != nil {
			return err
		}
	}
	return nil
}

// facing turns a rest frame so its x axis is the torso's back normal.
func facing(rest geom.Basis) (geom.Basis, error) {
	b, err := rest.Transpose([3]int{2, 1, 0})
	if err != nil {
		return geom.Basis{}, err
	}
	return b.NegateAxes(geom.AxisZ)
}

// aimBone points the x axis of frame, a rest-space frame of bone id, along
// dir and writes the result.
func (e *Engine) aimBone(id int, frame geom.Basis, dir geom.Vec) error {
	chain, err := e.chain(id)
	if err != nil {
		return err
	}
	local, ok, err := aim(chain, frame, dir, false)
	if err != nil || !ok {
		return err
	}
	return e.set(id, local)
}

// solveHips orients the hips by the averaged normal of the two
// hip-shoulder triangles.
func (e *Engine) solveHips() error {
	id, ok := e.arena.IDOf(skeleton.C(skeleton.Hips))
	if !ok {
		return nil
	}
	lh, rh := e.ws.pose(detector.LeftHip), e.ws.pose(detector.RightHip)
	ls, rs := e.ws.pose(detector.LeftShoulder), e.ws.pose(detector.RightShoulder)
	n1, err := geom.PlaneNormal(rh, lh, ls)
	if err != nil {
		return err
	}
	n2, err := geom.PlaneNormal(rh, lh, rs)
	if err != nil {
		return err
	}
	frame, err := facing(e.arena.Rest(id))
	if err != nil {
		return err
	}
	return e.aimBone(id, frame, n1.Add(n2))
}

// solveSpine orients the spine by the shoulder line seen from each hip,
// after the hips.
func (e *Engine) solveSpine() error {
	id, ok := e.arena.IDOf(skeleton.C(skeleton.Spine))
	if !ok {
		return nil
	}
	lh, rh := e.ws.pose(detector.LeftHip), e.ws.pose(detector.RightHip)
	ls, rs := e.ws.pose(detector.LeftShoulder), e.ws.pose(detector.RightShoulder)
	n1, err := geom.PlaneNormal(lh, ls, rs)
	if err != nil {
		return err
	}
	n2, err := geom.PlaneNormal(rh, ls, rs)
	if err != nil {
		return err
	}
	frame, err := facing(e.arena.Rest(id))
	if err != nil {
		return err
	}
	return e.aimBone(id, frame, n1.Add(n2).Mul(0.5))
}

func (e *Engine) solveArm(side skeleton.Side) error {
	l := limbs[side]
	if id, ok := e.arena.IDOf(skeleton.B(side, skeleton.UpperArm)); ok && e.ws.fresh(l.shoulder, l.elbow) {
		dir := e.ws.pose(l.elbow).Sub(e.ws.pose(l.shoulder))
		if err := e.aimBone(id, e.arena.Rest(id), dir); err != nil {
			return err
		}
	}
	if id, ok := e.arena.IDOf(skeleton.B(side, skeleton.LowerArm)); ok && e.ws.fresh(l.elbow, l.wrist, l.index, l.pinky) {
		dir := e.ws.pose(l.wrist).Sub(e.ws.pose(l.elbow))
		palm, err := geom.GetBasis(e.ws.pose(l.wrist), e.ws.pose(l.index), e.ws.pose(l.pinky))
		if err != nil {
			return err
		}
		if err := e.aimTwisted(id, dir, forearmNormal[side], palm.Z()); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) solveLeg(side skeleton.Side) error {
	l := limbs[side]
	if id, ok := e.arena.IDOf(skeleton.B(side, skeleton.UpperLeg)); ok && e.ws.fresh(l.hip, l.knee) {
		dir := e.ws.pose(l.knee).Sub(e.ws.pose(l.hip))
		if err := e.aimBone(id, e.arena.Rest(id), dir); err != nil {
			return err
		}
	}
	if id, ok := e.arena.IDOf(skeleton.B(side, skeleton.LowerLeg)); ok && e.ws.fresh(l.knee, l.ankle, l.heel, l.footIndex) {
		dir := e.ws.pose(l.ankle).Sub(e.ws.pose(l.knee))
		sole, err := geom.GetBasis(e.ws.pose(l.ankle), e.ws.pose(l.footIndex), e.ws.pose(l.heel))
		if err != nil {
			return err
		}
		if err := e.aimTwisted(id, dir, shinNormal, sole.Z()); err != nil {
			return err
		}
	}
	if id, ok := e.arena.IDOf(skeleton.B(side, skeleton.Foot)); ok && e.ws.fresh(l.ankle, l.footIndex) {
		dir := e.ws.pose(l.footIndex).Sub(e.ws.pose(l.ankle))
		if err := e.aimBone(id, e.arena.Rest(id), dir); err != nil {
			return err
		}
	}
	return nil
}

// aimTwisted aims a lower limb like aimBone, then turns it about its own
// axis so that restNormal, carried along with the bone, meets the
// measured normal of the hand or foot. The result is blended with the
// previous frame's rotation.
func (e *Engine) aimTwisted(id int, dir, restNormal, measured geom.Vec) error {
	chain, err := e.chain(id)
	if err != nil {
		return err
	}
	local, ok, err := aim(chain, e.arena.Rest(id), dir, false)
	if err != nil || !ok {
		return err
	}
	local = twist(chain, local, e.arena.Rest(id).X(), restNormal, measured)
	prev, err := e.previous(id)
	if err != nil {
		return err
	}
	return e.set(id, geom.Slerp(prev, local, e.cfg.TwistBlend))
}

// twist rotates local about the bone's long axis by the signed angle
// between the expected and the measured child normal.
func twist(chain, local quat.Number, restAxis, restNormal, measured geom.Vec) quat.Number {
	world := quat.Mul(chain, local)
	axis := geom.Rotate(world, restAxis)
	expected := geom.ProjectOnPlane(geom.Rotate(world, restNormal), axis)
	got := geom.ProjectOnPlane(measured, axis)
	if expected.Norm() < geom.Epsilon || got.Norm() < geom.Epsilon {
		return local
	}
	angle := math.Atan2(axis.Dot(expected.Cross(got)), expected.Dot(got))
	turn := geom.QuatFromAxisAngle(axis, angle)
	return geom.Normalized(quat.Mul(geom.Inverse(chain), quat.Mul(turn, quat.Mul(chain, local))))
}
