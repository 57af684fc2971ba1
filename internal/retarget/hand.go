package retarget

import (
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/geom"
	"github.com/ayusman/mimic/internal/skeleton"
)

// Finger joint limits in degrees. Fingers curl about Z and thumbs flex
// about Y; proximal joints also keep a little sideways travel.
var (
	curlCap = map[skeleton.Side]geom.AxisCap{
		skeleton.Left:  {Axis: geom.AxisZ, Low: -110, High: 15},
		skeleton.Right: {Axis: geom.AxisZ, Low: -15, High: 110},
	}
	flexCap = map[skeleton.Side]geom.AxisCap{
		skeleton.Left:  {Axis: geom.AxisY, Low: -90, High: 15},
		skeleton.Right: {Axis: geom.AxisY, Low: -15, High: 90},
	}
	fingerSpreadCap = geom.AxisCap{Axis: geom.AxisY, Low: -15, High: 15}
	thumbSpreadCap  = geom.AxisCap{Axis: geom.AxisZ, Low: -15, High: 15}
)

func fingerCaps(b skeleton.BoneID) []geom.AxisCap {
	if b.Kind.Thumb() {
		if b.Kind.Joint() == 0 {
			return []geom.AxisCap{flexCap[b.Side], thumbSpreadCap}
		}
		return []geom.AxisCap{flexCap[b.Side]}
	}
	if b.Kind.Joint() == 0 {
		return []geom.AxisCap{curlCap[b.Side], fingerSpreadCap}
	}
	return []geom.AxisCap{curlCap[b.Side]}
}

func (e *Engine) solveHand(side skeleton.Side) error {
	set, _ := e.ws.hand(side)
	pos := func(i int) geom.Vec { return set[i].Pos() }

	if id, ok := e.arena.IDOf(skeleton.B(side, skeleton.Hand)); ok {
		third := detector.IndexMCP
		if side == skeleton.Right {
			third = detector.PinkyMCP
		}
		palm, err := geom.GetBasis(pos(detector.Wrist), pos(detector.MiddleMCP), pos(third))
		if err != nil {
			return err
		}
		chain, err := e.chain(id)
		if err != nil {
			return err
		}
		cur, err := e.arena.Rest(id).RotateByQuaternion(chain)
		if err != nil {
			return err
		}
		local, err := geom.QuaternionBetweenBasesAfter(cur, palm, chain)
		if err != nil {
			return err
		}
		if err := e.set(id, local); err != nil {
			return err
		}
	}

	for finger := 0; finger < 5; finger++ {
		base := 1 + 4*finger
		for j := 0; j < 3; j++ {
			bone, _ := skeleton.FingerBone(side, base+j)
			id, ok := e.arena.IDOf(bone)
			if !ok {
				continue
			}
			if err := e.solveFinger(id, bone, j, pos(base+j+1).Sub(pos(base+j))); err != nil {
				return err
			}
		}
	}
	return nil
}

// solveFinger aims one finger segment. The outer segments only bend about
// the curl axis, so their direction is first flattened onto the curl
// plane.
func (e *Engine) solveFinger(id int, bone skeleton.BoneID, joint int, dir geom.Vec) error {
	chain, err := e.chain(id)
	if err != nil {
		return err
	}
	rest := e.arena.Rest(id)
	if joint > 0 {
		cur, err := rest.RotateByQuaternion(chain)
		if err != nil {
			return err
		}
		dir = geom.ProjectOnPlane(dir, cur.Y())
	}
	local, ok, err := aim(chain, rest, dir, true)
	if err != nil || !ok {
		return err
	}
	local, err = geom.RemoveRotationAxisWithCap(local, fingerCaps(bone)...)
	if err != nil {
		return err
	}
	return e.set(id, local)
}
