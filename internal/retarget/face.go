package retarget

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mimic/internal/geom"
	"github.com/ayusman/mimic/internal/landmark"
	"github.com/ayusman/mimic/internal/skeleton"
)

// Iris offsets, as a fraction of the eye width, and the eye rotation they
// map to in degrees.
const (
	irisRangeX  = 0.12
	irisRangeY  = 0.06
	eyeMaxYaw   = 25
	eyeMaxPitch = 15
)

// Mouth gap over mouth width that maps to fully closed and fully open.
const (
	mouthClosed = 0.02
	mouthOpen   = 0.5
)

func (e *Engine) solveFace() error {
	fb, err := faceBasis(e.ws.keys)
	if err != nil {
		return err
	}
	wLeft := leftWeight(fb)
	if err := e.solveIris(fb, wLeft); err != nil {
		return err
	}
	if err := e.solveHead(fb); err != nil {
		return err
	}
	e.solveExpressions(wLeft)
	return nil
}

// faceBasis builds the head frame from the face oval: x runs from the
// right cheek to the left, y from chin to forehead.
func faceBasis(k *landmark.FaceKeyPoints) (geom.Basis, error) {
	x, err := geom.Normalize(k.FaceLeft.Pos().Sub(k.FaceRight.Pos()))
	if err != nil {
		return geom.Basis{}, err
	}
	up := k.FaceTop.Pos().Sub(k.FaceBottom.Pos())
	z, err := geom.Normalize(x.Cross(up))
	if err != nil {
		return geom.Basis{}, err
	}
	return geom.NewBasis(x, z.Cross(x), z)
}

// leftWeight is the share of the left eye in linked values. It shrinks as
// the head turns the left eye away from the camera.
func leftWeight(fb geom.Basis) float64 {
	yaw := math.Atan2(fb.Z().X, fb.Z().Z)
	return geom.Clamp(0.5+yaw/math.Pi, 0, 1)
}

// solveHead gives the same scaled rotation to the head and the neck.
func (e *Engine) solveHead(fb geom.Basis) error {
	head, _ := e.arena.IDOf(skeleton.C(skeleton.Head))
	neck, _ := e.arena.IDOf(skeleton.C(skeleton.Neck))
	owner := neck
	if e.arena.Synthetic(neck) {
		owner = head
	}
	chain, err := e.chain(owner)
	if err != nil {
		return err
	}
	cur, err := e.arena.Rest(owner).RotateByQuaternion(chain)
	if err != nil {
		return err
	}
	local, err := geom.QuaternionBetweenBasesAfter(cur, fb, chain)
	if err != nil {
		return err
	}
	local = geom.Scale(local, e.cfg.HeadNeckRatio)
	if err := e.set(neck, local); err != nil {
		return err
	}
	return e.set(head, local)
}

// eyeOffset measures the iris center against the eye center in face axes,
// in eye widths.
func (e *Engine) eyeOffset(fb geom.Basis, iris landmark.Region, inner, outer *landmark.Filtered) (x, y float64, ok bool) {
	width := outer.Pos().Sub(inner.Pos()).Norm()
	if width < geom.Epsilon {
		return 0, 0, false
	}
	center := inner.Pos().Add(outer.Pos()).Mul(0.5)
	d := e.ws.regions.Center(iris).Sub(center)
	return d.Dot(fb.X()) / width, d.Dot(fb.Y()) / width, true
}

// eyeGaze is the iris offset of one eye, in eye widths.
type eyeGaze struct {
	x, y float64
	ok   bool
}

// angles maps the offset to pitch and yaw in degrees.
func (g eyeGaze) angles() geom.Vec {
	return geom.V(
		geom.Remap(g.y, -irisRangeY, irisRangeY, -eyeMaxPitch, eyeMaxPitch),
		-geom.Remap(g.x, -irisRangeX, irisRangeX, -eyeMaxYaw, eyeMaxYaw),
		0,
	)
}

// solveIris turns each eye toward its iris. Linked eyes share one gaze,
// weighted toward the eye facing the camera. Each gaze is held until it
// moves by more than the jitter threshold; an eye without a measurement
// keeps its previous rotation.
func (e *Engine) solveIris(fb geom.Basis, wLeft float64) error {
	k := e.ws.keys
	var eyes [2]eyeGaze
	eyes[0].x, eyes[0].y, eyes[0].ok = e.eyeOffset(fb, landmark.LeftIris, k.LeftEyeInner, k.LeftEyeOuter)
	eyes[1].x, eyes[1].y, eyes[1].ok = e.eyeOffset(fb, landmark.RightIris, k.RightEyeInner, k.RightEyeOuter)

	if e.cfg.LinkEyes {
		switch {
		case !eyes[0].ok && !eyes[1].ok:
			return nil
		case !eyes[0].ok:
			wLeft = 0
		case !eyes[1].ok:
			wLeft = 1
		}
		linked := eyeGaze{
			x:  wLeft*eyes[0].x + (1-wLeft)*eyes[1].x,
			y:  wLeft*eyes[0].y + (1-wLeft)*eyes[1].y,
			ok: true,
		}
		eyes = [2]eyeGaze{linked, linked}
	}

	for i, side := range sides {
		if !eyes[i].ok {
			continue
		}
		gaze := e.iris[i].Peek(eyes[i].angles())
		e.gaze[i], e.gazeSet[i] = gaze, true

		b := skeleton.B(side, skeleton.Eye)
		stored, err := skeleton.ConventionOf(b).Apply(geom.FromEulerDegrees(gaze))
		if err != nil {
			return err
		}
		if side == skeleton.Left {
			e.nextFace.leftEye = stored
		} else {
			e.nextFace.rightEye = stored
		}
		if id, ok := e.arena.IDOf(b); ok {
			if err := e.arena.Set(id, stored); err != nil {
				return err
			}
		}
	}
	return nil
}

// openness is the vertical eye opening over the eye width.
func openness(top, bottom, inner, outer *landmark.Filtered) (open, width float64, ok bool) {
	width = outer.Pos().Sub(inner.Pos()).Norm()
	if width < geom.Epsilon {
		return 0, 0, false
	}
	return top.Pos().Sub(bottom.Pos()).Norm() / width, width, true
}

// blink maps an eye opening to a blink weight. The open and closed
// thresholds depend on the eye width, so a distant face blinks as readily
// as a close one.
func (e *Engine) blink(open, width float64) float64 {
	low, high := e.blinkLow.at(width), e.blinkHigh.at(width)
	return 1 - geom.Clamp((open-low)/(high-low), 0, 1)
}

func (e *Engine) solveExpressions(wLeft float64) {
	k := e.ws.keys
	expr := &e.nextFace.expr

	lo, lw, lok := openness(k.LeftEyeTop, k.LeftEyeBottom, k.LeftEyeInner, k.LeftEyeOuter)
	ro, rw, rok := openness(k.RightEyeTop, k.RightEyeBottom, k.RightEyeInner, k.RightEyeOuter)
	if lok {
		expr.BlinkLeft = e.blink(lo, lw)
	}
	if rok {
		expr.BlinkRight = e.blink(ro, rw)
	}
	expr.BlinkAll = wLeft*expr.BlinkLeft + (1-wLeft)*expr.BlinkRight

	width := k.MouthLeft.Pos().Sub(k.MouthRight.Pos()).Norm()
	if width < geom.Epsilon {
		return
	}
	pairs := [3][2]*landmark.Filtered{
		{k.MouthTop, k.MouthBottom},
		{k.MouthTopLeft, k.MouthBottomLeft},
		{k.MouthTopRight, k.MouthBottomRight},
	}
	var gaps [3]float64
	for i, p := range pairs {
		gap := p[0].Pos().Sub(p[1].Pos()).Norm() / width
		gaps[i] = geom.Remap(gap, mouthClosed, mouthOpen, 0, 1)
	}
	expr.MouthOpen = floats.Sum(gaps[:]) / float64(len(gaps))
}
