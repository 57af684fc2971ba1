// Package retarget turns detected landmarks into parent-local bone
// rotations for a humanoid skeleton.
package retarget

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/filter"
	"github.com/ayusman/mimic/internal/geom"
	"github.com/ayusman/mimic/internal/log"
	"github.com/ayusman/mimic/internal/skeleton"
)

// ErrNotBound is returned by Process before a skeleton has been bound.
var ErrNotBound = errors.New("retarget: no skeleton bound")

// Expressions are the facial morph weights of a frame, each in [0, 1].
type Expressions struct {
	MouthOpen  float64 `json:"mouth_open"`
	BlinkLeft  float64 `json:"blink_left"`
	BlinkRight float64 `json:"blink_right"`
	BlinkAll   float64 `json:"blink_all"`
}

// Frame is the output of one Process call.
type Frame struct {
	Seq         uint64               `json:"seq"`
	Rotations   skeleton.RotationMap `json:"rotations"`
	Expressions Expressions          `json:"expressions"`
	LeftEye     skeleton.Quat        `json:"left_eye"`
	RightEye    skeleton.Quat        `json:"right_eye"`
}

// faceState is everything the face stages produce besides bone rotations.
type faceState struct {
	expr              Expressions
	leftEye, rightEye quat.Number
}

// Engine is the retargeting state machine. Process must not be called
// concurrently; an Engine is meant to be driven by a single goroutine.
type Engine struct {
	cfg   Config
	ws    *Workspace
	arena *skeleton.Arena
	seq   uint64

	face, nextFace faceState

	blinkLow, blinkHigh *curve

	// iris holds the gaze of each eye, indexed like sides. gaze is the
	// pending value, written back once the frame commits.
	iris    [2]*filter.HighPass
	gaze    [2]geom.Vec
	gazeSet [2]bool
}

// New builds an engine. A skeleton must be bound before Process.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ws, err := NewWorkspace(cfg)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:       cfg,
		ws:        ws,
		blinkLow:  newCurve(blinkWidths, blinkLow),
		blinkHigh: newCurve(blinkWidths, blinkHigh),
	}
	for i := range e.iris {
		e.iris[i] = filter.NewHighPass(cfg.IrisJitterThreshold)
	}
	e.face = faceState{leftEye: geom.Identity(), rightEye: geom.Identity()}
	return e, nil
}

// Bind sets the skeleton hierarchy. Binding again is a no-op; use Rebind
// to switch skeletons.
func (e *Engine) Bind(root *skeleton.Node) error {
	if e.arena != nil {
		return nil
	}
	return e.Rebind(root)
}

// Rebind replaces the bound skeleton. Every bone starts from identity; the
// landmark filters keep their state.
func (e *Engine) Rebind(root *skeleton.Node) error {
	arena, err := skeleton.NewArena(root)
	if err != nil {
		return fmt.Errorf("bind skeleton: %w", err)
	}
	e.arena = arena
	log.Debug("skeleton bound", "bones", arena.Len())
	return nil
}

// Bound reports whether a skeleton has been bound.
func (e *Engine) Bound() bool { return e.arena != nil }

// Rotations returns the committed rotations, or nil before Bind.
func (e *Engine) Rotations() skeleton.RotationMap {
	if e.arena == nil {
		return nil
	}
	return e.arena.Snapshot()
}

// Process runs one frame through the pipeline. On error the rotations of
// the previous frame are kept and no Frame is returned.
func (e *Engine) Process(r *detector.Results) (*Frame, error) {
	if e.arena == nil {
		return nil, ErrNotBound
	}
	if r == nil {
		return nil, fmt.Errorf("%w: nil results", detector.ErrMalformedResults)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	e.ws.preprocess(r)
	e.arena.Begin()
	e.nextFace = e.face
	e.gazeSet = [2]bool{}

	if e.ws.hasFace {
		if err := e.solveFace(); err != nil {
			return nil, fmt.Errorf("face: %w", err)
		}
	}
	if e.ws.hasPose {
		if err := e.solvePose(); err != nil {
			return nil, fmt.Errorf("pose: %w", err)
		}
	}
	for _, side := range sides {
		if _, ok := e.ws.hand(side); !ok {
			continue
		}
		if err := e.solveHand(side); err != nil {
			return nil, fmt.Errorf("%s hand: %w", side, err)
		}
	}

	e.arena.Commit()
	e.face = e.nextFace
	for i, h := range e.iris {
		if e.gazeSet[i] {
			h.Reset(e.gaze[i])
		}
	}
	e.seq++
	return &Frame{
		Seq:         e.seq,
		Rotations:   e.arena.Snapshot(),
		Expressions: e.face.expr,
		LeftEye:     skeleton.QuatOf(e.face.leftEye),
		RightEye:    skeleton.QuatOf(e.face.rightEye),
	}, nil
}

var sides = [...]skeleton.Side{skeleton.Left, skeleton.Right}

// chain composes the solver rotations of every ancestor of id, root first,
// from the pending frame.
func (e *Engine) chain(id int) (quat.Number, error) {
	e.ws.ancestors = e.arena.Ancestors(id, e.ws.ancestors[:0])
	q := geom.Identity()
	for _, a := range e.ws.ancestors {
		local, err := e.arena.Convention(a).Apply(e.arena.Pending(a))
		if err != nil {
			return geom.Identity(), err
		}
		q = quat.Mul(q, local)
	}
	return geom.Normalized(q), nil
}

// set stores a solver rotation for id in the pending frame.
func (e *Engine) set(id int, local quat.Number) error {
	stored, err := e.arena.Convention(id).Apply(local)
	if err != nil {
		return err
	}
	return e.arena.Set(id, stored)
}

// previous returns the committed solver rotation of id.
func (e *Engine) previous(id int) (quat.Number, error) {
	return e.arena.Convention(id).Apply(e.arena.Rotation(id).Q)
}

// aim returns the local rotation that turns frame, after the ancestor
// rotation chain, so that its x axis points along dir. ok is false when
// dir has no length; the caller keeps the previous rotation.
func aim(chain quat.Number, frame geom.Basis, dir geom.Vec, finger bool) (q quat.Number, ok bool, err error) {
	if dir.Norm() < geom.Epsilon {
		return geom.Identity(), false, nil
	}
	cur, err := frame.RotateByQuaternion(chain)
	if err != nil {
		return geom.Identity(), false, err
	}
	theta, phi, err := geom.CalcSphericalCoord(dir, cur, finger)
	if err != nil {
		return geom.Identity(), false, err
	}
	delta, err := geom.SphericalToQuaternion(cur, theta, phi)
	if err != nil {
		return geom.Identity(), false, err
	}
	moved, err := cur.RotateByQuaternion(delta)
	if err != nil {
		return geom.Identity(), false, err
	}
	q, err = geom.QuaternionBetweenBasesAfter(cur, moved, chain)
	if err != nil {
		return geom.Identity(), false, err
	}
	return q, true, nil
}
