package retarget

import (
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/geom"
	"github.com/ayusman/mimic/internal/landmark"
	"github.com/ayusman/mimic/internal/skeleton"
)

// Workspace holds the per-session landmark buffers. They are allocated
// once and refilled every frame. A Workspace belongs to one engine and
// must not be shared.
type Workspace struct {
	Pose      []landmark.Filtered
	Face      []landmark.Filtered
	LeftHand  []landmark.Filtered
	RightHand []landmark.Filtered

	regions *landmark.Regions
	keys    *landmark.FaceKeyPoints

	// Which lists the current frame carried.
	hasPose, hasFace  bool
	hasLeft, hasRight bool

	ancestors []int
}

// NewWorkspace allocates the landmark sets for cfg.
func NewWorkspace(cfg Config) (*Workspace, error) {
	w := &Workspace{regions: landmark.NewRegions(), ancestors: make([]int, 0, 16)}
	var err error
	if w.Pose, err = landmark.NewSet(detector.NumPoseLandmarks, cfg.PoseFilter, cfg.VisibilityThreshold); err != nil {
		return nil, err
	}
	if w.Face, err = landmark.NewSet(detector.NumFaceLandmarks, cfg.FaceFilter, cfg.VisibilityThreshold); err != nil {
		return nil, err
	}
	if w.LeftHand, err = landmark.NewSet(detector.NumHandLandmarks, cfg.HandFilter, cfg.VisibilityThreshold); err != nil {
		return nil, err
	}
	if w.RightHand, err = landmark.NewSet(detector.NumHandLandmarks, cfg.HandFilter, cfg.VisibilityThreshold); err != nil {
		return nil, err
	}
	if w.keys, err = landmark.NewFaceKeyPoints(w.Face); err != nil {
		return nil, err
	}
	return w, nil
}

// mirror flips the detector's y-down image convention to y up.
func mirror(l detector.Landmark) geom.Vec {
	return geom.V(l.X, -l.Y, l.Z)
}

// preprocess feeds one frame into the filtered sets. Body rotations use
// the world-space pose; a pose landmark without world visibility falls
// back to the normalized one.
func (w *Workspace) preprocess(r *detector.Results) {
	w.hasPose = r.HasPose()
	if w.hasPose {
		for i := range w.Pose {
			vis := r.PoseWorld[i].Visibility
			if vis == nil {
				vis = r.Pose[i].Visibility
			}
			w.Pose[i].UpdatePosition(mirror(r.PoseWorld[i]), vis)
		}
	}

	w.hasFace = len(r.Face) == detector.NumFaceLandmarks
	if w.hasFace {
		for i := range w.Face {
			w.Face[i].UpdatePosition(mirror(r.Face[i]), nil)
		}
		w.regions.Extract(w.Face)
	}

	w.hasLeft = feedHand(w.LeftHand, r.LeftHand, r.Pose, detector.LeftWrist)
	w.hasRight = feedHand(w.RightHand, r.RightHand, r.Pose, detector.RightWrist)
}

// feedHand re-anchors a hand on the pose wrist and filters it. A missing
// hand, or one collapsed onto a single point, is skipped and keeps its
// previous state.
func feedHand(set []landmark.Filtered, hand, pose []detector.Landmark, wrist int) bool {
	if len(hand) != len(set) || collapsed(hand) {
		return false
	}
	var offset geom.Vec
	if wrist < len(pose) {
		offset = mirror(pose[wrist]).Sub(mirror(hand[detector.Wrist]))
	}
	for i := range set {
		set[i].UpdatePosition(mirror(hand[i]).Add(offset), nil)
	}
	return true
}

func collapsed(hand []detector.Landmark) bool {
	origin := mirror(hand[0])
	for _, l := range hand[1:] {
		if mirror(l).Sub(origin).Norm() > geom.Epsilon {
			return false
		}
	}
	return true
}

// hand returns the set of side and whether the current frame carried it.
func (w *Workspace) hand(side skeleton.Side) ([]landmark.Filtered, bool) {
	if side == skeleton.Left {
		return w.LeftHand, w.hasLeft
	}
	return w.RightHand, w.hasRight
}

// fresh reports whether the frame carried a pose and every listed pose
// landmark passed the visibility gate.
func (w *Workspace) fresh(idx ...int) bool {
	return w.hasPose && landmark.AllFresh(w.Pose, idx...)
}

func (w *Workspace) pose(i int) geom.Vec { return w.Pose[i].Pos() }
