// Package detector defines the landmark data produced by the holistic
// pose estimator and the detectors that produce it.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Pose landmark indices following the MediaPipe BlazePose convention.
const (
	Nose             = 0
	LeftEyeInner     = 1
	LeftEye          = 2
	LeftEyeOuter     = 3
	RightEyeInner    = 4
	RightEye         = 5
	RightEyeOuter    = 6
	LeftEar          = 7
	RightEar         = 8
	MouthLeft        = 9
	MouthRight       = 10
	LeftShoulder     = 11
	RightShoulder    = 12
	LeftElbow        = 13
	RightElbow       = 14
	LeftWrist        = 15
	RightWrist       = 16
	LeftPinky        = 17
	RightPinky       = 18
	LeftIndex        = 19
	RightIndex       = 20
	LeftThumb        = 21
	RightThumb       = 22
	LeftHip          = 23
	RightHip         = 24
	LeftKnee         = 25
	RightKnee        = 26
	LeftAnkle        = 27
	RightAnkle       = 28
	LeftHeel         = 29
	RightHeel        = 30
	LeftFootIndex    = 31
	RightFootIndex   = 32
	NumPoseLandmarks = 33
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist            = 0
	ThumbCMC         = 1
	ThumbMCP         = 2
	ThumbIP          = 3
	ThumbTip         = 4
	IndexMCP         = 5
	IndexPIP         = 6
	IndexDIP         = 7
	IndexTip         = 8
	MiddleMCP        = 9
	MiddlePIP        = 10
	MiddleDIP        = 11
	MiddleTip        = 12
	RingMCP          = 13
	RingPIP          = 14
	RingDIP          = 15
	RingTip          = 16
	PinkyMCP         = 17
	PinkyPIP         = 18
	PinkyDIP         = 19
	PinkyTip         = 20
	NumHandLandmarks = 21
)

// NumFaceLandmarks is the size of the face mesh with refined iris points.
const NumFaceLandmarks = 478

// ErrMalformedResults is returned when a landmark list has the wrong size.
var ErrMalformedResults = errors.New("malformed landmark results")

// Landmark is one detected point. Visibility is nil for landmark types
// that do not report it (face and hands).
type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// Vis returns a Landmark with visibility v.
func Vis(x, y, z, v float64) Landmark {
	return Landmark{X: x, Y: y, Z: z, Visibility: &v}
}

// Results is one frame of holistic detection. Any list may be empty when
// that part of the subject was not found. Pose is in normalized image
// coordinates, PoseWorld in meters centered on the hips; both have y down.
type Results struct {
	Pose      []Landmark `json:"pose,omitempty"`
	PoseWorld []Landmark `json:"pose_world,omitempty"`
	Face      []Landmark `json:"face,omitempty"`
	LeftHand  []Landmark `json:"left_hand,omitempty"`
	RightHand []Landmark `json:"right_hand,omitempty"`
}

// HasPose reports whether both pose lists are present.
func (r *Results) HasPose() bool {
	return len(r.Pose) > 0 && len(r.PoseWorld) > 0
}

// Validate checks the size of every non-empty list and that every
// coordinate is a finite number.
func (r *Results) Validate() error {
	check := func(name string, l []Landmark, want int) error {
		if len(l) != 0 && len(l) != want {
			return fmt.Errorf("%w: %s has %d landmarks, want %d", ErrMalformedResults, name, len(l), want)
		}
		for i, p := range l {
			if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
				return fmt.Errorf("%w: %s[%d] is not finite", ErrMalformedResults, name, i)
			}
		}
		return nil
	}
	for _, c := range []struct {
		name string
		l    []Landmark
		want int
	}{
		{"pose", r.Pose, NumPoseLandmarks},
		{"pose_world", r.PoseWorld, NumPoseLandmarks},
		{"face", r.Face, NumFaceLandmarks},
		{"left_hand", r.LeftHand, NumHandLandmarks},
		{"right_hand", r.RightHand, NumHandLandmarks},
	} {
		if err := check(c.name, c.l, c.want); err != nil {
			return err
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clone returns a deep copy, so a snapshot handed to another goroutine
// cannot be changed under it.
func (r *Results) Clone() *Results {
	if r == nil {
		return nil
	}
	cp := func(l []Landmark) []Landmark {
		if l == nil {
			return nil
		}
		out := make([]Landmark, len(l))
		for i, lm := range l {
			out[i] = lm
			if lm.Visibility != nil {
				v := *lm.Visibility
				out[i].Visibility = &v
			}
		}
		return out
	}
	return &Results{
		Pose:      cp(r.Pose),
		PoseWorld: cp(r.PoseWorld),
		Face:      cp(r.Face),
		LeftHand:  cp(r.LeftHand),
		RightHand: cp(r.RightHand),
	}
}
