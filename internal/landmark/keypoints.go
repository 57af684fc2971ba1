package landmark

import (
	"fmt"

	"github.com/ayusman/mimic/internal/detector"
)

// FaceKeyPoints names the face mesh landmarks used by more than one
// calculation. The fields point into the face set, so the view is always
// current.
type FaceKeyPoints struct {
	LeftEyeOuter, LeftEyeInner, LeftEyeTop, LeftEyeBottom     *Filtered
	RightEyeOuter, RightEyeInner, RightEyeTop, RightEyeBottom *Filtered

	LeftIris, RightIris *Filtered
	// Iris extrema, subject left/right then top/bottom.
	LeftIrisLeft, LeftIrisTop, LeftIrisRight, LeftIrisBottom     *Filtered
	RightIrisLeft, RightIrisTop, RightIrisRight, RightIrisBottom *Filtered

	MouthLeft, MouthRight, MouthTop, MouthBottom *Filtered
	MouthTopLeft, MouthBottomLeft                *Filtered
	MouthTopRight, MouthBottomRight              *Filtered

	FaceTop, FaceBottom, FaceLeft, FaceRight *Filtered
}

// NewFaceKeyPoints binds the key points to a face set of 478 landmarks.
func NewFaceKeyPoints(face []Filtered) (*FaceKeyPoints, error) {
	if len(face) < detector.NumFaceLandmarks {
		return nil, fmt.Errorf("face set has %d landmarks, want %d", len(face), detector.NumFaceLandmarks)
	}
	at := func(i int) *Filtered { return &face[i] }
	return &FaceKeyPoints{
		LeftEyeOuter:   at(263),
		LeftEyeInner:   at(362),
		LeftEyeTop:     at(386),
		LeftEyeBottom:  at(374),
		RightEyeOuter:  at(33),
		RightEyeInner:  at(133),
		RightEyeTop:    at(159),
		RightEyeBottom: at(145),

		LeftIris:        at(473),
		RightIris:       at(468),
		LeftIrisLeft:    at(474),
		LeftIrisTop:     at(475),
		LeftIrisRight:   at(476),
		LeftIrisBottom:  at(477),
		RightIrisLeft:   at(471),
		RightIrisTop:    at(470),
		RightIrisRight:  at(469),
		RightIrisBottom: at(472),

		MouthLeft:        at(291),
		MouthRight:       at(61),
		MouthTop:         at(13),
		MouthBottom:      at(14),
		MouthTopLeft:     at(312),
		MouthBottomLeft:  at(317),
		MouthTopRight:    at(82),
		MouthBottomRight: at(87),

		FaceTop:    at(10),
		FaceBottom: at(152),
		FaceLeft:   at(454),
		FaceRight:  at(234),
	}, nil
}
