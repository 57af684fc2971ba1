package landmark

import (
	"fmt"

	"github.com/ayusman/mimic/internal/geom"
)

// Region is a named group of face mesh landmarks.
type Region int

const (
	LeftEyebrow Region = iota
	RightEyebrow
	LeftEye
	RightEye
	LeftIris
	RightIris
	Lips
	FaceOval
	numRegions
)

var regionNames = [numRegions]string{"leftEyebrow", "rightEyebrow", "leftEye", "rightEye", "leftIris", "rightIris", "lips", "faceOval"}

func (r Region) String() string {
	if r < 0 || r >= numRegions {
		return fmt.Sprintf("Region(%d)", int(r))
	}
	return regionNames[r]
}

// Face mesh indices per region, from the MediaPipe face mesh contours.
// Left and right are the subject's.
var regionIndices = [numRegions][]int{
	LeftEyebrow:  {276, 283, 282, 295, 285, 300, 293, 334, 296, 336},
	RightEyebrow: {46, 53, 52, 65, 55, 70, 63, 105, 66, 107},
	LeftEye:      {263, 249, 390, 373, 374, 380, 381, 382, 362, 466, 388, 387, 386, 385, 384, 398},
	RightEye:     {33, 7, 163, 144, 145, 153, 154, 155, 133, 246, 161, 160, 159, 158, 157, 173},
	LeftIris:     {474, 475, 476, 477},
	RightIris:    {469, 470, 471, 472},
	Lips: {
		61, 146, 91, 181, 84, 17, 314, 405, 321, 375, 291, 185, 40, 39, 37, 0, 267, 269, 270, 409,
		78, 95, 88, 178, 87, 14, 317, 402, 318, 324, 308, 191, 80, 81, 82, 13, 312, 311, 310, 415,
	},
	FaceOval: {
		10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288, 397, 365, 379, 378, 400, 377,
		152, 148, 176, 149, 150, 136, 172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
	},
}

// RegionIndices returns the face mesh indices of r.
func RegionIndices(r Region) []int {
	return regionIndices[r]
}

// Regions holds the filtered positions of every face region. The buffers
// are allocated once and refilled by Extract.
type Regions struct {
	points [numRegions][]geom.Vec
}

// NewRegions allocates the buffers for every region.
func NewRegions() *Regions {
	r := &Regions{}
	for i, idx := range regionIndices {
		r.points[i] = make([]geom.Vec, len(idx))
	}
	return r
}

// Extract copies the current positions of face into the region buffers.
func (r *Regions) Extract(face []Filtered) {
	for i, idx := range regionIndices {
		for j, k := range idx {
			r.points[i][j] = face[k].pos
		}
	}
}

// Points returns the positions of region g. The slice is reused by the
// next Extract.
func (r *Regions) Points(g Region) []geom.Vec {
	return r.points[g]
}

// Center returns the centroid of region g.
func (r *Regions) Center(g Region) geom.Vec {
	return geom.Mean(r.points[g])
}
