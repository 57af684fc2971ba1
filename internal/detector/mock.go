package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu      sync.Mutex
	results *Results
	err     error
	calls   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResults sets the results that will be returned by Detect.
func (m *MockDetector) SetResults(r *Results) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = r
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns a copy of the pre-configured results or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Results, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.results == nil {
		return &Results{}, nil
	}
	return m.results.Clone(), nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// tPoseWorld is a subject in T-pose facing the camera, arms level, palms
// down, thumbs forward. Meters, y down, hips at the origin. The subject's
// left side is at +x (image right).
var tPoseWorld = [NumPoseLandmarks][3]float64{
	Nose:           {0, -0.62, -0.10},
	LeftEyeInner:   {0.02, -0.66, -0.08},
	LeftEye:        {0.035, -0.66, -0.08},
	LeftEyeOuter:   {0.05, -0.66, -0.08},
	RightEyeInner:  {-0.02, -0.66, -0.08},
	RightEye:       {-0.035, -0.66, -0.08},
	RightEyeOuter:  {-0.05, -0.66, -0.08},
	LeftEar:        {0.08, -0.64, 0},
	RightEar:       {-0.08, -0.64, 0},
	MouthLeft:      {0.025, -0.57, -0.08},
	MouthRight:     {-0.025, -0.57, -0.08},
	LeftShoulder:   {0.2, -0.45, 0},
	RightShoulder:  {-0.2, -0.45, 0},
	LeftElbow:      {0.45, -0.45, 0},
	RightElbow:     {-0.45, -0.45, 0},
	LeftWrist:      {0.7, -0.45, 0},
	RightWrist:     {-0.7, -0.45, 0},
	LeftPinky:      {0.78, -0.45, 0.03},
	RightPinky:     {-0.78, -0.45, 0.03},
	LeftIndex:      {0.8, -0.45, -0.03},
	RightIndex:     {-0.8, -0.45, -0.03},
	LeftThumb:      {0.75, -0.45, -0.05},
	RightThumb:     {-0.75, -0.45, -0.05},
	LeftHip:        {0.1, 0, 0},
	RightHip:       {-0.1, 0, 0},
	LeftKnee:       {0.1, 0.45, 0},
	RightKnee:      {-0.1, 0.45, 0},
	LeftAnkle:      {0.1, 0.9, 0},
	RightAnkle:     {-0.1, 0.9, 0},
	LeftHeel:       {0.1, 0.95, 0.05},
	RightHeel:      {-0.1, 0.95, 0.05},
	LeftFootIndex:  {0.1, 0.9, -0.15},
	RightFootIndex: {-0.1, 0.9, -0.15},
}

// Face mesh points used by the presets, normalized image coordinates.
var tPoseFace = map[int][3]float64{
	10:  {0.5, 0.2, 0},    // forehead
	152: {0.5, 0.4, 0},    // chin
	454: {0.58, 0.3, 0},   // left cheek
	234: {0.42, 0.3, 0},   // right cheek
	263: {0.54, 0.28, 0},  // left eye outer
	362: {0.51, 0.28, 0},  // left eye inner
	386: {0.525, 0.2755, 0},
	374: {0.525, 0.2845, 0},
	33:  {0.46, 0.28, 0}, // right eye outer
	133: {0.49, 0.28, 0}, // right eye inner
	159: {0.475, 0.2755, 0},
	145: {0.475, 0.2845, 0},
	473: {0.525, 0.28, 0}, // left iris
	474: {0.529, 0.28, 0},
	475: {0.525, 0.276, 0},
	476: {0.521, 0.28, 0},
	477: {0.525, 0.284, 0},
	468: {0.475, 0.28, 0}, // right iris
	469: {0.471, 0.28, 0},
	470: {0.475, 0.276, 0},
	471: {0.479, 0.28, 0},
	472: {0.475, 0.284, 0},
	61:  {0.47, 0.35, 0}, // mouth right corner
	291: {0.53, 0.35, 0}, // mouth left corner
	13:  {0.5, 0.348, 0},
	14:  {0.5, 0.352, 0},
	82:  {0.49, 0.348, 0},
	87:  {0.49, 0.352, 0},
	312: {0.51, 0.348, 0},
	317: {0.51, 0.352, 0},
}

// leftHandTPose is the subject's left hand pointing along +x, palm down,
// thumb toward the camera. Normalized image coordinates.
var leftHandTPose = [NumHandLandmarks][3]float64{
	Wrist:     {0.85, 0.275, 0},
	ThumbCMC:  {0.87, 0.275, -0.02},
	ThumbMCP:  {0.885, 0.275, -0.035},
	ThumbIP:   {0.9, 0.275, -0.05},
	ThumbTip:  {0.915, 0.275, -0.065},
	IndexMCP:  {0.9, 0.275, -0.02},
	IndexPIP:  {0.93, 0.275, -0.02},
	IndexDIP:  {0.95, 0.275, -0.02},
	IndexTip:  {0.97, 0.275, -0.02},
	MiddleMCP: {0.9, 0.275, 0},
	MiddlePIP: {0.93, 0.275, 0},
	MiddleDIP: {0.95, 0.275, 0},
	MiddleTip: {0.97, 0.275, 0},
	RingMCP:   {0.9, 0.275, 0.015},
	RingPIP:   {0.93, 0.275, 0.015},
	RingDIP:   {0.95, 0.275, 0.015},
	RingTip:   {0.97, 0.275, 0.015},
	PinkyMCP:  {0.895, 0.275, 0.03},
	PinkyPIP:  {0.92, 0.275, 0.03},
	PinkyDIP:  {0.94, 0.275, 0.03},
	PinkyTip:  {0.955, 0.275, 0.03},
}

// TPoseResults returns a complete frame of a subject standing in T-pose,
// facing the camera, every pose landmark fully visible.
func TPoseResults() *Results {
	r := &Results{
		Pose:      make([]Landmark, NumPoseLandmarks),
		PoseWorld: make([]Landmark, NumPoseLandmarks),
		Face:      make([]Landmark, NumFaceLandmarks),
		LeftHand:  make([]Landmark, NumHandLandmarks),
		RightHand: make([]Landmark, NumHandLandmarks),
	}
	for i, p := range tPoseWorld {
		r.PoseWorld[i] = Vis(p[0], p[1], p[2], 0.99)
		r.Pose[i] = Vis(0.5+0.5*p[0], 0.5+0.5*p[1], 0.5*p[2], 0.99)
	}
	for i := range r.Face {
		r.Face[i] = Landmark{X: 0.5, Y: 0.3}
	}
	for i, p := range tPoseFace {
		r.Face[i] = Landmark{X: p[0], Y: p[1], Z: p[2]}
	}
	for i, p := range leftHandTPose {
		r.LeftHand[i] = Landmark{X: p[0], Y: p[1], Z: p[2]}
		r.RightHand[i] = Landmark{X: 1 - p[0], Y: p[1], Z: p[2]}
	}
	return r
}
