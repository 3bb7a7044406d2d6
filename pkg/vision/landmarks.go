// Package vision defines the boundary to external face and body-pose
// detectors and the observation types they return.
package vision

// Facial landmark indices following the MediaPipe Face Mesh convention
// (refined mesh with iris points).
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	UpperLipOuter    = 0
	LowerLipOuter    = 17
	MouthCornerLeft  = 61
	MouthCornerRight = 291

	LeftEyeOuter  = 33
	LeftEyeInner  = 133
	LeftEyeTop    = 159
	LeftEyeBottom = 145

	RightEyeInner  = 362
	RightEyeOuter  = 263
	RightEyeTop    = 386
	RightEyeBottom = 374

	LeftIrisCenter  = 468
	RightIrisCenter = 473

	NumFaceLandmarks = 478
)

// Landmark groups used by expressiveness and mouth-shape analysis
var (
	LeftEyebrow  = []int{70, 63, 105, 66, 107}
	RightEyebrow = []int{336, 296, 334, 293, 300}

	MouthOutline = []int{
		61, 146, 91, 181, 84, 17, 314, 405, 321, 375,
		291, 409, 270, 269, 267, 0, 37, 39, 40, 185,
	}
)

// Point is a normalized 2D landmark location in 0-1 image coordinates,
// y increasing downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceObservation is the result of a successful face detection on one frame.
// Landmarks follow the Face Mesh index convention but may be truncated when
// the detector does not produce the refined mesh; always check availability
// through Point or GroupAvailable before indexing.
type FaceObservation struct {
	Landmarks []Point `json:"landmarks"`

	// Quality is the detector's own confidence in the detection, 0-1
	Quality float64 `json:"quality"`

	// Head pose in degrees. Positive yaw turns toward the subject's left,
	// positive pitch tilts up.
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Point returns the landmark at index i, reporting whether it exists
func (o *FaceObservation) Point(i int) (Point, bool) {
	if o == nil || i < 0 || i >= len(o.Landmarks) {
		return Point{}, false
	}
	return o.Landmarks[i], true
}

// GroupAvailable reports whether every index in a landmark group exists
func (o *FaceObservation) GroupAvailable(group []int) bool {
	if o == nil {
		return false
	}
	for _, i := range group {
		if i < 0 || i >= len(o.Landmarks) {
			return false
		}
	}
	return true
}

// HasIris reports whether the refined iris landmarks are present
func (o *FaceObservation) HasIris() bool {
	return o != nil && len(o.Landmarks) > RightIrisCenter
}

// Keypoint is a body keypoint with the detector's confidence in it
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// PoseObservation is the result of a successful body-pose detection on one
// frame. Only the upper-body keypoints posture analysis depends on are
// carried across the boundary.
type PoseObservation struct {
	LeftShoulder  Keypoint `json:"left_shoulder"`
	RightShoulder Keypoint `json:"right_shoulder"`
	Neck          Keypoint `json:"neck"`
}
