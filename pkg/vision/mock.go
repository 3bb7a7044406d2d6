package vision

import (
	"context"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// MockFaceDetector implements a deterministic mock face detector for testing
// and for running the pipeline without a landmark sidecar
type MockFaceDetector struct {
	logger *logrus.Logger

	// MissEvery makes every Nth frame report no face when > 0
	MissEvery int
	// FailEvery makes every Nth call fail when > 0
	FailEvery int

	mu    sync.Mutex
	calls int
}

// NewMockFaceDetector creates a new mock face detector
func NewMockFaceDetector(logger *logrus.Logger) *MockFaceDetector {
	return &MockFaceDetector{
		logger: logger,
	}
}

// Name returns the detector name
func (d *MockFaceDetector) Name() string {
	return "mock"
}

// Initialize initializes the mock detector
func (d *MockFaceDetector) Initialize() error {
	d.logger.Info("Mock face detector initialized")
	return nil
}

// DetectFace synthesizes a face observation that cycles through neutral and
// smiling expressions so aggregate metrics stay non-degenerate
func (d *MockFaceDetector) DetectFace(ctx context.Context, image []byte) (*FaceObservation, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	seq := d.calls
	d.calls++
	d.mu.Unlock()

	if d.FailEvery > 0 && (seq+1)%d.FailEvery == 0 {
		return nil, ErrDetectionFailed
	}
	if d.MissEvery > 0 && (seq+1)%d.MissEvery == 0 {
		return nil, nil
	}

	return syntheticFace(seq), nil
}

// MockPoseDetector implements a deterministic mock body-pose detector
type MockPoseDetector struct {
	logger *logrus.Logger

	// MissEvery makes every Nth frame report no body when > 0
	MissEvery int
	// FailEvery makes every Nth call fail when > 0
	FailEvery int

	mu    sync.Mutex
	calls int
}

// NewMockPoseDetector creates a new mock pose detector
func NewMockPoseDetector(logger *logrus.Logger) *MockPoseDetector {
	return &MockPoseDetector{
		logger: logger,
	}
}

// Name returns the detector name
func (d *MockPoseDetector) Name() string {
	return "mock"
}

// Initialize initializes the mock detector
func (d *MockPoseDetector) Initialize() error {
	d.logger.Info("Mock pose detector initialized")
	return nil
}

// DetectPose synthesizes an upright pose with a slow sway so movement
// variance is small but nonzero
func (d *MockPoseDetector) DetectPose(ctx context.Context, image []byte) (*PoseObservation, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	seq := d.calls
	d.calls++
	d.mu.Unlock()

	if d.FailEvery > 0 && (seq+1)%d.FailEvery == 0 {
		return nil, ErrDetectionFailed
	}
	if d.MissEvery > 0 && (seq+1)%d.MissEvery == 0 {
		return nil, nil
	}

	sway := 0.01 * math.Sin(float64(seq)/4)
	return &PoseObservation{
		LeftShoulder:  Keypoint{X: 0.38 + sway, Y: 0.62, Confidence: 0.95},
		RightShoulder: Keypoint{X: 0.62 + sway, Y: 0.625, Confidence: 0.94},
		Neck:          Keypoint{X: 0.5 + sway, Y: 0.52, Confidence: 0.9},
	}, nil
}

// syntheticFace builds a full face-mesh observation for frame seq. Every
// third frame smiles, eyebrows drift a little so expressiveness is nonzero,
// and the gaze stays on camera.
func syntheticFace(seq int) *FaceObservation {
	landmarks := make([]Point, NumFaceLandmarks)
	for i := range landmarks {
		landmarks[i] = Point{X: 0.5, Y: 0.5}
	}

	// Mouth, 0.16 wide
	landmarks[MouthCornerLeft] = Point{X: 0.42, Y: 0.62}
	landmarks[MouthCornerRight] = Point{X: 0.58, Y: 0.62}
	landmarks[UpperLipOuter] = Point{X: 0.5, Y: 0.60}
	if seq%3 == 0 {
		// Lower lip pulled above the upper lip midpoint
		landmarks[LowerLipOuter] = Point{X: 0.5, Y: 0.565}
	} else {
		landmarks[LowerLipOuter] = Point{X: 0.5, Y: 0.64}
	}
	for i, idx := range MouthOutline {
		if idx == MouthCornerLeft || idx == MouthCornerRight ||
			idx == UpperLipOuter || idx == LowerLipOuter {
			continue
		}
		landmarks[idx] = Point{
			X: 0.42 + 0.16*float64(i)/float64(len(MouthOutline)-1),
			Y: 0.62 + 0.01*math.Sin(float64(i)),
		}
	}

	// Eyebrows drift a few pixels frame to frame
	drift := 0.004 * math.Sin(float64(seq)/2)
	for i, idx := range LeftEyebrow {
		landmarks[idx] = Point{X: 0.36 + 0.02*float64(i), Y: 0.41 + drift + 0.003*float64(i%2)}
	}
	for i, idx := range RightEyebrow {
		landmarks[idx] = Point{X: 0.56 + 0.02*float64(i), Y: 0.41 + drift + 0.003*float64(i%2)}
	}

	// Eyes open, iris centered between the corners
	landmarks[LeftEyeOuter] = Point{X: 0.40, Y: 0.46}
	landmarks[LeftEyeInner] = Point{X: 0.46, Y: 0.46}
	landmarks[LeftEyeTop] = Point{X: 0.43, Y: 0.435}
	landmarks[LeftEyeBottom] = Point{X: 0.43, Y: 0.485}
	landmarks[RightEyeInner] = Point{X: 0.54, Y: 0.46}
	landmarks[RightEyeOuter] = Point{X: 0.60, Y: 0.46}
	landmarks[RightEyeTop] = Point{X: 0.57, Y: 0.435}
	landmarks[RightEyeBottom] = Point{X: 0.57, Y: 0.485}
	landmarks[LeftIrisCenter] = Point{X: 0.43, Y: 0.46}
	landmarks[RightIrisCenter] = Point{X: 0.57, Y: 0.46}

	return &FaceObservation{
		Landmarks: landmarks,
		Quality:   0.9,
		Yaw:       2 * math.Sin(float64(seq)/5),
		Pitch:     -1,
	}
}
