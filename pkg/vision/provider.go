package vision

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
)

// FaceDetector defines the interface for facial landmark detectors
type FaceDetector interface {
	// Initialize initializes the detector with any required configuration
	Initialize() error

	// Name returns the detector name
	Name() string

	// DetectFace runs face detection on one encoded frame image. A nil
	// observation with a nil error means no face was found; an error means
	// the detector itself failed on this frame.
	DetectFace(ctx context.Context, image []byte) (*FaceObservation, error)
}

// PoseDetector defines the interface for body-pose detectors
type PoseDetector interface {
	// Initialize initializes the detector with any required configuration
	Initialize() error

	// Name returns the detector name
	Name() string

	// DetectPose runs pose detection on one encoded frame image. A nil
	// observation with a nil error means no body was found.
	DetectPose(ctx context.Context, image []byte) (*PoseObservation, error)
}

// DetectorManager manages all registered face and pose detectors
type DetectorManager struct {
	logger      *logrus.Logger
	faces       map[string]FaceDetector
	poses       map[string]PoseDetector
	defaultFace string
	defaultPose string
}

// NewDetectorManager creates a new detector manager
func NewDetectorManager(logger *logrus.Logger, defaultFace, defaultPose string) *DetectorManager {
	return &DetectorManager{
		logger:      logger,
		faces:       make(map[string]FaceDetector),
		poses:       make(map[string]PoseDetector),
		defaultFace: defaultFace,
		defaultPose: defaultPose,
	}
}

// RegisterFaceDetector registers a face detector
func (m *DetectorManager) RegisterFaceDetector(detector FaceDetector) error {
	// Try to initialize the detector
	if err := detector.Initialize(); err != nil {
		m.logger.WithFields(logrus.Fields{
			"detector": detector.Name(),
			"error":    err,
		}).Error("Failed to initialize face detector")
		return err
	}

	// Add to available detectors
	m.faces[detector.Name()] = detector
	m.logger.WithField("detector", detector.Name()).Info("Registered face detector")

	return nil
}

// RegisterPoseDetector registers a body-pose detector
func (m *DetectorManager) RegisterPoseDetector(detector PoseDetector) error {
	if err := detector.Initialize(); err != nil {
		m.logger.WithFields(logrus.Fields{
			"detector": detector.Name(),
			"error":    err,
		}).Error("Failed to initialize pose detector")
		return err
	}

	m.poses[detector.Name()] = detector
	m.logger.WithField("detector", detector.Name()).Info("Registered pose detector")

	return nil
}

// GetFaceDetector returns a face detector by name
func (m *DetectorManager) GetFaceDetector(name string) (FaceDetector, bool) {
	detector, exists := m.faces[name]
	return detector, exists
}

// GetPoseDetector returns a pose detector by name
func (m *DetectorManager) GetPoseDetector(name string) (PoseDetector, bool) {
	detector, exists := m.poses[name]
	return detector, exists
}

// DetectorNames returns the sorted names of all registered face and pose
// detectors
func (m *DetectorManager) DetectorNames() (faces, poses []string) {
	for name := range m.faces {
		faces = append(faces, name)
	}
	for name := range m.poses {
		poses = append(poses, name)
	}
	sort.Strings(faces)
	sort.Strings(poses)
	return faces, poses
}

// ResolveFaceDetector returns the named face detector, falling back to the
// default when the requested one is not registered. An empty name selects
// the default directly.
func (m *DetectorManager) ResolveFaceDetector(name string) (FaceDetector, error) {
	if name == "" {
		name = m.defaultFace
	}

	detector, exists := m.GetFaceDetector(name)
	if !exists {
		m.logger.WithFields(logrus.Fields{
			"detector":         name,
			"default_detector": m.defaultFace,
		}).Warn("Face detector not found, falling back to default")

		detector, exists = m.GetFaceDetector(m.defaultFace)
		if !exists {
			return nil, ErrNoDetectorAvailable
		}
	}
	return detector, nil
}

// ResolvePoseDetector returns the named pose detector, falling back to the
// default when the requested one is not registered. An empty name selects
// the default directly.
func (m *DetectorManager) ResolvePoseDetector(name string) (PoseDetector, error) {
	if name == "" {
		name = m.defaultPose
	}

	detector, exists := m.GetPoseDetector(name)
	if !exists {
		m.logger.WithFields(logrus.Fields{
			"detector":         name,
			"default_detector": m.defaultPose,
		}).Warn("Pose detector not found, falling back to default")

		detector, exists = m.GetPoseDetector(m.defaultPose)
		if !exists {
			return nil, ErrNoDetectorAvailable
		}
	}
	return detector, nil
}
