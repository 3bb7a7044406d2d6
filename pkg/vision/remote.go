package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
)

// RemoteFaceDetector implements the FaceDetector interface against a
// landmark sidecar reachable over HTTP. The sidecar takes a JPEG frame and
// answers with face-mesh landmarks plus head pose.
type RemoteFaceDetector struct {
	logger *logrus.Logger
	url    string
	client *http.Client
}

// NewRemoteFaceDetector creates a new remote face detector
func NewRemoteFaceDetector(logger *logrus.Logger, cfg *config.DetectorConfig) *RemoteFaceDetector {
	return &RemoteFaceDetector{
		logger: logger,
		url:    cfg.RemoteFaceURL,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Name returns the detector name
func (d *RemoteFaceDetector) Name() string {
	return "remote"
}

// Initialize initializes the remote detector
func (d *RemoteFaceDetector) Initialize() error {
	if d.url == "" {
		return fmt.Errorf("remote face detector URL is not configured")
	}
	d.logger.WithField("url", d.url).Info("Remote face detector initialized")
	return nil
}

type remoteFaceResponse struct {
	Detected  bool    `json:"detected"`
	Landmarks []Point `json:"landmarks"`
	Quality   float64 `json:"quality"`
	Yaw       float64 `json:"yaw"`
	Pitch     float64 `json:"pitch"`
}

// DetectFace posts one encoded frame to the sidecar
func (d *RemoteFaceDetector) DetectFace(ctx context.Context, image []byte) (*FaceObservation, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to create face detection request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to face detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("face detector returned non-200 status code: %d", resp.StatusCode)
	}

	var result remoteFaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode face detector response: %w", err)
	}

	if !result.Detected {
		return nil, nil
	}

	return &FaceObservation{
		Landmarks: result.Landmarks,
		Quality:   result.Quality,
		Yaw:       result.Yaw,
		Pitch:     result.Pitch,
	}, nil
}

// RemotePoseDetector implements the PoseDetector interface against a
// body-pose sidecar reachable over HTTP
type RemotePoseDetector struct {
	logger *logrus.Logger
	url    string
	client *http.Client
}

// NewRemotePoseDetector creates a new remote pose detector
func NewRemotePoseDetector(logger *logrus.Logger, cfg *config.DetectorConfig) *RemotePoseDetector {
	return &RemotePoseDetector{
		logger: logger,
		url:    cfg.RemotePoseURL,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Name returns the detector name
func (d *RemotePoseDetector) Name() string {
	return "remote"
}

// Initialize initializes the remote detector
func (d *RemotePoseDetector) Initialize() error {
	if d.url == "" {
		return fmt.Errorf("remote pose detector URL is not configured")
	}
	d.logger.WithField("url", d.url).Info("Remote pose detector initialized")
	return nil
}

type remotePoseResponse struct {
	Detected  bool `json:"detected"`
	Keypoints struct {
		LeftShoulder  Keypoint `json:"left_shoulder"`
		RightShoulder Keypoint `json:"right_shoulder"`
		Neck          Keypoint `json:"neck"`
	} `json:"keypoints"`
}

// DetectPose posts one encoded frame to the sidecar
func (d *RemotePoseDetector) DetectPose(ctx context.Context, image []byte) (*PoseObservation, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to create pose detection request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to pose detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pose detector returned non-200 status code: %d", resp.StatusCode)
	}

	var result remotePoseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pose detector response: %w", err)
	}

	if !result.Detected {
		return nil, nil
	}

	return &PoseObservation{
		LeftShoulder:  result.Keypoints.LeftShoulder,
		RightShoulder: result.Keypoints.RightShoulder,
		Neck:          result.Keypoints.Neck,
	}, nil
}
