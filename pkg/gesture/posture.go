package gesture

import (
	"math"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
	"gestrec-server/pkg/vision"
)

// Alignment and balance fall off at these rates as the shoulders tilt or
// the neck drifts off the shoulder midline, both normalized by shoulder
// distance so the read is scale-invariant.
const (
	shoulderTiltSlope = 5.0
	neckOffsetSlope   = 2.0
)

// PostureExtractor turns one pose observation into a per-frame posture
// signal
type PostureExtractor struct {
	logger *logrus.Entry
	cfg    *config.ScoringConfig
}

// NewPostureExtractor creates a new posture signal extractor
func NewPostureExtractor(logger *logrus.Logger, cfg *config.ScoringConfig) *PostureExtractor {
	return &PostureExtractor{
		logger: logger.WithField("component", "posture_extractor"),
		cfg:    cfg,
	}
}

// Extract scores one frame's posture. A nil observation, any keypoint at or
// below the confidence floor, or coincident shoulders record a miss.
func (e *PostureExtractor) Extract(obs *vision.PoseObservation) PostureSignal {
	if obs == nil {
		return PostureSignal{}
	}

	floor := e.cfg.MinKeypointConfidence
	if obs.LeftShoulder.Confidence <= floor ||
		obs.RightShoulder.Confidence <= floor ||
		obs.Neck.Confidence <= floor {
		return PostureSignal{}
	}

	dx := obs.RightShoulder.X - obs.LeftShoulder.X
	dy := obs.RightShoulder.Y - obs.LeftShoulder.Y
	shoulderDist := math.Hypot(dx, dy)
	if shoulderDist <= 0 {
		return PostureSignal{}
	}

	alignment := math.Max(0, 1-shoulderTiltSlope*math.Abs(dy)/shoulderDist)

	midX := (obs.LeftShoulder.X + obs.RightShoulder.X) / 2
	vertical := math.Max(0, 1-neckOffsetSlope*math.Abs(obs.Neck.X-midX)/shoulderDist)

	confidence := e.cfg.ShoulderAlignmentWeight*alignment + e.cfg.VerticalPostureWeight*vertical

	return PostureSignal{
		Detected:   true,
		Confidence: clamp01(confidence),
		CenterX:    obs.Neck.X,
		CenterY:    obs.Neck.Y,
	}
}
