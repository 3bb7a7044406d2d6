package gesture

import (
	"math"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
	"gestrec-server/pkg/vision"
)

// FacialExtractor turns one face observation into a per-frame facial signal
type FacialExtractor struct {
	logger *logrus.Entry
	cfg    *config.ScoringConfig
}

// NewFacialExtractor creates a new facial signal extractor
func NewFacialExtractor(logger *logrus.Logger, cfg *config.ScoringConfig) *FacialExtractor {
	return &FacialExtractor{
		logger: logger.WithField("component", "facial_extractor"),
		cfg:    cfg,
	}
}

// Extract classifies one frame. A nil observation records a miss.
func (e *FacialExtractor) Extract(obs *vision.FaceObservation) FacialSignal {
	if obs == nil {
		return FacialSignal{}
	}

	openness := e.eyeOpenness(obs)

	return FacialSignal{
		Detected:       true,
		Smiling:        e.isSmiling(obs),
		Expressiveness: e.expressiveness(obs),
		Engagement:     e.engagement(obs, openness),
		Gaze:           e.classifyGaze(obs, openness),
	}
}

// isSmiling derives mouth curvature from the vertical offset between the
// outer-lip midpoints, normalized by mouth width. Negative curvature means
// the lower midpoint sits above the upper one, which reads as a smile once
// it passes the threshold.
func (e *FacialExtractor) isSmiling(obs *vision.FaceObservation) bool {
	upper, okU := obs.Point(vision.UpperLipOuter)
	lower, okL := obs.Point(vision.LowerLipOuter)
	left, okCL := obs.Point(vision.MouthCornerLeft)
	right, okCR := obs.Point(vision.MouthCornerRight)
	if !okU || !okL || !okCL || !okCR {
		return false
	}

	width := math.Abs(right.X - left.X)
	if width <= 0 {
		return false
	}

	curvature := (lower.Y - upper.Y) / width
	return curvature < e.cfg.SmileCurvatureThreshold
}

// expressiveness measures how much the eyebrows and mouth outline deviate
// from flat, averaged over the landmark groups that are present and scaled
// into [0,1]. With no usable group it reports neutral rather than zero.
func (e *FacialExtractor) expressiveness(obs *vision.FaceObservation) float64 {
	var browYs []float64
	for _, idx := range vision.LeftEyebrow {
		if pt, ok := obs.Point(idx); ok {
			browYs = append(browYs, pt.Y)
		}
	}
	for _, idx := range vision.RightEyebrow {
		if pt, ok := obs.Point(idx); ok {
			browYs = append(browYs, pt.Y)
		}
	}

	var mouthYs []float64
	for _, idx := range vision.MouthOutline {
		if pt, ok := obs.Point(idx); ok {
			mouthYs = append(mouthYs, pt.Y)
		}
	}

	groups := 0
	total := 0.0
	if len(browYs) >= 2 {
		total += variance(browYs)
		groups++
	}
	if len(mouthYs) >= 2 {
		total += variance(mouthYs)
		groups++
	}

	if groups == 0 {
		return e.cfg.NeutralExpressiveness
	}

	return clamp01(total / float64(groups) * e.cfg.ExpressivenessScale)
}

// eyeOpenness maps vertical eye height to [0,1] per eye and averages the
// eyes that are present. With no eye landmarks it reports neutral.
func (e *FacialExtractor) eyeOpenness(obs *vision.FaceObservation) float64 {
	total := 0.0
	eyes := 0

	if top, ok := obs.Point(vision.LeftEyeTop); ok {
		if bottom, ok := obs.Point(vision.LeftEyeBottom); ok {
			total += math.Min(1, math.Abs(bottom.Y-top.Y)*e.cfg.EyeOpennessScale)
			eyes++
		}
	}
	if top, ok := obs.Point(vision.RightEyeTop); ok {
		if bottom, ok := obs.Point(vision.RightEyeBottom); ok {
			total += math.Min(1, math.Abs(bottom.Y-top.Y)*e.cfg.EyeOpennessScale)
			eyes++
		}
	}

	if eyes == 0 {
		return e.cfg.NeutralEngagement
	}
	return total / float64(eyes)
}

// engagement averages the detector's face quality with eye openness
func (e *FacialExtractor) engagement(obs *vision.FaceObservation, openness float64) float64 {
	return clamp01((obs.Quality + openness) / 2)
}

// classifyGaze runs the gaze decision procedure in priority order: closed
// eyes are unjudgeable, a strong head turn beats pupil evidence, centered
// pupils beat head pose, and head pose decides the rest.
func (e *FacialExtractor) classifyGaze(obs *vision.FaceObservation, openness float64) GazeDirection {
	if openness <= e.cfg.GazeMinEyeOpenness {
		return GazeUnknown
	}

	if math.Abs(obs.Yaw) > e.cfg.GazeStrongYaw {
		if obs.Yaw > 0 {
			return GazeLeft
		}
		return GazeRight
	}

	if leftOff, rightOff, ok := e.pupilOffsets(obs); ok {
		if leftOff < e.cfg.GazeMaxPupilOffset && rightOff < e.cfg.GazeMaxPupilOffset {
			return GazeCenter
		}
	}

	switch {
	case obs.Pitch < -e.cfg.GazePitchLimit:
		return GazeDown
	case obs.Pitch > e.cfg.GazePitchLimit:
		return GazeUp
	case obs.Yaw < -e.cfg.GazeYawLimit:
		return GazeRight
	case obs.Yaw > e.cfg.GazeYawLimit:
		return GazeLeft
	default:
		return GazeCenter
	}
}

// pupilOffsets computes each pupil's horizontal offset from its eye center,
// normalized by eye width. ok is false unless both eyes are measurable.
func (e *FacialExtractor) pupilOffsets(obs *vision.FaceObservation) (float64, float64, bool) {
	left, okL := pupilOffset(obs, vision.LeftIrisCenter, vision.LeftEyeInner, vision.LeftEyeOuter)
	right, okR := pupilOffset(obs, vision.RightIrisCenter, vision.RightEyeInner, vision.RightEyeOuter)
	if !okL || !okR {
		return 0, 0, false
	}
	return left, right, true
}

func pupilOffset(obs *vision.FaceObservation, irisIdx, innerIdx, outerIdx int) (float64, bool) {
	iris, okI := obs.Point(irisIdx)
	inner, okIn := obs.Point(innerIdx)
	outer, okOut := obs.Point(outerIdx)
	if !okI || !okIn || !okOut {
		return 0, false
	}

	width := math.Abs(outer.X - inner.X)
	if width <= 0 {
		return 0, false
	}

	center := (inner.X + outer.X) / 2
	return math.Abs(iris.X-center) / width, true
}
