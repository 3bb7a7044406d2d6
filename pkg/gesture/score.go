package gesture

import (
	"math"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
)

// Scorer converts aggregated metrics into 0-100 scores and fuses them into
// an overall score
type Scorer struct {
	logger *logrus.Entry
	cfg    *config.ScoringConfig
}

// NewScorer creates a new scorer
func NewScorer(logger *logrus.Logger, cfg *config.ScoringConfig) *Scorer {
	return &Scorer{
		logger: logger.WithField("component", "scorer"),
		cfg:    cfg,
	}
}

// Build scores every available modality and fuses them into the final
// artifact. A nil modality is reported as ScoreUnavailable and excluded
// from fusion.
func (s *Scorer) Build(facial *FacialMetrics, eye *EyeContactMetrics, posture *PostureMetrics) *Metrics {
	m := &Metrics{
		Facial:          facial,
		Posture:         posture,
		EyeContact:      eye,
		FacialScore:     ScoreUnavailable,
		PostureScore:    ScoreUnavailable,
		EyeContactScore: ScoreUnavailable,
	}

	if facial != nil {
		m.FacialScore = s.ScoreFacial(facial)
	}
	if posture != nil {
		m.PostureScore = s.ScorePosture(posture)
	}
	if eye != nil {
		m.EyeContactScore = s.ScoreEyeContact(eye)
	}

	m.OverallScore = s.fuse(facial, posture, m.FacialScore, m.PostureScore)

	s.logger.WithFields(logrus.Fields{
		"overall_score":     m.OverallScore,
		"facial_score":      m.FacialScore,
		"posture_score":     m.PostureScore,
		"eye_contact_score": m.EyeContactScore,
	}).Info("Computed gesture scores")

	return m
}

// ScoreFacial maps facial metrics onto the 0-100 scale
func (s *Scorer) ScoreFacial(m *FacialMetrics) int {
	return toScore(s.cfg.FacialSmileWeight*m.SmileFrequency +
		s.cfg.FacialVarietyWeight*m.ExpressionVariety +
		s.cfg.FacialEngagementWeight*m.AverageEngagement)
}

// ScorePosture maps posture metrics onto the 0-100 scale
func (s *Scorer) ScorePosture(m *PostureMetrics) int {
	return toScore(s.cfg.PostureConfidenceWeight*m.AverageConfidence +
		s.cfg.PostureMovementWeight*m.MovementConsistency +
		s.cfg.PostureStabilityWeight*m.StabilityScore)
}

// ScoreEyeContact maps eye-contact metrics onto the 0-100 scale, weighting
// camera focus above gaze stability
func (s *Scorer) ScoreEyeContact(m *EyeContactMetrics) int {
	return toScore(s.cfg.EyeContactFocusWeight*m.CameraFocusPercentage +
		s.cfg.EyeContactGazeWeight*m.GazeStability)
}

// fuse picks the overall score from the per-modality scores by detection
// rate. A modality that was rarely visible is dropped rather than allowed
// to drag the average down.
func (s *Scorer) fuse(facial *FacialMetrics, posture *PostureMetrics, facialScore, postureScore int) int {
	if facial == nil && posture == nil {
		return ScoreUnavailable
	}
	if facial == nil {
		return postureScore
	}
	if posture == nil {
		return facialScore
	}

	facialRate := facial.DetectionRate()
	postureRate := posture.DetectionRate()

	switch {
	case facialRate < s.cfg.FusionMinRate && postureRate >= s.cfg.FusionMinRate:
		return postureScore
	case postureRate < s.cfg.FusionMinRate && facialRate >= s.cfg.FusionMinRate:
		return facialScore
	default:
		weighted := s.cfg.OverallFacialWeight*float64(facialScore) + s.cfg.OverallPostureWeight*float64(postureScore)
		return clampScore(int(math.Round(weighted)))
	}
}

// toScore maps a [0,1] weighted sum onto the 0-100 scale
func toScore(v float64) int {
	return clampScore(int(math.Round(v * 100)))
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
