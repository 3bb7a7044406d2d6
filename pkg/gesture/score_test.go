package gesture

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"gestrec-server/pkg/config"
)

func testScorer() *Scorer {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	cfg := config.DefaultScoringConfig()
	return NewScorer(logger, &cfg)
}

// metrics helpers pinned to known score values under the default weights

func facialScoring(smile, variety, engagement float64, analyzed, total int) *FacialMetrics {
	return &FacialMetrics{
		SmileFrequency:    smile,
		ExpressionVariety: variety,
		AverageEngagement: engagement,
		FramesAnalyzed:    analyzed,
		TotalFrames:       total,
	}
}

func postureScoring(confidence, consistency, stability float64, analyzed, total int) *PostureMetrics {
	return &PostureMetrics{
		AverageConfidence:   confidence,
		MovementConsistency: consistency,
		StabilityScore:      stability,
		FramesAnalyzed:      analyzed,
		TotalFrames:         total,
	}
}

func TestScoreFacial(t *testing.T) {
	scorer := testScorer()

	// 0.30*0.5 + 0.35*0.4 + 0.35*0.8 = 0.57
	score := scorer.ScoreFacial(facialScoring(0.5, 0.4, 0.8, 10, 10))
	assert.Equal(t, 57, score, "Facial score should apply the 30/35/35 weights")

	assert.Equal(t, 100, scorer.ScoreFacial(facialScoring(1, 1, 1, 10, 10)), "Perfect metrics should score 100")
	assert.Equal(t, 0, scorer.ScoreFacial(facialScoring(0, 0, 0, 10, 10)), "Zero metrics should score 0")
}

func TestScorePosture(t *testing.T) {
	scorer := testScorer()

	// 0.50*0.9 + 0.25*0.5 + 0.25*0.6 = 0.725
	score := scorer.ScorePosture(postureScoring(0.9, 0.5, 0.6, 10, 10))
	assert.Equal(t, 73, score, "Posture score should apply the 50/25/25 weights")
}

func TestScoreEyeContact(t *testing.T) {
	scorer := testScorer()

	// 0.65*0.8 + 0.35*0.6 = 0.73
	score := scorer.ScoreEyeContact(&EyeContactMetrics{
		CameraFocusPercentage: 0.8,
		GazeStability:         0.6,
	})
	assert.Equal(t, 73, score, "Eye-contact score should weight focus above stability")
}

func TestBuildAllModalities(t *testing.T) {
	scorer := testScorer()

	metrics := scorer.Build(
		facialScoring(1, 1, 1, 10, 10),
		&EyeContactMetrics{CameraFocusPercentage: 0.8, GazeStability: 1.0, FramesAnalyzed: 10, TotalFrames: 10},
		postureScoring(0, 0, 0, 10, 10),
	)

	assert.Equal(t, 100, metrics.FacialScore)
	assert.Equal(t, 0, metrics.PostureScore)
	assert.Equal(t, 87, metrics.EyeContactScore)
	// 0.55*100 + 0.45*0 = 55
	assert.Equal(t, 55, metrics.OverallScore, "Both modalities visible should fuse on the 55/45 weights")
	assert.NotNil(t, metrics.Facial, "Aggregates should ride along in the artifact")
}

func TestBuildFusionBoundary(t *testing.T) {
	scorer := testScorer()

	t.Run("both at half rate fuse weighted", func(t *testing.T) {
		metrics := scorer.Build(
			facialScoring(1, 1, 1, 5, 10),
			nil,
			postureScoring(0, 0, 0, 5, 10),
		)
		assert.Equal(t, 55, metrics.OverallScore, "Rates at exactly 0.5 should keep both modalities")
	})

	t.Run("sparse facial drops out", func(t *testing.T) {
		metrics := scorer.Build(
			facialScoring(1, 1, 1, 4, 10),
			nil,
			postureScoring(0.5, 0.5, 0.5, 6, 10),
		)
		assert.Equal(t, 50, metrics.OverallScore, "A rarely-seen face should not dilute the posture score")
	})

	t.Run("sparse posture drops out", func(t *testing.T) {
		metrics := scorer.Build(
			facialScoring(1, 1, 1, 6, 10),
			nil,
			postureScoring(0.5, 0.5, 0.5, 4, 10),
		)
		assert.Equal(t, 100, metrics.OverallScore, "A rarely-seen body should not dilute the facial score")
	})

	t.Run("both sparse fuse weighted", func(t *testing.T) {
		metrics := scorer.Build(
			facialScoring(1, 1, 1, 4, 10),
			nil,
			postureScoring(0.5, 0.5, 0.5, 4, 10),
		)
		// 0.55*100 + 0.45*50 = 77.5, rounded up
		assert.Equal(t, 78, metrics.OverallScore, "Two sparse modalities still beat reporting nothing")
	})
}

func TestBuildMissingModalities(t *testing.T) {
	scorer := testScorer()

	t.Run("facial only", func(t *testing.T) {
		metrics := scorer.Build(facialScoring(1, 1, 1, 10, 10), nil, nil)

		assert.Equal(t, 100, metrics.FacialScore)
		assert.Equal(t, ScoreUnavailable, metrics.PostureScore, "Missing posture should report unavailable")
		assert.Equal(t, ScoreUnavailable, metrics.EyeContactScore)
		assert.Equal(t, 100, metrics.OverallScore, "Overall should follow the only modality present")
	})

	t.Run("posture only", func(t *testing.T) {
		metrics := scorer.Build(nil, nil, postureScoring(0.5, 0.5, 0.5, 10, 10))

		assert.Equal(t, ScoreUnavailable, metrics.FacialScore)
		assert.Equal(t, 50, metrics.PostureScore)
		assert.Equal(t, 50, metrics.OverallScore)
	})

	t.Run("nothing detected", func(t *testing.T) {
		metrics := scorer.Build(nil, nil, nil)

		assert.Equal(t, ScoreUnavailable, metrics.FacialScore)
		assert.Equal(t, ScoreUnavailable, metrics.PostureScore)
		assert.Equal(t, ScoreUnavailable, metrics.EyeContactScore)
		assert.Equal(t, ScoreUnavailable, metrics.OverallScore)
	})
}
