package gesture

import (
	"math"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
	"gestrec-server/pkg/errors"
)

// Aggregator reduces per-frame signal sequences into summary statistics.
// Either modality fails with a partial error when fewer than the minimum
// fraction of frames carried a signal; the other modality is unaffected.
type Aggregator struct {
	logger *logrus.Entry
	cfg    *config.ScoringConfig
}

// NewAggregator creates a new aggregator
func NewAggregator(logger *logrus.Logger, cfg *config.ScoringConfig) *Aggregator {
	return &Aggregator{
		logger: logger.WithField("component", "aggregator"),
		cfg:    cfg,
	}
}

// AggregateFacial reduces the facial signal sequence into facial and
// eye-contact metrics
func (a *Aggregator) AggregateFacial(signals []FacialSignal) (*FacialMetrics, *EyeContactMetrics, error) {
	total := len(signals)
	analyzed := 0
	for _, s := range signals {
		if s.Detected {
			analyzed++
		}
	}

	rate := 0.0
	if total > 0 {
		rate = float64(analyzed) / float64(total)
	}
	if rate < a.cfg.MinDetectionRate {
		return nil, nil, errors.NewNoFaceDetected(rate)
	}

	smiles := 0
	focus := 0
	reading := 0
	var expressiveness []float64
	var engagement []float64
	var gazes []GazeDirection

	for _, s := range signals {
		if !s.Detected {
			continue
		}
		if s.Smiling {
			smiles++
		}
		expressiveness = append(expressiveness, s.Expressiveness)
		engagement = append(engagement, s.Engagement)
		switch s.Gaze {
		case GazeCenter:
			focus++
		case GazeDown:
			reading++
		}
		gazes = append(gazes, s.Gaze)
	}

	n := float64(analyzed)
	facial := &FacialMetrics{
		SmileFrequency:    float64(smiles) / n,
		ExpressionVariety: clamp01(variance(expressiveness)),
		AverageEngagement: clamp01(mean(engagement)),
		FramesAnalyzed:    analyzed,
		TotalFrames:       total,
	}
	eye := &EyeContactMetrics{
		CameraFocusPercentage:  float64(focus) / n,
		ReadingNotesPercentage: float64(reading) / n,
		GazeStability:          gazeStability(gazes),
		FramesAnalyzed:         analyzed,
		TotalFrames:            total,
	}

	a.logger.WithFields(logrus.Fields{
		"frames_analyzed": analyzed,
		"total_frames":    total,
		"smile_frequency": facial.SmileFrequency,
		"camera_focus":    eye.CameraFocusPercentage,
	}).Debug("Aggregated facial signals")

	return facial, eye, nil
}

// AggregatePosture reduces the posture signal sequence into posture metrics
func (a *Aggregator) AggregatePosture(signals []PostureSignal) (*PostureMetrics, error) {
	total := len(signals)
	analyzed := 0
	for _, s := range signals {
		if s.Detected {
			analyzed++
		}
	}

	rate := 0.0
	if total > 0 {
		rate = float64(analyzed) / float64(total)
	}
	if rate < a.cfg.MinDetectionRate {
		return nil, errors.NewNoBodyDetected(rate)
	}

	var confidence []float64
	var xs []float64
	var ys []float64
	for _, s := range signals {
		if !s.Detected {
			continue
		}
		confidence = append(confidence, s.Confidence)
		xs = append(xs, s.CenterX)
		ys = append(ys, s.CenterY)
	}

	movementVariance := (variance(xs) + variance(ys)) / 2
	consistency := math.Max(0, 1-a.cfg.ConsistencySlope*math.Abs(movementVariance-a.cfg.IdealMovementVariance))

	metrics := &PostureMetrics{
		AverageConfidence:   clamp01(mean(confidence)),
		MovementConsistency: clamp01(consistency),
		StabilityScore:      a.stability(movementVariance),
		FramesAnalyzed:      analyzed,
		TotalFrames:         total,
	}

	a.logger.WithFields(logrus.Fields{
		"frames_analyzed":   analyzed,
		"total_frames":      total,
		"movement_variance": movementVariance,
		"stability":         metrics.StabilityScore,
	}).Debug("Aggregated posture signals")

	return metrics, nil
}

// stability grades body-center movement variance. Near-zero variance reads
// as rigid and is penalized rather than rewarded; beyond the excess
// threshold the score falls off linearly.
func (a *Aggregator) stability(movementVariance float64) float64 {
	switch {
	case movementVariance < a.cfg.RigidVarianceMax:
		return a.cfg.RigidStabilityScore
	case movementVariance > a.cfg.ExcessVarianceMin:
		return math.Max(0, 1-a.cfg.ExcessStabilitySlope*(movementVariance-a.cfg.ExcessVarianceMin))
	default:
		return 1.0
	}
}

// gazeStability is 1 minus the normalized count of gaze-direction changes
// between consecutive analyzed frames. One or fewer frames is perfectly
// stable.
func gazeStability(gazes []GazeDirection) float64 {
	if len(gazes) <= 1 {
		return 1.0
	}

	changes := 0
	for i := 1; i < len(gazes); i++ {
		if gazes[i] != gazes[i-1] {
			changes++
		}
	}

	return clamp01(1 - float64(changes)/float64(len(gazes)-1))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
