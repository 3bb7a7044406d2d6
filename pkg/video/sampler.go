package video

import (
	"math"
)

// Adaptive sampling tiers. Short videos are sampled densely, long ones
// sparsely, keeping total detector calls roughly in the 40-90 range.
const (
	shortVideoSeconds  = 20
	mediumVideoSeconds = 60
	longVideoSeconds   = 120

	shortVideoFPS  = 3.0
	mediumVideoFPS = 2.0
	longVideoFPS   = 1.5
	fallbackFPS    = 1.0
)

// TargetFPS returns the adaptive frame sampling rate for a video of the
// given duration
func TargetFPS(durationSeconds float64) float64 {
	switch {
	case durationSeconds < shortVideoSeconds:
		return shortVideoFPS
	case durationSeconds < mediumVideoSeconds:
		return mediumVideoFPS
	case durationSeconds < longVideoSeconds:
		return longVideoFPS
	default:
		return fallbackFPS
	}
}

// Plan is the sampling schedule for one video: the effective rate and the
// ordered timestamps to be analyzed, spaced 1/FPS apart over [0, duration)
type Plan struct {
	FPS        float64
	Timestamps []float64
}

// NewPlan builds the sampling schedule for a video. An explicitFPS > 0
// overrides the adaptive policy.
func NewPlan(durationSeconds, explicitFPS float64) Plan {
	fps := explicitFPS
	if fps <= 0 {
		fps = TargetFPS(durationSeconds)
	}

	plan := Plan{FPS: fps}
	if durationSeconds <= 0 {
		return plan
	}

	n := int(math.Ceil(durationSeconds * fps))
	for i := 0; i < n; i++ {
		ts := float64(i) / fps
		if ts >= durationSeconds {
			break
		}
		plan.Timestamps = append(plan.Timestamps, ts)
	}
	return plan
}

// ExpectedFrames returns the number of frames the plan will request
func (p Plan) ExpectedFrames() int {
	return len(p.Timestamps)
}
