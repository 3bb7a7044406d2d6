package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetFPS(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		expected float64
	}{
		{"short video", 10, 3.0},
		{"medium video", 45, 2.0},
		{"long video", 90, 1.5},
		{"very long video", 300, 1.0},
		{"zero duration", 0, 3.0},
		{"short boundary", 20, 2.0},
		{"medium boundary", 60, 1.5},
		{"long boundary", 120, 1.0},
		{"just below short boundary", 19.99, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TargetFPS(tt.duration))
		})
	}
}

func TestNewPlanAdaptive(t *testing.T) {
	plan := NewPlan(10, 0)

	assert.Equal(t, 3.0, plan.FPS)
	assert.Equal(t, 30, plan.ExpectedFrames())

	// Timestamps are ordered, unique, spaced 1/fps apart and inside [0, duration)
	for i, ts := range plan.Timestamps {
		assert.GreaterOrEqual(t, ts, 0.0)
		assert.Less(t, ts, 10.0)
		if i > 0 {
			assert.Greater(t, ts, plan.Timestamps[i-1], "Timestamps must strictly increase")
			assert.InDelta(t, 1.0/3.0, ts-plan.Timestamps[i-1], 1e-9)
		}
	}
}

func TestNewPlanExplicitRate(t *testing.T) {
	plan := NewPlan(10, 1.0)

	assert.Equal(t, 1.0, plan.FPS, "Explicit rate overrides the adaptive policy")
	assert.Equal(t, 10, plan.ExpectedFrames())
	assert.Equal(t, 0.0, plan.Timestamps[0])
	assert.Equal(t, 9.0, plan.Timestamps[9])
}

func TestNewPlanBoundsFrameCount(t *testing.T) {
	// The adaptive tiers keep frame counts in a narrow band across wildly
	// different durations
	for _, duration := range []float64{15, 30, 59, 61, 90, 119, 121, 300, 600} {
		plan := NewPlan(duration, 0)
		assert.GreaterOrEqual(t, plan.ExpectedFrames(), 30, "duration %.0fs", duration)
		if duration <= 600 {
			assert.LessOrEqual(t, plan.ExpectedFrames(), 600, "duration %.0fs", duration)
		}
	}

	// The documented sweet spot holds up to a few minutes
	for _, duration := range []float64{15, 30, 45, 90, 60} {
		plan := NewPlan(duration, 0)
		assert.GreaterOrEqual(t, plan.ExpectedFrames(), 40, "duration %.0fs", duration)
		assert.LessOrEqual(t, plan.ExpectedFrames(), 135, "duration %.0fs", duration)
	}
}

func TestNewPlanZeroDuration(t *testing.T) {
	plan := NewPlan(0, 0)
	assert.Empty(t, plan.Timestamps)
	assert.Equal(t, 0, plan.ExpectedFrames())
}

func TestNewPlanCoversWholeVideo(t *testing.T) {
	plan := NewPlan(45, 0)

	last := plan.Timestamps[len(plan.Timestamps)-1]
	assert.Less(t, last, 45.0)
	assert.Greater(t, last, 45.0-1.0/plan.FPS-1e-9, "Last timestamp should fall within one interval of the end")
}
