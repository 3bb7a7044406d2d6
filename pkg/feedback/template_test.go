package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestrec-server/pkg/gesture"
)

func fullMetrics() *gesture.Metrics {
	return &gesture.Metrics{
		Facial: &gesture.FacialMetrics{
			SmileFrequency:    0.5,
			ExpressionVariety: 0.4,
			AverageEngagement: 0.8,
			FramesAnalyzed:    20,
			TotalFrames:       20,
		},
		Posture: &gesture.PostureMetrics{
			AverageConfidence:   0.8,
			MovementConsistency: 0.7,
			StabilityScore:      0.9,
			FramesAnalyzed:      20,
			TotalFrames:         20,
		},
		EyeContact: &gesture.EyeContactMetrics{
			CameraFocusPercentage:  0.8,
			ReadingNotesPercentage: 0.05,
			GazeStability:          0.9,
			FramesAnalyzed:         20,
			TotalFrames:            20,
		},
		OverallScore:    80,
		FacialScore:     78,
		PostureScore:    82,
		EyeContactScore: 84,
	}
}

func TestTemplateGeneratorDeterministic(t *testing.T) {
	gen := NewTemplateGenerator()

	first := gen.Generate(fullMetrics())
	second := gen.Generate(fullMetrics())

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.True(t, first.IsTemplateFallback)
}

func TestTemplateGeneratorBuckets(t *testing.T) {
	gen := NewTemplateGenerator()
	entry := summaryTable[comboFacial|comboPosture|comboEye]

	tests := []struct {
		name    string
		overall int
		want    string
	}{
		{"excellent", 90, entry.excellent},
		{"excellent boundary", 85, entry.excellent},
		{"good below excellent", 84, entry.good},
		{"good boundary", 70, entry.good},
		{"needs attention", 69, entry.needsWork},
		{"needs attention low", 20, entry.needsWork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fullMetrics()
			m.OverallScore = tt.overall

			fb := gen.Generate(m)

			require.NotNil(t, fb)
			assert.Equal(t, tt.want, fb.FeedbackText)
		})
	}
}

func TestTemplateGeneratorStrengthSelection(t *testing.T) {
	gen := NewTemplateGenerator()

	t.Run("facial top with frequent smiles", func(t *testing.T) {
		m := fullMetrics()
		m.FacialScore = 95
		m.Facial.SmileFrequency = 0.5

		fb := gen.Generate(m)

		assert.Contains(t, fb.StrengthText, "smile often")
	})

	t.Run("facial top with varied expressions", func(t *testing.T) {
		m := fullMetrics()
		m.FacialScore = 95
		m.Facial.SmileFrequency = 0.1
		m.Facial.ExpressionVariety = 0.5

		fb := gen.Generate(m)

		assert.Contains(t, fb.StrengthText, "vary your expressions")
	})

	t.Run("facial top default phrasing", func(t *testing.T) {
		m := fullMetrics()
		m.FacialScore = 95
		m.Facial.SmileFrequency = 0.1
		m.Facial.ExpressionVariety = 0.1

		fb := gen.Generate(m)

		assert.Contains(t, fb.StrengthText, "engaged and readable")
	})

	t.Run("posture top with calm stability", func(t *testing.T) {
		m := fullMetrics()
		m.PostureScore = 95
		m.EyeContactScore = 80
		m.Posture.StabilityScore = 0.9

		fb := gen.Generate(m)

		assert.Contains(t, fb.StrengthText, "calmly")
	})

	t.Run("eye contact top with strong focus", func(t *testing.T) {
		m := fullMetrics()
		m.EyeContactScore = 95
		m.EyeContact.CameraFocusPercentage = 0.8

		fb := gen.Generate(m)

		assert.Contains(t, fb.StrengthText, "straight into the camera")
	})
}

func TestTemplateGeneratorImprovementSelection(t *testing.T) {
	gen := NewTemplateGenerator()

	t.Run("posture bottom with swaying", func(t *testing.T) {
		m := fullMetrics()
		m.PostureScore = 40
		m.Posture.StabilityScore = 0.4

		fb := gen.Generate(m)

		assert.Contains(t, fb.ImprovementText, "Reduce swaying")
	})

	t.Run("eye contact bottom reading notes", func(t *testing.T) {
		m := fullMetrics()
		m.EyeContactScore = 40
		m.EyeContact.ReadingNotesPercentage = 0.4

		fb := gen.Generate(m)

		assert.Contains(t, fb.ImprovementText, "reading from notes")
	})

	t.Run("facial bottom without smiles", func(t *testing.T) {
		m := fullMetrics()
		m.FacialScore = 40
		m.Facial.SmileFrequency = 0.0

		fb := gen.Generate(m)

		assert.Contains(t, fb.ImprovementText, "smile more")
	})
}

func TestTemplateGeneratorTieRanking(t *testing.T) {
	gen := NewTemplateGenerator()

	m := fullMetrics()
	m.EyeContactScore = gesture.ScoreUnavailable
	m.EyeContact = nil
	m.FacialScore = 80
	m.PostureScore = 80
	m.Facial.SmileFrequency = 0.5
	m.Posture.StabilityScore = 0.4

	fb := gen.Generate(m)

	// Ties rank in fixed modality order, so facial supplies the strength
	// and posture the improvement on every run.
	assert.Contains(t, fb.StrengthText, "smile often")
	assert.Contains(t, fb.ImprovementText, "Reduce swaying")
	assert.Equal(t, summaryTable[comboFacial|comboPosture].good, fb.FeedbackText)
}

func TestTemplateGeneratorSingleModality(t *testing.T) {
	gen := NewTemplateGenerator()

	m := &gesture.Metrics{
		Posture: &gesture.PostureMetrics{
			AverageConfidence:   0.8,
			MovementConsistency: 0.6,
			StabilityScore:      0.9,
			FramesAnalyzed:      15,
			TotalFrames:         20,
		},
		OverallScore:    75,
		FacialScore:     gesture.ScoreUnavailable,
		PostureScore:    75,
		EyeContactScore: gesture.ScoreUnavailable,
	}

	fb := gen.Generate(m)

	require.NotNil(t, fb)
	assert.Equal(t, summaryTable[comboPosture].good, fb.FeedbackText)
	assert.Contains(t, fb.StrengthText, "calmly")
	assert.Contains(t, fb.ImprovementText, "shoulders")
	assert.True(t, fb.IsTemplateFallback)
}

func TestTemplateGeneratorNoModalities(t *testing.T) {
	gen := NewTemplateGenerator()

	tests := []struct {
		name string
		m    *gesture.Metrics
	}{
		{"nil metrics", nil},
		{"all unavailable", &gesture.Metrics{
			OverallScore:    gesture.ScoreUnavailable,
			FacialScore:     gesture.ScoreUnavailable,
			PostureScore:    gesture.ScoreUnavailable,
			EyeContactScore: gesture.ScoreUnavailable,
		}},
		{"all zero", &gesture.Metrics{
			Facial: &gesture.FacialMetrics{TotalFrames: 20},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := gen.Generate(tt.m)

			require.NotNil(t, fb)
			assert.Equal(t, genericSummary, fb.FeedbackText)
			assert.Equal(t, genericStrength, fb.StrengthText)
			assert.Equal(t, genericImprovement, fb.ImprovementText)
			assert.True(t, fb.IsTemplateFallback)
		})
	}
}
