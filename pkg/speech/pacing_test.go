package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gestrec-server/pkg/config"
)

func pacingTestConfig() *config.SpeechConfig {
	return &config.SpeechConfig{
		IdealWPM:   140,
		FloorScore: 50,
	}
}

func TestNewPacingIdealRate(t *testing.T) {
	// 140 words over one minute is exactly the ideal rate
	pacing := NewPacing(&Transcript{WordCount: 140, DurationSeconds: 60}, pacingTestConfig())

	assert.NotNil(t, pacing, "Pacing should be computed")
	assert.InDelta(t, 140.0, pacing.WordsPerMinute, 0.001, "WPM should match the word count over one minute")
	assert.Equal(t, 100, pacing.Score, "Ideal rate should score 100")
}

func TestNewPacingKnownScores(t *testing.T) {
	tests := []struct {
		name      string
		wordCount int
		duration  float64
		wantWPM   float64
		wantScore int
	}{
		{"slightly slow", 63, 30, 126, 95},
		{"slightly fast", 84, 30, 168, 90},
		{"slow", 60, 30, 120, 93},
		{"fast", 85, 30, 170, 89},
		{"silent", 0, 30, 0, 50},
		{"rushed", 150, 30, 300, 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pacing := NewPacing(&Transcript{WordCount: tc.wordCount, DurationSeconds: tc.duration}, pacingTestConfig())

			assert.InDelta(t, tc.wantWPM, pacing.WordsPerMinute, 0.001, "WPM mismatch")
			assert.Equal(t, tc.wantScore, pacing.Score, "Score mismatch")
		})
	}
}

func TestNewPacingMonotonicAroundIdeal(t *testing.T) {
	cfg := pacingTestConfig()

	// Scores should not decrease while approaching the ideal rate from below
	prev := -1
	for wpm := 0; wpm <= 140; wpm += 10 {
		pacing := NewPacing(&Transcript{WordCount: wpm, DurationSeconds: 60}, cfg)
		assert.GreaterOrEqual(t, pacing.Score, prev, "Score should not decrease approaching the ideal rate (wpm=%d)", wpm)
		prev = pacing.Score
	}

	// And should not increase while moving away from it
	prev = 101
	for wpm := 140; wpm <= 300; wpm += 10 {
		pacing := NewPacing(&Transcript{WordCount: wpm, DurationSeconds: 60}, cfg)
		assert.LessOrEqual(t, pacing.Score, prev, "Score should not increase past the ideal rate (wpm=%d)", wpm)
		prev = pacing.Score
	}
}

func TestNewPacingBounds(t *testing.T) {
	cfg := pacingTestConfig()

	for wpm := 0; wpm <= 400; wpm += 25 {
		pacing := NewPacing(&Transcript{WordCount: wpm, DurationSeconds: 60}, cfg)
		assert.GreaterOrEqual(t, pacing.Score, cfg.FloorScore, "Score should never drop below the floor (wpm=%d)", wpm)
		assert.LessOrEqual(t, pacing.Score, 100, "Score should never exceed 100 (wpm=%d)", wpm)
	}
}

func TestNewPacingZeroDuration(t *testing.T) {
	pacing := NewPacing(&Transcript{WordCount: 50, DurationSeconds: 0}, pacingTestConfig())

	assert.Equal(t, 0.0, pacing.WordsPerMinute, "Zero duration should yield zero WPM")
	assert.Equal(t, 50, pacing.Score, "Zero WPM should score the floor")
}

func TestNewPacingNilTranscript(t *testing.T) {
	assert.Nil(t, NewPacing(nil, pacingTestConfig()), "Nil transcript should yield nil pacing")
}

func TestNewPacingDeterministic(t *testing.T) {
	cfg := pacingTestConfig()
	transcript := &Transcript{WordCount: 72, DurationSeconds: 33.5}

	first := NewPacing(transcript, cfg)
	second := NewPacing(transcript, cfg)

	assert.Equal(t, first, second, "Identical transcripts should produce identical pacing")
}
