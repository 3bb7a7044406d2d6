package speech

import (
	"math"

	"gestrec-server/pkg/config"
)

// Pacing summarizes delivery speed over the spoken portion of a video
type Pacing struct {
	WordCount       int     `json:"wordCount"`
	DurationSeconds float64 `json:"durationSeconds"`
	WordsPerMinute  float64 `json:"wordsPerMinute"`
	Score           int     `json:"score"`
}

// NewPacing derives the words-per-minute rate and pacing score from a
// transcript. The score peaks at the configured ideal rate and falls
// linearly toward the floor as the rate diverges in either direction, so
// speaking twice as fast and not speaking at all both land on the floor.
func NewPacing(t *Transcript, cfg *config.SpeechConfig) *Pacing {
	if t == nil {
		return nil
	}

	wpm := 0.0
	if t.DurationSeconds > 0 {
		wpm = float64(t.WordCount) / (t.DurationSeconds / 60.0)
	}

	return &Pacing{
		WordCount:       t.WordCount,
		DurationSeconds: t.DurationSeconds,
		WordsPerMinute:  wpm,
		Score:           pacingScore(wpm, cfg.IdealWPM, float64(cfg.FloorScore)),
	}
}

// pacingScore maps a words-per-minute rate onto [floor, 100]
func pacingScore(wpm, ideal, floor float64) int {
	score := 100.0 - math.Abs(wpm-ideal)*(100.0-floor)/ideal
	if score < floor {
		score = floor
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}
