// Package speech provides batch speech-to-text transcription and the
// pacing analysis derived from it. Transcription feeds exactly one
// downstream consumer, the words-per-minute pacing score, so the
// transcriber contract is deliberately small: one audio file in, one
// transcript out.
package speech

import (
	"context"
)

// Transcript is the result of transcribing one audio file
type Transcript struct {
	Text            string  `json:"text"`
	WordCount       int     `json:"wordCount"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Transcriber defines the interface for batch speech-to-text providers
type Transcriber interface {
	// Initialize sets up the provider with its configuration
	Initialize() error

	// Name returns the provider name
	Name() string

	// Transcribe converts the audio file at audioPath to text. The file is
	// mono LINEAR16 WAV at the configured sample rate.
	Transcribe(ctx context.Context, audioPath string) (*Transcript, error)
}
