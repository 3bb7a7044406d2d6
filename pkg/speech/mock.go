package speech

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Default transcript used when the caller does not script one. Roughly
// conversational pace over the default duration.
var mockSentences = []string{
	"Welcome everyone and thank you for joining today.",
	"In this presentation we will walk through the quarterly results.",
	"The team exceeded expectations in almost every area.",
	"Let me start with a quick overview of where we stand.",
}

const mockDurationSeconds = 15.0

// MockTranscriber implements a deterministic mock transcriber for testing
type MockTranscriber struct {
	logger *logrus.Logger

	// Scripted result; zero values fall back to the canned transcript
	Text            string
	DurationSeconds float64
}

// NewMockTranscriber creates a new mock transcriber
func NewMockTranscriber(logger *logrus.Logger) *MockTranscriber {
	return &MockTranscriber{
		logger: logger,
	}
}

// Name returns the provider name
func (m *MockTranscriber) Name() string {
	return "mock"
}

// Initialize initializes the mock transcriber
func (m *MockTranscriber) Initialize() error {
	m.logger.Info("Mock transcription provider initialized")
	return nil
}

// Transcribe returns the scripted transcript without reading the audio file
func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	text := m.Text
	if text == "" {
		text = strings.Join(mockSentences, " ")
	}
	duration := m.DurationSeconds
	if duration <= 0 {
		duration = mockDurationSeconds
	}

	transcript := &Transcript{
		Text:            text,
		WordCount:       len(strings.Fields(text)),
		DurationSeconds: duration,
	}

	m.logger.WithFields(logrus.Fields{
		"audio_path": audioPath,
		"word_count": transcript.WordCount,
	}).Debug("Mock transcription generated")
	return transcript, nil
}
