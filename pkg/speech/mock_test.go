package speech

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"gestrec-server/pkg/config"
)

func TestMockTranscriberDefaults(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	transcriber := NewMockTranscriber(logger)
	assert.NoError(t, transcriber.Initialize(), "Initialize should not fail")
	assert.Equal(t, "mock", transcriber.Name(), "Name should be mock")

	transcript, err := transcriber.Transcribe(context.Background(), "unused.wav")
	assert.NoError(t, err, "Transcribe should not fail")
	assert.NotNil(t, transcript, "Transcript should be returned")
	assert.Equal(t, len(strings.Fields(transcript.Text)), transcript.WordCount, "Word count should match the text")
	assert.Greater(t, transcript.DurationSeconds, 0.0, "Default duration should be positive")

	// The canned transcript lands near conversational pace
	pacing := NewPacing(transcript, &config.SpeechConfig{IdealWPM: 140, FloorScore: 50})
	assert.GreaterOrEqual(t, pacing.Score, 90, "Canned transcript should score near the ideal rate")
}

func TestMockTranscriberDeterministic(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	transcriber := NewMockTranscriber(logger)

	first, err := transcriber.Transcribe(context.Background(), "a.wav")
	assert.NoError(t, err)
	second, err := transcriber.Transcribe(context.Background(), "b.wav")
	assert.NoError(t, err)

	assert.Equal(t, first, second, "Mock transcripts should be identical across calls")
}

func TestMockTranscriberScripted(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	transcriber := NewMockTranscriber(logger)
	transcriber.Text = "one two three four five six"
	transcriber.DurationSeconds = 3

	transcript, err := transcriber.Transcribe(context.Background(), "unused.wav")
	assert.NoError(t, err)
	assert.Equal(t, 6, transcript.WordCount, "Scripted word count should be honored")
	assert.Equal(t, 3.0, transcript.DurationSeconds, "Scripted duration should be honored")
}

func TestMockTranscriberCanceledContext(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	transcriber := NewMockTranscriber(logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transcript, err := transcriber.Transcribe(ctx, "unused.wav")
	assert.Nil(t, transcript, "No transcript should be returned after cancellation")
	assert.ErrorIs(t, err, context.Canceled, "Error should be the context error")
}
