package speech

import (
	"context"
	"fmt"
	"os"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"gestrec-server/pkg/config"
)

// GoogleTranscriber implements the Transcriber interface using Google Cloud
// Speech-to-Text batch recognition
type GoogleTranscriber struct {
	logger *logrus.Logger
	client *gspeech.Client
	config *config.SpeechConfig
}

// NewGoogleTranscriber creates a new Google Speech-to-Text transcriber
func NewGoogleTranscriber(logger *logrus.Logger, cfg *config.SpeechConfig) *GoogleTranscriber {
	return &GoogleTranscriber{
		logger: logger,
		config: cfg,
	}
}

// Name returns the provider name
func (g *GoogleTranscriber) Name() string {
	return "google"
}

// Initialize creates the Google Speech client
func (g *GoogleTranscriber) Initialize() error {
	if g.config == nil {
		return fmt.Errorf("speech configuration is required")
	}

	var clientOptions []option.ClientOption

	// API key takes precedence over a credentials file
	if g.config.GoogleAPIKey != "" {
		clientOptions = append(clientOptions, option.WithAPIKey(g.config.GoogleAPIKey))
		g.logger.Debug("Using Google Speech API key authentication")
	} else if g.config.GoogleCredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(g.config.GoogleCredentialsFile))
		g.logger.WithField("credentials_file", g.config.GoogleCredentialsFile).Debug("Using Google Speech credentials file")
	} else {
		g.logger.Warn("No Google Speech credentials provided (API key or credentials file)")
		return ErrNoCredentials
	}

	var err error
	g.client, err = gspeech.NewClient(context.Background(), clientOptions...)
	if err != nil {
		g.logger.WithError(err).Error("Failed to create Google Speech client")
		return fmt.Errorf("failed to create Google Speech client: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"language":    g.config.Language,
		"sample_rate": g.config.SampleRate,
	}).Info("Google Speech-to-Text client initialized successfully")
	return nil
}

// Transcribe sends the WAV file at audioPath through batch recognition
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	if g.client == nil {
		return nil, ErrInitializationFailed
	}

	content, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(g.config.SampleRate),
		LanguageCode:               g.config.Language,
		EnableAutomaticPunctuation: true,
	}
	audio := &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
	}

	// Synchronous Recognize rejects audio over one minute, so longer clips
	// go through the long-running variant.
	var results []*speechpb.SpeechRecognitionResult
	if len(content) <= 60*g.config.SampleRate*2 {
		resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
			Config: recognitionConfig,
			Audio:  audio,
		})
		if err != nil {
			g.logger.WithError(err).Error("Google Speech recognition failed")
			return nil, fmt.Errorf("speech recognition failed: %w", err)
		}
		results = resp.Results
	} else {
		op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
			Config: recognitionConfig,
			Audio:  audio,
		})
		if err != nil {
			g.logger.WithError(err).Error("Failed to start Google Speech long-running recognition")
			return nil, fmt.Errorf("speech recognition failed: %w", err)
		}
		resp, err := op.Wait(ctx)
		if err != nil {
			g.logger.WithError(err).Error("Google Speech long-running recognition failed")
			return nil, fmt.Errorf("speech recognition failed: %w", err)
		}
		results = resp.Results
	}

	transcript := buildTranscript(results)
	g.logger.WithFields(logrus.Fields{
		"word_count":       transcript.WordCount,
		"duration_seconds": transcript.DurationSeconds,
	}).Info("Transcription completed")
	return transcript, nil
}

// buildTranscript joins the top alternative of each result and takes the
// latest result end time as the spoken duration
func buildTranscript(results []*speechpb.SpeechRecognitionResult) *Transcript {
	var sb strings.Builder
	var seconds float64
	for _, result := range results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(result.Alternatives[0].Transcript)
		if result.ResultEndTime != nil {
			if end := result.ResultEndTime.AsDuration().Seconds(); end > seconds {
				seconds = end
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	return &Transcript{
		Text:            text,
		WordCount:       len(strings.Fields(text)),
		DurationSeconds: seconds,
	}
}
