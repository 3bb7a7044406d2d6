package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
	"gestrec-server/pkg/gesture"
	"gestrec-server/pkg/version"
)

// ErrNoAPIKey is returned when the generative backend is enabled but no API
// key was configured.
var ErrNoAPIKey = errors.New("no feedback API key configured")

const systemPrompt = "You are a presentation coach reviewing body-language scores from a recorded video. " +
	"Reply with a JSON object containing exactly three string fields: " +
	"\"feedback\" (a two to three sentence overall assessment), " +
	"\"strength\" (one sentence on the strongest aspect), and " +
	"\"improvement\" (one sentence of specific, actionable advice)."

// GenerativeClient asks an OpenAI-compatible chat-completions backend to
// write coaching text from the scored metrics.
type GenerativeClient struct {
	logger *logrus.Logger
	config *config.FeedbackConfig
	client *http.Client
}

// NewGenerativeClient creates a client for the configured backend.
func NewGenerativeClient(logger *logrus.Logger, cfg *config.FeedbackConfig) *GenerativeClient {
	return &GenerativeClient{
		logger: logger,
		config: cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Initialize verifies the client has credentials to reach the backend.
func (c *GenerativeClient) Initialize() error {
	if c.config.APIKey == "" {
		return ErrNoAPIKey
	}
	c.logger.WithFields(logrus.Fields{
		"base_url": c.config.BaseURL,
		"model":    c.config.Model,
	}).Info("Generative feedback client initialized")
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the metrics to the chat-completions endpoint and parses the
// reply into feedback text.
func (c *GenerativeClient) Generate(ctx context.Context, m *gesture.Metrics) (*gesture.Feedback, error) {
	if c.config.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(m)},
		},
		MaxTokens: c.config.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feedback request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call feedback backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feedback backend returned non-200 status code: %d", resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode feedback response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("feedback backend returned no choices")
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("feedback backend returned an empty completion")
	}

	c.logger.WithField("model", c.config.Model).Debug("Generative feedback received")
	return parseFeedback(content), nil
}

// buildPrompt renders the metrics as plain lines the model can reason about.
// Unavailable modalities are omitted rather than sent as sentinel values.
func buildPrompt(m *gesture.Metrics) string {
	var b strings.Builder
	b.WriteString("Here are the body-language scores for a recorded presentation (0-100, higher is better):\n")
	if m == nil {
		b.WriteString("No scores are available for this video.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Overall score: %d\n", m.OverallScore)
	if m.Facial != nil {
		fmt.Fprintf(&b, "Facial expression score: %d (smile frequency %.2f, expression variety %.2f, engagement %.2f)\n",
			m.FacialScore, m.Facial.SmileFrequency, m.Facial.ExpressionVariety, m.Facial.AverageEngagement)
	}
	if m.Posture != nil {
		fmt.Fprintf(&b, "Posture score: %d (confidence %.2f, movement consistency %.2f, stability %.2f)\n",
			m.PostureScore, m.Posture.AverageConfidence, m.Posture.MovementConsistency, m.Posture.StabilityScore)
	}
	if m.EyeContact != nil {
		fmt.Fprintf(&b, "Eye contact score: %d (camera focus %.0f%%, looking down %.0f%%, gaze stability %.2f)\n",
			m.EyeContactScore, m.EyeContact.CameraFocusPercentage*100, m.EyeContact.ReadingNotesPercentage*100, m.EyeContact.GazeStability)
	}
	return b.String()
}

// parseFeedback extracts the three text fields from the model reply. Replies
// that are not the requested JSON shape are kept whole as the feedback text.
func parseFeedback(content string) *gesture.Feedback {
	var parsed struct {
		Feedback    string `json:"feedback"`
		Strength    string `json:"strength"`
		Improvement string `json:"improvement"`
	}
	if err := json.Unmarshal([]byte(trimCodeFence(content)), &parsed); err == nil && parsed.Feedback != "" {
		return &gesture.Feedback{
			FeedbackText:    parsed.Feedback,
			StrengthText:    parsed.Strength,
			ImprovementText: parsed.Improvement,
		}
	}
	return &gesture.Feedback{FeedbackText: content}
}

// trimCodeFence strips a markdown code fence some models wrap JSON in.
func trimCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
