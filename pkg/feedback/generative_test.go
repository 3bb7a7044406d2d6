package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestrec-server/pkg/config"
)

func feedbackTestConfig(baseURL string) *config.FeedbackConfig {
	return &config.FeedbackConfig{
		GenerativeEnabled: true,
		BaseURL:           baseURL,
		APIKey:            "test-key",
		Model:             "gpt-4o-mini",
		RequestTimeout:    5 * time.Second,
		MaxTokens:         400,
	}
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	reply := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(reply))
}

func TestGenerativeClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4o-mini", payload.Model)
		assert.Equal(t, 400, payload.MaxTokens)
		require.Len(t, payload.Messages, 2)
		assert.Equal(t, "system", payload.Messages[0].Role)
		assert.Contains(t, payload.Messages[1].Content, "Overall score: 80")
		assert.Contains(t, payload.Messages[1].Content, "Facial expression score: 78")

		chatReply(t, w, `{"feedback":"Nice work overall.","strength":"Great smiles.","improvement":"Steady your gaze."}`)
	}))
	defer server.Close()

	client := NewGenerativeClient(logrus.New(), feedbackTestConfig(server.URL))
	require.NoError(t, client.Initialize())

	fb, err := client.Generate(context.Background(), fullMetrics())

	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, "Nice work overall.", fb.FeedbackText)
	assert.Equal(t, "Great smiles.", fb.StrengthText)
	assert.Equal(t, "Steady your gaze.", fb.ImprovementText)
	assert.False(t, fb.IsTemplateFallback)
}

func TestGenerativeClientCodeFencedReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "```json\n{\"feedback\":\"Solid delivery.\",\"strength\":\"Good posture.\",\"improvement\":\"Smile more.\"}\n```")
	}))
	defer server.Close()

	client := NewGenerativeClient(logrus.New(), feedbackTestConfig(server.URL))

	fb, err := client.Generate(context.Background(), fullMetrics())

	require.NoError(t, err)
	assert.Equal(t, "Solid delivery.", fb.FeedbackText)
	assert.Equal(t, "Good posture.", fb.StrengthText)
}

func TestGenerativeClientPlainTextReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "You presented with good energy and a steady posture.")
	}))
	defer server.Close()

	client := NewGenerativeClient(logrus.New(), feedbackTestConfig(server.URL))

	fb, err := client.Generate(context.Background(), fullMetrics())

	require.NoError(t, err)
	assert.Equal(t, "You presented with good energy and a steady posture.", fb.FeedbackText)
	assert.Empty(t, fb.StrengthText)
	assert.Empty(t, fb.ImprovementText)
}

func TestGenerativeClientNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGenerativeClient(logrus.New(), feedbackTestConfig(server.URL))

	fb, err := client.Generate(context.Background(), fullMetrics())

	require.Error(t, err)
	assert.Nil(t, fb)
	assert.Contains(t, err.Error(), "non-200")
}

func TestGenerativeClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewGenerativeClient(logrus.New(), feedbackTestConfig(server.URL))

	_, err := client.Generate(context.Background(), fullMetrics())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestGenerativeClientNoAPIKey(t *testing.T) {
	cfg := feedbackTestConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	client := NewGenerativeClient(logrus.New(), cfg)

	assert.ErrorIs(t, client.Initialize(), ErrNoAPIKey)

	_, err := client.Generate(context.Background(), fullMetrics())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestBuildPromptOmitsMissingModalities(t *testing.T) {
	m := fullMetrics()
	m.Posture = nil
	m.EyeContact = nil

	prompt := buildPrompt(m)

	assert.Contains(t, prompt, "Facial expression score")
	assert.NotContains(t, prompt, "Posture score")
	assert.NotContains(t, prompt, "Eye contact score")
}

func TestTrimCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `{"feedback":"x"}`, `{"feedback":"x"}`},
		{"json fence", "```json\n{\"feedback\":\"x\"}\n```", `{"feedback":"x"}`},
		{"bare fence", "```\n{\"feedback\":\"x\"}\n```", `{"feedback":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trimCodeFence(tt.input))
		})
	}
}
