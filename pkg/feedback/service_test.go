package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestrec-server/pkg/gesture"
)

type stubBackend struct {
	feedback *gesture.Feedback
	err      error
	calls    int
}

func (s *stubBackend) Generate(ctx context.Context, m *gesture.Metrics) (*gesture.Feedback, error) {
	s.calls++
	return s.feedback, s.err
}

func TestServiceUsesBackend(t *testing.T) {
	backend := &stubBackend{feedback: &gesture.Feedback{FeedbackText: "model text"}}
	service := NewService(logrus.New(), backend)

	fb, err := service.Generate(context.Background(), fullMetrics())

	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, "model text", fb.FeedbackText)
	assert.False(t, fb.IsTemplateFallback)
	assert.Equal(t, 1, backend.calls)
}

func TestServiceFallsBackOnBackendError(t *testing.T) {
	backend := &stubBackend{err: errors.New("backend unreachable")}
	service := NewService(logrus.New(), backend)

	m := fullMetrics()
	fb, err := service.Generate(context.Background(), m)

	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.True(t, fb.IsTemplateFallback)
	assert.Equal(t, *NewTemplateGenerator().Generate(m), *fb)
}

func TestServiceTemplateOnly(t *testing.T) {
	service := NewService(logrus.New(), nil)

	fb, err := service.Generate(context.Background(), fullMetrics())

	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.True(t, fb.IsTemplateFallback)
}

func TestServiceNeverFails(t *testing.T) {
	services := []*Service{
		NewService(logrus.New(), nil),
		NewService(logrus.New(), &stubBackend{err: errors.New("timeout")}),
		NewService(logrus.New(), &stubBackend{feedback: &gesture.Feedback{FeedbackText: "ok"}}),
	}

	for _, service := range services {
		fb, err := service.Generate(context.Background(), nil)

		require.NoError(t, err)
		require.NotNil(t, fb)
	}
}
