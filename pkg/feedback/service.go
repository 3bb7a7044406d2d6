package feedback

import (
	"context"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/gesture"
	"gestrec-server/pkg/metrics"
)

// Backend is a remote text generator for rich feedback.
type Backend interface {
	Generate(ctx context.Context, m *gesture.Metrics) (*gesture.Feedback, error)
}

// Service produces coaching feedback for a scored analysis. It prefers the
// generative backend when one is attached and degrades to the deterministic
// template on any failure, so feedback generation itself never fails.
type Service struct {
	logger     *logrus.Logger
	generative Backend
	template   *TemplateGenerator
}

// NewService creates a feedback service. A nil backend means template-only.
func NewService(logger *logrus.Logger, generative Backend) *Service {
	return &Service{
		logger:     logger,
		generative: generative,
		template:   NewTemplateGenerator(),
	}
}

// Generate implements gesture.FeedbackGenerator. The returned error is always
// nil; backend failures are logged and answered with template text.
func (s *Service) Generate(ctx context.Context, m *gesture.Metrics) (*gesture.Feedback, error) {
	if s.generative != nil {
		fb, err := s.generative.Generate(ctx, m)
		if err == nil {
			metrics.RecordFeedback("generative", "completed")
			return fb, nil
		}
		s.logger.WithError(err).Warn("Generative feedback failed, using template fallback")
		metrics.RecordFeedback("generative", "failed")
	}

	fb := s.template.Generate(m)
	metrics.RecordFeedback("template", "completed")
	return fb, nil
}
