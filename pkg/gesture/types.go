// Package gesture implements the body-language scoring engine: per-frame
// facial and posture signal extraction, aggregation into summary statistics,
// score fusion and the pipeline that runs it all over a sampled video.
package gesture

import (
	"time"

	"gestrec-server/pkg/speech"
)

// ScoreUnavailable marks a modality score that could not be computed. The
// modality is excluded from fusion rather than scored as zero.
const ScoreUnavailable = -1

// GazeDirection is the classified viewing direction relative to the camera
type GazeDirection string

const (
	GazeCenter  GazeDirection = "center"
	GazeUp      GazeDirection = "up"
	GazeDown    GazeDirection = "down"
	GazeLeft    GazeDirection = "left"
	GazeRight   GazeDirection = "right"
	GazeUnknown GazeDirection = "unknown"
)

// FacialSignal is the per-frame facial read. Detected=false is a recorded
// miss, not an error; the zero values of the remaining fields are never
// consumed for missed frames.
type FacialSignal struct {
	Detected       bool
	Smiling        bool
	Expressiveness float64
	Engagement     float64
	Gaze           GazeDirection
}

// PostureSignal is the per-frame posture read; CenterX/CenterY are the body
// center in normalized image coordinates
type PostureSignal struct {
	Detected   bool
	Confidence float64
	CenterX    float64
	CenterY    float64
}

// FacialMetrics summarizes the facial signal sequence
type FacialMetrics struct {
	SmileFrequency    float64 `json:"smileFrequency"`
	ExpressionVariety float64 `json:"expressionVariety"`
	AverageEngagement float64 `json:"averageEngagement"`
	FramesAnalyzed    int     `json:"framesAnalyzed"`
	TotalFrames       int     `json:"totalFrames"`
}

// DetectionRate returns the fraction of sampled frames with a face
func (m *FacialMetrics) DetectionRate() float64 {
	if m == nil || m.TotalFrames == 0 {
		return 0
	}
	return float64(m.FramesAnalyzed) / float64(m.TotalFrames)
}

// PostureMetrics summarizes the posture signal sequence
type PostureMetrics struct {
	AverageConfidence   float64 `json:"averageConfidence"`
	MovementConsistency float64 `json:"movementConsistency"`
	StabilityScore      float64 `json:"stabilityScore"`
	FramesAnalyzed      int     `json:"framesAnalyzed"`
	TotalFrames         int     `json:"totalFrames"`
}

// DetectionRate returns the fraction of sampled frames with a body
func (m *PostureMetrics) DetectionRate() float64 {
	if m == nil || m.TotalFrames == 0 {
		return 0
	}
	return float64(m.FramesAnalyzed) / float64(m.TotalFrames)
}

// EyeContactMetrics summarizes gaze behavior over the frames with a facial
// signal
type EyeContactMetrics struct {
	CameraFocusPercentage  float64 `json:"cameraFocusPercentage"`
	ReadingNotesPercentage float64 `json:"readingNotesPercentage"`
	GazeStability          float64 `json:"gazeStability"`
	FramesAnalyzed         int     `json:"framesAnalyzed"`
	TotalFrames            int     `json:"totalFrames"`
}

// Metrics is the final scoring artifact. It is immutable once produced; the
// field names and ranges form the stable contract consumers depend on.
type Metrics struct {
	Facial     *FacialMetrics     `json:"facialMetrics"`
	Posture    *PostureMetrics    `json:"postureMetrics"`
	EyeContact *EyeContactMetrics `json:"eyeContactMetrics,omitempty"`

	OverallScore    int `json:"overallScore"`
	FacialScore     int `json:"facialScore"`
	PostureScore    int `json:"postureScore"`
	EyeContactScore int `json:"eyeContactScore"`
}

// Feedback is coaching text for one analysis, produced either by the
// generative backend or by the deterministic template fallback
type Feedback struct {
	FeedbackText       string `json:"feedbackText"`
	StrengthText       string `json:"strengthText"`
	ImprovementText    string `json:"improvementText"`
	IsTemplateFallback bool   `json:"isTemplateFallback"`
}

// Report is the full result of analyzing one video
type Report struct {
	ID              string         `json:"id"`
	VideoPath       string         `json:"videoPath"`
	DurationSeconds float64        `json:"durationSeconds"`
	SampleFPS       float64        `json:"sampleFps"`
	FramesSampled   int            `json:"framesSampled"`
	Metrics         *Metrics       `json:"metrics"`
	Pacing          *speech.Pacing `json:"pacing,omitempty"`
	Feedback        *Feedback      `json:"feedback,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	ProcessingMS    int64          `json:"processingMs"`
}
