// Package feedback turns a scored analysis into coaching text. A generative
// backend produces the rich variant; the template generator in this file is
// the deterministic fallback used whenever that backend is disabled or fails.
package feedback

import (
	"sort"

	"gestrec-server/pkg/gesture"
)

// Sub-metric thresholds that pick the phrasing inside a strength or
// improvement sentence.
const (
	strengthSmileFrequency = 0.3
	strengthVariety        = 0.3
	strengthStability      = 0.8
	strengthConfidence     = 0.7
	strengthCameraFocus    = 0.7
	strengthGazeStability  = 0.8
	improveSmileFrequency  = 0.1
	improveVariety         = 0.2
	improveStability       = 0.6
	improveConsistency     = 0.5
	improveReadingNotes    = 0.3
	improveCameraFocus     = 0.5
)

type modality int

const (
	modalityFacial modality = iota
	modalityPosture
	modalityEyeContact
)

const (
	comboFacial  = 1 << modalityFacial
	comboPosture = 1 << modalityPosture
	comboEye     = 1 << modalityEyeContact
)

type summaryEntry struct {
	excellent string
	good      string
	needsWork string
}

// summaryTable is keyed by the bitmask of modalities with a positive score.
// One fixed sentence per combination and score bucket.
var summaryTable = map[int]summaryEntry{
	comboFacial | comboPosture | comboEye: {
		excellent: "Excellent delivery. Your facial expressions, posture, and eye contact all came across clearly and confidently on camera.",
		good:      "Good delivery overall. Your expressions, posture, and eye contact were all visible and mostly effective, with room to sharpen the details below.",
		needsWork: "Your expressions, posture, and eye contact were all visible on camera, but each needs attention to lift the overall impression.",
	},
	comboFacial | comboPosture: {
		excellent: "Excellent delivery. Your facial expressions and posture both projected confidence throughout the video.",
		good:      "Good delivery overall. Your facial expressions and posture were solid, with a few details worth polishing.",
		needsWork: "Your facial expressions and posture both came through on camera, but both need attention to strengthen your presence.",
	},
	comboFacial | comboEye: {
		excellent: "Excellent delivery. Your facial expressions and eye contact kept the camera engaged from start to finish.",
		good:      "Good delivery overall. Your expressions and eye contact worked well, though there is room to tighten them.",
		needsWork: "Your expressions and eye contact were visible but inconsistent; focusing on them will noticeably improve your delivery.",
	},
	comboPosture | comboEye: {
		excellent: "Excellent delivery. Your posture and eye contact projected steadiness and attention throughout.",
		good:      "Good delivery overall. Your posture and eye contact held up well, with some room to improve.",
		needsWork: "Your posture and eye contact came through on camera but were uneven; steadying both will lift your delivery.",
	},
	comboFacial: {
		excellent: "Excellent facial delivery. Your expressions carried the video with warmth and energy.",
		good:      "Good facial delivery. Your expressions came through clearly, with room to add variety and energy.",
		needsWork: "Your face was visible throughout, but your expressions need more warmth and energy to hold attention.",
	},
	comboPosture: {
		excellent: "Excellent physical presence. Your posture stayed upright and composed throughout the video.",
		good:      "Good physical presence. Your posture was mostly steady, with a few moments worth tightening.",
		needsWork: "Your body was visible throughout, but your posture needs attention to project more confidence.",
	},
	comboEye: {
		excellent: "Excellent eye contact. You held the camera's attention steadily throughout the video.",
		good:      "Good eye contact overall. You faced the camera most of the time, with room to settle your gaze further.",
		needsWork: "Your eye contact was inconsistent; holding the lens more steadily will make you look more confident.",
	},
}

// Presence-only text for when nothing scored above zero.
const (
	genericSummary     = "We could not score this video reliably. Make sure your face and upper body are clearly visible and well lit, then record again."
	genericStrength    = "You completed a full recording, which is the right way to practice."
	genericImprovement = "Position the camera at eye level with your face and shoulders in frame so your delivery can be scored."
)

// TemplateGenerator produces coaching text from metrics alone. It is pure:
// identical metrics yield byte-identical output, and it never fails.
type TemplateGenerator struct{}

// NewTemplateGenerator creates the deterministic fallback generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

type rankedModality struct {
	id    modality
	score int
}

// Generate builds strength, improvement, and summary text from the scored
// metrics. The strongest detected modality supplies the strength sentence and
// the weakest supplies the improvement sentence.
func (g *TemplateGenerator) Generate(m *gesture.Metrics) *gesture.Feedback {
	detected := detectedModalities(m)
	if len(detected) == 0 {
		return &gesture.Feedback{
			FeedbackText:       genericSummary,
			StrengthText:       genericStrength,
			ImprovementText:    genericImprovement,
			IsTemplateFallback: true,
		}
	}

	combo := 0
	for _, d := range detected {
		combo |= 1 << d.id
	}
	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].score > detected[j].score
	})

	entry := summaryTable[combo]
	summary := entry.needsWork
	switch {
	case m.OverallScore >= 85:
		summary = entry.excellent
	case m.OverallScore >= 70:
		summary = entry.good
	}

	return &gesture.Feedback{
		FeedbackText:       summary,
		StrengthText:       strengthSentence(detected[0].id, m),
		ImprovementText:    improvementSentence(detected[len(detected)-1].id, m),
		IsTemplateFallback: true,
	}
}

// detectedModalities returns the modalities with a positive score in a fixed
// order, so that ties rank deterministically.
func detectedModalities(m *gesture.Metrics) []rankedModality {
	if m == nil {
		return nil
	}
	var detected []rankedModality
	if m.FacialScore > 0 {
		detected = append(detected, rankedModality{modalityFacial, m.FacialScore})
	}
	if m.PostureScore > 0 {
		detected = append(detected, rankedModality{modalityPosture, m.PostureScore})
	}
	if m.EyeContactScore > 0 {
		detected = append(detected, rankedModality{modalityEyeContact, m.EyeContactScore})
	}
	return detected
}

func strengthSentence(id modality, m *gesture.Metrics) string {
	switch id {
	case modalityFacial:
		switch {
		case m.Facial != nil && m.Facial.SmileFrequency > strengthSmileFrequency:
			return "You smile often, which reads as warm and approachable on camera."
		case m.Facial != nil && m.Facial.ExpressionVariety > strengthVariety:
			return "You vary your expressions instead of holding one look, which keeps your delivery lively."
		default:
			return "Your face stays engaged and readable throughout the video."
		}
	case modalityPosture:
		switch {
		case m.Posture != nil && m.Posture.StabilityScore > strengthStability:
			return "You hold your position calmly, without distracting swaying or drifting."
		case m.Posture != nil && m.Posture.AverageConfidence > strengthConfidence:
			return "You keep an upright, level posture that projects confidence."
		default:
			return "Your posture stays consistent enough to support your delivery."
		}
	default:
		switch {
		case m.EyeContact != nil && m.EyeContact.CameraFocusPercentage > strengthCameraFocus:
			return "You look straight into the camera for most of the video, which builds a strong connection."
		case m.EyeContact != nil && m.EyeContact.GazeStability > strengthGazeStability:
			return "Your gaze stays settled rather than darting, which reads as composed."
		default:
			return "You return your attention to the camera regularly."
		}
	}
}

func improvementSentence(id modality, m *gesture.Metrics) string {
	switch id {
	case modalityFacial:
		switch {
		case m.Facial != nil && m.Facial.SmileFrequency <= improveSmileFrequency:
			return "Try to smile more, especially when you open and close; your expression reads as flat for long stretches."
		case m.Facial != nil && m.Facial.ExpressionVariety < improveVariety:
			return "Vary your expressions more; holding one look for too long makes the delivery feel monotone."
		default:
			return "Bring more energy to your face so your interest in the topic shows."
		}
	case modalityPosture:
		switch {
		case m.Posture != nil && m.Posture.StabilityScore <= improveStability:
			return "Reduce swaying and shifting; plant yourself and let your hands carry the movement."
		case m.Posture != nil && m.Posture.MovementConsistency < improveConsistency:
			return "Smooth out your movement; abrupt shifts pull attention away from your words."
		default:
			return "Square your shoulders to the camera and sit or stand tall."
		}
	default:
		switch {
		case m.EyeContact != nil && m.EyeContact.ReadingNotesPercentage > improveReadingNotes:
			return "You look down frequently, which reads as reading from notes; rehearse until you need fewer glances."
		case m.EyeContact != nil && m.EyeContact.CameraFocusPercentage < improveCameraFocus:
			return "Look into the lens more often; much of the video your attention is somewhere off camera."
		default:
			return "Settle your gaze on the lens instead of letting it wander."
		}
	}
}
