package gesture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
	"gestrec-server/pkg/errors"
	"gestrec-server/pkg/metrics"
	"gestrec-server/pkg/speech"
	"gestrec-server/pkg/util"
	"gestrec-server/pkg/video"
	"gestrec-server/pkg/vision"
)

// FeedbackGenerator produces viewer-facing feedback text from scored
// metrics. Implementations fall back to template text internally rather
// than failing the analysis.
type FeedbackGenerator interface {
	Generate(ctx context.Context, m *Metrics) (*Feedback, error)
}

// Options tunes one analysis run
type Options struct {
	// AnalysisID becomes the report ID when set, so callers can hand it
	// out (to progress subscribers) before the run finishes. Empty means
	// a fresh UUID.
	AnalysisID string

	// SampleFPS overrides the adaptive sampling rate when positive
	SampleFPS float64

	// FaceBackend and PoseBackend select detectors by name; empty selects
	// the configured default
	FaceBackend string
	PoseBackend string

	// Progress receives coarse stage updates when non-nil. It may be
	// called from multiple goroutines during frame analysis.
	Progress func(stage string, percent int)
}

// Pipeline runs the full analysis for one video: frame extraction,
// per-frame detection fanned out on the worker pool, aggregation, scoring,
// and the optional pacing and feedback passes.
type Pipeline struct {
	baseLogger *logrus.Logger
	logger     *logrus.Entry
	cfg        *config.Config
	detectors  *vision.DetectorManager
	pool       *util.DetectionPool
	executor   *video.Executor

	facial     *FacialExtractor
	posture    *PostureExtractor
	aggregator *Aggregator
	scorer     *Scorer

	transcriber speech.Transcriber
	feedback    FeedbackGenerator
}

// NewPipeline creates a new analysis pipeline
func NewPipeline(logger *logrus.Logger, cfg *config.Config, detectors *vision.DetectorManager, pool *util.DetectionPool, executor *video.Executor) *Pipeline {
	return &Pipeline{
		baseLogger: logger,
		logger:     logger.WithField("component", "pipeline"),
		cfg:        cfg,
		detectors:  detectors,
		pool:       pool,
		executor:   executor,
		facial:     NewFacialExtractor(logger, &cfg.Scoring),
		posture:    NewPostureExtractor(logger, &cfg.Scoring),
		aggregator: NewAggregator(logger, &cfg.Scoring),
		scorer:     NewScorer(logger, &cfg.Scoring),
	}
}

// SetTranscriber attaches an optional transcriber for pacing analysis
func (p *Pipeline) SetTranscriber(t speech.Transcriber) {
	p.transcriber = t
}

// SetFeedbackGenerator attaches an optional feedback generator
func (p *Pipeline) SetFeedbackGenerator(g FeedbackGenerator) {
	p.feedback = g
}

// Analyze opens the video file at videoPath and runs the full analysis on
// it. The extracted frame workspace is cleaned up before returning.
func (p *Pipeline) Analyze(ctx context.Context, videoPath string, opts Options) (*Report, error) {
	p.report(opts, "probing", 2)

	source, err := video.OpenFile(ctx, p.baseLogger, p.executor, &p.cfg.Video, videoPath)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	return p.AnalyzeSource(ctx, source, videoPath, opts)
}

// AnalyzeSource runs the full analysis against an already-opened source
func (p *Pipeline) AnalyzeSource(ctx context.Context, source video.Source, videoPath string, opts Options) (*Report, error) {
	start := time.Now()
	status := "failed"
	stopTimer := metrics.StartAnalysisTimer()
	defer func() { stopTimer(status) }()

	duration := source.Duration()
	metrics.RecordVideoDuration(duration)

	plan := video.NewPlan(duration, opts.SampleFPS)
	log := p.logger.WithFields(logrus.Fields{
		"video_path":       videoPath,
		"duration_seconds": duration,
		"sample_fps":       plan.FPS,
	})
	log.Info("Starting gesture analysis")

	p.report(opts, "extracting", 5)
	frames, err := source.ExtractFrames(ctx, plan.FPS)
	if err != nil {
		if ctx.Err() != nil {
			status = "canceled"
		}
		return nil, err
	}

	var warnings []string

	faceDetector, faceErr := p.detectors.ResolveFaceDetector(opts.FaceBackend)
	if faceErr != nil {
		metrics.RecordDetectorError("face", "unavailable")
		warnings = append(warnings, "no face detector available, facial analysis skipped")
	}
	poseDetector, poseErr := p.detectors.ResolvePoseDetector(opts.PoseBackend)
	if poseErr != nil {
		metrics.RecordDetectorError("pose", "unavailable")
		warnings = append(warnings, "no pose detector available, posture analysis skipped")
	}
	if faceErr != nil && poseErr != nil {
		return nil, errors.NewDetectorUnavailable("face and pose")
	}

	facialSignals, postureSignals := p.detectFrames(ctx, opts, frames, faceDetector, poseDetector)
	if ctx.Err() != nil {
		status = "canceled"
		return nil, ctx.Err()
	}

	p.report(opts, "aggregating", 80)

	facialDetected := 0
	for _, s := range facialSignals {
		if s.Detected {
			facialDetected++
		}
	}
	postureDetected := 0
	for _, s := range postureSignals {
		if s.Detected {
			postureDetected++
		}
	}
	facialRate := float64(facialDetected) / float64(len(frames))
	postureRate := float64(postureDetected) / float64(len(frames))

	facialMetrics, eyeMetrics, facialErr := p.aggregator.AggregateFacial(facialSignals)
	postureMetrics, postureErr := p.aggregator.AggregatePosture(postureSignals)
	if facialErr != nil && postureErr != nil {
		return nil, errors.NewInsufficientData(facialRate, postureRate)
	}
	if facialErr != nil {
		log.WithError(facialErr).Warn("Facial analysis below detection floor")
		warnings = append(warnings, fmt.Sprintf("face detected in %.0f%% of frames, facial metrics omitted", facialRate*100))
	}
	if postureErr != nil {
		log.WithError(postureErr).Warn("Posture analysis below detection floor")
		warnings = append(warnings, fmt.Sprintf("body detected in %.0f%% of frames, posture metrics omitted", postureRate*100))
	}

	m := p.scorer.Build(facialMetrics, eyeMetrics, postureMetrics)
	metrics.RecordOverallScore(m.OverallScore)

	var pacing *speech.Pacing
	if p.transcriber != nil && source.HasAudio() {
		p.report(opts, "transcribing", 85)
		var warning string
		pacing, warning = p.transcribe(ctx, source, duration)
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	var fb *Feedback
	if p.feedback != nil {
		p.report(opts, "feedback", 95)
		var err error
		fb, err = p.feedback.Generate(ctx, m)
		if err != nil {
			log.WithError(err).Warn("Feedback generation failed")
			warnings = append(warnings, "feedback generation failed")
		}
	}

	reportID := opts.AnalysisID
	if reportID == "" {
		reportID = uuid.New().String()
	}
	report := &Report{
		ID:              reportID,
		VideoPath:       videoPath,
		DurationSeconds: duration,
		SampleFPS:       plan.FPS,
		FramesSampled:   len(frames),
		Metrics:         m,
		Pacing:          pacing,
		Feedback:        fb,
		Warnings:        warnings,
		CreatedAt:       time.Now().UTC(),
		ProcessingMS:    time.Since(start).Milliseconds(),
	}

	status = "completed"
	p.report(opts, "complete", 100)
	log.WithFields(logrus.Fields{
		"report_id":     report.ID,
		"overall_score": m.OverallScore,
		"frames":        len(frames),
		"processing_ms": report.ProcessingMS,
	}).Info("Gesture analysis completed")

	return report, nil
}

// detectFrames fans per-frame detection out on the worker pool. Each task
// owns one index in its signal slice, so the slices need no locking.
func (p *Pipeline) detectFrames(ctx context.Context, opts Options, frames []video.Frame, faceDetector vision.FaceDetector, poseDetector vision.PoseDetector) ([]FacialSignal, []PostureSignal) {
	facialSignals := make([]FacialSignal, len(frames))
	postureSignals := make([]PostureSignal, len(frames))

	modalities := 0
	if faceDetector != nil {
		modalities++
	}
	if poseDetector != nil {
		modalities++
	}
	totalTasks := int64(len(frames) * modalities)

	var done int64
	var wg sync.WaitGroup

	track := func() {
		n := atomic.AddInt64(&done, 1)
		if n == totalTasks || n%10 == 0 {
			p.report(opts, "analyzing", analysisPercent(n, totalTasks))
		}
	}

	p.report(opts, "analyzing", analysisPercent(0, totalTasks))
	for i := range frames {
		idx := i
		frame := frames[i]

		if faceDetector != nil {
			wg.Add(1)
			if !p.pool.Submit(func() {
				defer wg.Done()
				facialSignals[idx] = p.analyzeFace(ctx, faceDetector, frame)
				track()
			}) {
				wg.Done()
			}
		}
		if poseDetector != nil {
			wg.Add(1)
			if !p.pool.Submit(func() {
				defer wg.Done()
				postureSignals[idx] = p.analyzePose(ctx, poseDetector, frame)
				track()
			}) {
				wg.Done()
			}
		}
	}
	wg.Wait()

	return facialSignals, postureSignals
}

// analyzeFace runs one frame through the face detector and the facial
// extractor. Detector errors and empty frames both come back as misses.
func (p *Pipeline) analyzeFace(ctx context.Context, detector vision.FaceDetector, frame video.Frame) FacialSignal {
	if ctx.Err() != nil {
		metrics.RecordFrameMiss("facial", "canceled")
		return FacialSignal{}
	}

	stop := metrics.ObserveDetectorLatency(detector.Name())
	obs, err := detector.DetectFace(ctx, frame.Image)
	stop()

	if err != nil {
		metrics.RecordDetectorError(detector.Name(), "detection_failed")
		metrics.RecordFrameMiss("facial", "error")
		p.logger.WithError(err).WithField("frame", frame.Index).Debug("Face detection failed")
		return FacialSignal{}
	}
	if obs == nil {
		metrics.RecordFrameMiss("facial", "no_face")
		return FacialSignal{}
	}

	metrics.RecordFrameProcessed("facial")
	return p.facial.Extract(obs)
}

// analyzePose runs one frame through the pose detector and the posture
// extractor
func (p *Pipeline) analyzePose(ctx context.Context, detector vision.PoseDetector, frame video.Frame) PostureSignal {
	if ctx.Err() != nil {
		metrics.RecordFrameMiss("posture", "canceled")
		return PostureSignal{}
	}

	stop := metrics.ObserveDetectorLatency(detector.Name())
	obs, err := detector.DetectPose(ctx, frame.Image)
	stop()

	if err != nil {
		metrics.RecordDetectorError(detector.Name(), "detection_failed")
		metrics.RecordFrameMiss("posture", "error")
		p.logger.WithError(err).WithField("frame", frame.Index).Debug("Pose detection failed")
		return PostureSignal{}
	}
	if obs == nil {
		metrics.RecordFrameMiss("posture", "no_body")
		return PostureSignal{}
	}

	metrics.RecordFrameProcessed("posture")
	return p.posture.Extract(obs)
}

// transcribe extracts the audio track and derives pacing from its
// transcript. Failures skip pacing with a report warning instead of
// failing the analysis.
func (p *Pipeline) transcribe(ctx context.Context, source video.Source, videoDuration float64) (*speech.Pacing, string) {
	audioPath, err := source.ExtractAudio(ctx, p.cfg.Speech.SampleRate)
	if err != nil {
		p.logger.WithError(err).Warn("Audio extraction failed, pacing skipped")
		metrics.RecordTranscription(p.transcriber.Name(), "audio_failed")
		return nil, "audio extraction failed, pacing omitted"
	}

	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		p.logger.WithError(err).Warn("Transcription failed, pacing skipped")
		metrics.RecordTranscription(p.transcriber.Name(), "failed")
		return nil, "transcription failed, pacing omitted"
	}
	metrics.RecordTranscription(p.transcriber.Name(), "completed")

	// Some results carry no timing; fall back to the video duration
	if transcript.DurationSeconds <= 0 {
		transcript.DurationSeconds = videoDuration
	}

	return speech.NewPacing(transcript, &p.cfg.Speech), ""
}

func (p *Pipeline) report(opts Options, stage string, percent int) {
	if opts.Progress != nil {
		opts.Progress(stage, percent)
	}
}

func analysisPercent(done, total int64) int {
	if total <= 0 {
		return 75
	}
	return 10 + int(done*65/total)
}
