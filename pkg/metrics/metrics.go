package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry           *prometheus.Registry
	registryOnce       sync.Once
	defaultMetricsPath = "/metrics"

	// Recording stays off until StartMetrics or Init runs, so the
	// collectors below are never touched while still nil
	metricsEnabled = false

	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	ActiveAnalyses   prometheus.Gauge
	VideoDuration    prometheus.Histogram
	OverallScores    prometheus.Histogram

	// Frame metrics
	FramesExtracted *prometheus.CounterVec
	FramesProcessed *prometheus.CounterVec
	FramesMissed    *prometheus.CounterVec

	// Detector metrics
	DetectorLatency *prometheus.HistogramVec
	DetectorErrors  *prometheus.CounterVec

	// Feedback metrics
	FeedbackRequests *prometheus.CounterVec

	// Transcription metrics
	TranscriptionRequests *prometheus.CounterVec

	// AMQP metrics
	AMQPPublishedMessages *prometheus.CounterVec
	AMQPConnectionErrors  *prometheus.CounterVec
	AMQPConnectionStatus  prometheus.Gauge
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		// Initialize analysis metrics
		AnalysesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_analyses_total",
				Help: "Total number of video analyses by outcome",
			},
			[]string{"status"},
		)

		AnalysisDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gestrec_analysis_duration_seconds",
				Help:    "Wall-clock duration of full analyses",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
			},
			[]string{"status"},
		)

		ActiveAnalyses = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gestrec_active_analyses",
				Help: "Number of analyses currently running",
			},
		)

		VideoDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gestrec_video_duration_seconds",
				Help:    "Duration of analyzed videos",
				Buckets: prometheus.ExponentialBuckets(5, 2, 9), // 5s to ~21min
			},
		)

		OverallScores = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gestrec_overall_scores",
				Help:    "Distribution of fused overall scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 to 100 in steps of 10
			},
		)

		// Initialize frame metrics
		FramesExtracted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_frames_extracted_total",
				Help: "Total number of frames extracted from videos",
			},
			[]string{"status"},
		)

		FramesProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_frames_processed_total",
				Help: "Total number of frames with a successful detection",
			},
			[]string{"modality"},
		)

		FramesMissed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_frames_missed_total",
				Help: "Total number of frames without a detection",
			},
			[]string{"modality", "reason"},
		)

		// Initialize detector metrics
		DetectorLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gestrec_detector_latency_seconds",
				Help:    "Latency of per-frame detector calls",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"detector"},
		)

		DetectorErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_detector_errors_total",
				Help: "Total number of detector call failures",
			},
			[]string{"detector", "error_type"},
		)

		// Initialize feedback metrics
		FeedbackRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_feedback_requests_total",
				Help: "Total number of feedback generations by path",
			},
			[]string{"path", "status"},
		)

		// Initialize transcription metrics
		TranscriptionRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_transcription_requests_total",
				Help: "Total number of transcription requests",
			},
			[]string{"provider", "status"},
		)

		// Initialize AMQP metrics
		AMQPPublishedMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_amqp_published_messages_total",
				Help: "Total number of messages published to AMQP",
			},
			[]string{"queue", "status"},
		)

		AMQPConnectionErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestrec_amqp_connection_errors_total",
				Help: "Total number of AMQP connection errors",
			},
			[]string{"error_type"},
		)

		AMQPConnectionStatus = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gestrec_amqp_connection_status",
				Help: "Status of AMQP connection (1 = connected, 0 = disconnected)",
			},
		)

		// Register all metrics
		registry.MustRegister(
			// Analysis metrics
			AnalysesTotal,
			AnalysisDuration,
			ActiveAnalyses,
			VideoDuration,
			OverallScores,

			// Frame metrics
			FramesExtracted,
			FramesProcessed,
			FramesMissed,

			// Detector metrics
			DetectorLatency,
			DetectorErrors,

			// Feedback metrics
			FeedbackRequests,

			// Transcription metrics
			TranscriptionRequests,

			// AMQP metrics
			AMQPPublishedMessages,
			AMQPConnectionErrors,
			AMQPConnectionStatus,
		)

		logger.Info("Prometheus metrics initialized")
	})

	EnableMetrics(true)
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	return registry
}

// SetMetricsPath sets the HTTP path for metrics endpoint
func SetMetricsPath(path string) {
	defaultMetricsPath = path
}

// EnableMetrics enables or disables metrics collection
func EnableMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IsMetricsEnabled returns whether metrics are enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// RegisterHandler registers the metrics HTTP handler
func RegisterHandler(mux *http.ServeMux) {
	if metricsEnabled {
		handler := promhttp.HandlerFor(
			registry,
			promhttp.HandlerOpts{
				EnableOpenMetrics: true,
				Registry:          registry,
			},
		)
		mux.Handle(defaultMetricsPath, handler)
	}
}

// StartMetrics initializes the metrics service
func StartMetrics(logger *logrus.Logger, enabled bool) {
	if !enabled {
		EnableMetrics(false)
		logger.Info("Metrics collection is disabled")
		return
	}

	Init(logger)
	EnableMetrics(true)
	logger.WithField("metrics_path", defaultMetricsPath).Info("Metrics endpoint initialized")
}

// RecordAnalysis records a completed analysis with its outcome and duration
func RecordAnalysis(status string, duration time.Duration) {
	if metricsEnabled {
		AnalysesTotal.WithLabelValues(status).Inc()
		AnalysisDuration.WithLabelValues(status).Observe(duration.Seconds())
	}
}

// StartAnalysisTimer marks an analysis as active and returns a function that
// records its duration and outcome when called
func StartAnalysisTimer() func(status string) {
	if !metricsEnabled || ActiveAnalyses == nil {
		return func(string) {}
	}

	ActiveAnalyses.Inc()
	start := time.Now()
	return func(status string) {
		ActiveAnalyses.Dec()
		RecordAnalysis(status, time.Since(start))
	}
}

// RecordVideoDuration records the duration of an analyzed video
func RecordVideoDuration(seconds float64) {
	if metricsEnabled {
		VideoDuration.Observe(seconds)
	}
}

// RecordOverallScore records a fused overall score
func RecordOverallScore(score int) {
	if metricsEnabled {
		OverallScores.Observe(float64(score))
	}
}

// RecordFramesExtracted records the result of a frame extraction pass
func RecordFramesExtracted(status string, count int) {
	if metricsEnabled {
		FramesExtracted.WithLabelValues(status).Add(float64(count))
	}
}

// RecordFrameProcessed records a frame with a successful detection
func RecordFrameProcessed(modality string) {
	if metricsEnabled {
		FramesProcessed.WithLabelValues(modality).Inc()
	}
}

// RecordFrameMiss records a frame without a detection
func RecordFrameMiss(modality, reason string) {
	if metricsEnabled {
		FramesMissed.WithLabelValues(modality, reason).Inc()
	}
}

// ObserveDetectorLatency records detector call latency with a timer function
func ObserveDetectorLatency(detector string) func() {
	if !metricsEnabled {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		DetectorLatency.WithLabelValues(detector).Observe(duration.Seconds())
	}
}

// RecordDetectorError records a detector call failure
func RecordDetectorError(detector, errorType string) {
	if metricsEnabled {
		DetectorErrors.WithLabelValues(detector, errorType).Inc()
	}
}

// RecordFeedback records a feedback generation by path (generative or template)
func RecordFeedback(path, status string) {
	if metricsEnabled {
		FeedbackRequests.WithLabelValues(path, status).Inc()
	}
}

// RecordTranscription records a transcription request
func RecordTranscription(provider, status string) {
	if metricsEnabled {
		TranscriptionRequests.WithLabelValues(provider, status).Inc()
	}
}

// RecordAMQPPublish records metrics for an AMQP publish
func RecordAMQPPublish(queue, status string) {
	if metricsEnabled {
		AMQPPublishedMessages.WithLabelValues(queue, status).Inc()
	}
}

// RecordAMQPConnectionError records an AMQP connection failure
func RecordAMQPConnectionError(errorType string) {
	if metricsEnabled {
		AMQPConnectionErrors.WithLabelValues(errorType).Inc()
	}
}

// SetAMQPConnectionStatus sets the AMQP connection status
func SetAMQPConnectionStatus(connected bool) {
	if metricsEnabled {
		if connected {
			AMQPConnectionStatus.Set(1)
		} else {
			AMQPConnectionStatus.Set(0)
		}
	}
}
