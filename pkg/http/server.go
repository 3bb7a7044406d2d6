// Package http exposes the analysis API, health and readiness probes,
// Prometheus metrics, and the progress WebSocket.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/errors"
	"gestrec-server/pkg/gesture"
	"gestrec-server/pkg/metrics"
	"gestrec-server/pkg/util"
	"gestrec-server/pkg/version"
	"gestrec-server/pkg/vision"
)

// Analyzer runs one video analysis. *gesture.Pipeline satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, videoPath string, opts gesture.Options) (*gesture.Report, error)
}

// ReportPublisher forwards completed reports to a message broker.
type ReportPublisher interface {
	PublishReport(report *gesture.Report) error
	IsConnected() bool
}

// Server is the HTTP front of the analysis service.
type Server struct {
	config     *Config
	logger     *logrus.Logger
	httpServer *http.Server
	mux        *http.ServeMux
	startTime  time.Time

	analyzer  Analyzer
	detectors *vision.DetectorManager
	pool      *util.DetectionPool
	publisher ReportPublisher
	wsHub     *ProgressHub

	additionalHandlers map[string]http.HandlerFunc
}

// NewServer creates the HTTP server and registers the standard endpoints.
func NewServer(logger *logrus.Logger, config *Config, analyzer Analyzer, detectors *vision.DetectorManager, pool *util.DetectionPool) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	server := &Server{
		config:             config,
		logger:             logger,
		startTime:          time.Now(),
		analyzer:           analyzer,
		detectors:          detectors,
		pool:               pool,
		additionalHandlers: make(map[string]http.HandlerFunc),
	}

	mux := http.NewServeMux()
	server.mux = mux

	addServerHeader := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Server", version.ServerHeader())
			next(w, r)
		}
	}

	mux.HandleFunc("/health", addServerHeader(server.HealthHandler))
	mux.HandleFunc("/health/live", addServerHeader(server.LivenessHandler))
	mux.HandleFunc("/health/ready", addServerHeader(server.ReadinessHandler))
	mux.HandleFunc("/status", addServerHeader(server.statusHandler))

	if config.EnableMetrics {
		metrics.RegisterHandler(mux)
		logger.Info("Prometheus metrics endpoint enabled at /metrics")
	}

	if config.EnableAPI {
		mux.HandleFunc("/api/analyze", addServerHeader(server.AnalyzeHandler))
		logger.Info("Analysis API enabled at /api/analyze")
	}

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// SetPublisher attaches the report publisher used after each analysis and
// for the AMQP health check.
func (s *Server) SetPublisher(publisher ReportPublisher) {
	s.publisher = publisher
}

// SetWebSocketHub attaches the progress hub and registers its endpoint.
func (s *Server) SetWebSocketHub(hub *ProgressHub) {
	s.wsHub = hub
	if s.mux != nil {
		s.mux.HandleFunc("/ws/progress", hub.ServeWs)
		s.logger.Info("Progress WebSocket endpoint registered at /ws/progress")
	}
}

// RegisterHandler adds a custom handler to the server
func (s *Server) RegisterHandler(path string, handler http.HandlerFunc) {
	s.additionalHandlers[path] = handler

	if s.mux != nil {
		s.mux.HandleFunc(path, handler)
	}

	s.logger.WithField("path", path).Info("Registered custom HTTP handler")
}

// Start starts the HTTP server in a goroutine
func (s *Server) Start() {
	s.logger.WithField("port", s.config.Port).Info("Starting HTTP server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
	}()

	// Verify that we can actually bind to the port
	go func() {
		time.Sleep(500 * time.Millisecond)
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", s.config.Port), 2*time.Second)
		if err != nil {
			s.logger.WithError(err).Error("Could not connect to HTTP server")
			return
		}
		conn.Close()
		s.logger.Info("HTTP server is running correctly")
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// statusHandler reports uptime, detector inventory, and worker pool load
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"version":    version.Version,
		"started_at": s.startTime.Format(time.RFC3339),
	}

	if s.pool != nil {
		status["worker_pool"] = s.pool.GetStats()
	}
	if s.detectors != nil {
		faces, poses := s.detectors.DetectorNames()
		status["face_detectors"] = faces
		status["pose_detectors"] = poses
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// ErrorResponse sends a standardized error response
func (s *Server) ErrorResponse(w http.ResponseWriter, err error) {
	errors.WriteError(w, err)
	s.logger.WithError(err).Warn("HTTP error response sent")
}
