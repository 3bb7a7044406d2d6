package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/version"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
	System    SystemInfo             `json:"system"`
}

// CheckResult represents an individual health check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfo contains system resource information
type SystemInfo struct {
	GoRoutines    int    `json:"goroutines"`
	MemoryMB      uint64 `json:"memory_mb"`
	CPUCount      int    `json:"cpu_count"`
	ActiveWorkers int32  `json:"active_workers"`
	QueuedTasks   int32  `json:"queued_tasks"`
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Version:   version.Version,
		Checks:    make(map[string]CheckResult),
	}

	// Without at least one detector nothing can be scored.
	if s.detectors != nil {
		faces, poses := s.detectors.DetectorNames()
		if len(faces) > 0 || len(poses) > 0 {
			health.Checks["detectors"] = CheckResult{
				Status:  "healthy",
				Message: fmt.Sprintf("%d face, %d pose detectors registered", len(faces), len(poses)),
			}
		} else {
			health.Checks["detectors"] = CheckResult{
				Status:  "unhealthy",
				Message: "no detectors registered",
			}
			health.Status = "unhealthy"
		}
	} else {
		health.Checks["detectors"] = CheckResult{
			Status:  "unhealthy",
			Message: "detector manager not initialized",
		}
		health.Status = "unhealthy"
	}

	if s.analyzer != nil {
		health.Checks["pipeline"] = CheckResult{
			Status:  "healthy",
			Message: "analysis pipeline ready",
		}
	} else {
		health.Checks["pipeline"] = CheckResult{
			Status:  "unhealthy",
			Message: "analysis pipeline not initialized",
		}
		health.Status = "unhealthy"
	}

	if s.pool != nil {
		stats := s.pool.GetStats()
		health.Checks["worker_pool"] = CheckResult{
			Status:  "healthy",
			Message: fmt.Sprintf("%d workers, %d tasks queued", stats.TotalWorkers, stats.QueueLength),
		}
		health.System.ActiveWorkers = stats.ActiveWorkers
		health.System.QueuedTasks = stats.QueueLength
	} else {
		health.Checks["worker_pool"] = CheckResult{
			Status:  "degraded",
			Message: "worker pool not initialized",
		}
	}

	if s.wsHub != nil && s.wsHub.IsRunning() {
		health.Checks["websocket"] = CheckResult{
			Status:  "healthy",
			Message: "progress hub is running",
		}
	} else {
		health.Checks["websocket"] = CheckResult{
			Status:  "degraded",
			Message: "progress hub not running",
		}
	}

	// AMQP is optional; absence is not reported at all.
	if s.publisher != nil {
		if s.publisher.IsConnected() {
			health.Checks["amqp"] = CheckResult{
				Status:  "healthy",
				Message: "AMQP connected",
			}
		} else {
			health.Checks["amqp"] = CheckResult{
				Status:  "degraded",
				Message: "AMQP disconnected",
			}
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	health.System.GoRoutines = runtime.NumGoroutine()
	health.System.MemoryMB = m.Alloc / 1024 / 1024
	health.System.CPUCount = runtime.NumCPU()

	if r.URL.Query().Get("detailed") == "true" {
		s.logger.WithFields(logrus.Fields{
			"status":   health.Status,
			"checks":   health.Checks,
			"system":   health.System,
			"duration": time.Since(startTime),
		}).Debug("Health check performed")
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(health)
}

// LivenessHandler handles kubernetes liveness probe
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ReadinessHandler handles kubernetes readiness probe
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ready := s.analyzer != nil

	if s.detectors == nil {
		ready = false
	} else {
		faces, poses := s.detectors.DetectorNames()
		if len(faces) == 0 && len(poses) == 0 {
			ready = false
		}
	}

	if ready {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	}
}
