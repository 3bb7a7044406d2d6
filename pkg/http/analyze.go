package http

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/errors"
	"gestrec-server/pkg/gesture"
)

// AnalyzeRequest is the JSON body for analyzing a video already on the
// server's disk.
type AnalyzeRequest struct {
	Path        string  `json:"path"`
	AnalysisID  string  `json:"analysis_id,omitempty"`
	SampleFPS   float64 `json:"sample_fps,omitempty"`
	FaceBackend string  `json:"face_backend,omitempty"`
	PoseBackend string  `json:"pose_backend,omitempty"`
}

// AnalyzeHandler accepts a video by multipart upload or by server-local path
// and responds with the full analysis report. The request blocks until the
// analysis finishes; clients that subscribed to the WebSocket with the same
// analysis ID receive progress while they wait.
func (s *Server) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.analyzer == nil {
		s.ErrorResponse(w, errors.Wrap(errors.ErrUnavailable, "analysis pipeline not initialized"))
		return
	}

	var videoPath string
	var opts gesture.Options
	var cleanup func()

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch contentType {
	case "multipart/form-data":
		path, uploadOpts, cleanupFn, err := s.receiveUpload(w, r)
		if err != nil {
			s.ErrorResponse(w, err)
			return
		}
		videoPath = path
		opts = uploadOpts
		cleanup = cleanupFn

	case "application/json":
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.ErrorResponse(w, errors.NewInvalidInput("request body is not valid JSON"))
			return
		}
		if req.Path == "" {
			s.ErrorResponse(w, errors.NewInvalidInput("path is required"))
			return
		}
		if _, err := os.Stat(req.Path); err != nil {
			s.ErrorResponse(w, errors.NewVideoRead(req.Path, err))
			return
		}
		videoPath = req.Path
		opts = gesture.Options{
			AnalysisID:  req.AnalysisID,
			SampleFPS:   req.SampleFPS,
			FaceBackend: req.FaceBackend,
			PoseBackend: req.PoseBackend,
		}

	default:
		http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	if opts.AnalysisID == "" {
		opts.AnalysisID = uuid.New().String()
	}
	if s.wsHub != nil {
		analysisID := opts.AnalysisID
		opts.Progress = func(stage string, percent int) {
			s.wsHub.BroadcastProgress(&ProgressMessage{
				AnalysisID: analysisID,
				Stage:      stage,
				Percent:    percent,
				Timestamp:  time.Now().UTC(),
			})
		}
	}

	log := s.logger.WithFields(logrus.Fields{
		"analysis_id": opts.AnalysisID,
		"video_path":  videoPath,
	})
	log.Info("Starting video analysis")

	report, err := s.analyzer.Analyze(r.Context(), videoPath, opts)
	if err != nil {
		log.WithError(err).Error("Video analysis failed")
		s.ErrorResponse(w, err)
		return
	}

	// Publishing is best effort; the client still gets its report.
	if s.publisher != nil && s.publisher.IsConnected() {
		if err := s.publisher.PublishReport(report); err != nil {
			log.WithError(err).Warn("Failed to publish analysis report")
		}
	}

	log.WithField("overall_score", report.Metrics.OverallScore).Info("Video analysis complete")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}

// receiveUpload stores the multipart video part on disk and returns its
// path, the options read from the form fields, and a cleanup func that
// removes the stored file.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (string, gesture.Options, func(), error) {
	maxBytes := s.config.MaxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", gesture.Options{}, nil, errors.NewInvalidInput(
			fmt.Sprintf("video upload rejected, the limit is %d MB", s.config.MaxUploadMB))
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		return "", gesture.Options{}, nil, errors.NewInvalidInput("missing video file field")
	}
	defer file.Close()

	opts := gesture.Options{
		AnalysisID:  r.FormValue("analysis_id"),
		FaceBackend: r.FormValue("face_backend"),
		PoseBackend: r.FormValue("pose_backend"),
	}
	if v := r.FormValue("sample_fps"); v != "" {
		fps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", gesture.Options{}, nil, errors.NewInvalidInput("sample_fps must be a number")
		}
		opts.SampleFPS = fps
	}

	dir := s.config.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".mp4"
	}
	dst := filepath.Join(dir, fmt.Sprintf("upload-%s%s", uuid.New().String(), ext))

	out, err := os.Create(dst)
	if err != nil {
		return "", gesture.Options{}, nil, errors.Wrap(err, "failed to store video upload")
	}
	written, err := io.Copy(out, file)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return "", gesture.Options{}, nil, errors.Wrap(err, "failed to store video upload")
	}

	s.logger.WithFields(logrus.Fields{
		"filename": header.Filename,
		"bytes":    written,
		"stored":   dst,
	}).Debug("Video upload stored")

	return dst, opts, func() { os.Remove(dst) }, nil
}
