package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestrec-server/pkg/errors"
	"gestrec-server/pkg/gesture"
	"gestrec-server/pkg/util"
)

func tempVideo(t *testing.T) string {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), "talk-*.mp4")
	require.NoError(t, err)
	_, err = file.WriteString("not a real video")
	require.NoError(t, err)
	require.NoError(t, file.Close())
	return file.Name()
}

func analyzeJSONRequest(t *testing.T, req AnalyzeRequest) *http.Request {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestAnalyzeHandlerMethodNotAllowed(t *testing.T) {
	server := testServer(t, &stubAnalyzer{report: testReport()})

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestAnalyzeHandlerUnsupportedMediaType(t *testing.T) {
	server := testServer(t, &stubAnalyzer{report: testReport()})

	r := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("plain"))
	r.Header.Set("Content-Type", "text/plain")

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, r)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestAnalyzeHandlerInvalidJSON(t *testing.T) {
	server := testServer(t, &stubAnalyzer{report: testReport()})

	r := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{not json"))
	r.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not valid JSON")
}

func TestAnalyzeHandlerMissingPath(t *testing.T) {
	server := testServer(t, &stubAnalyzer{report: testReport()})

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "path is required")
}

func TestAnalyzeHandlerVideoNotFound(t *testing.T) {
	server := testServer(t, &stubAnalyzer{report: testReport()})

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{Path: "/no/such/video.mp4"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeHandlerNoAnalyzer(t *testing.T) {
	pool := util.NewDetectionPool(1, 4)
	t.Cleanup(func() { pool.Shutdown(time.Second) })
	server := NewServer(logrus.New(), DefaultConfig(), nil, testDetectorManager(t), pool)

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{Path: "/tmp/talk.mp4"}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyzeHandlerJSONPath(t *testing.T) {
	analyzer := &stubAnalyzer{report: testReport()}
	server := testServer(t, analyzer)
	videoPath := tempVideo(t)

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{
		Path:        videoPath,
		AnalysisID:  "abc-123",
		SampleFPS:   2.5,
		FaceBackend: "mock",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report gesture.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "abc-123", report.ID)
	assert.Equal(t, 82, report.Metrics.OverallScore)

	assert.Equal(t, videoPath, analyzer.gotPath)
	assert.Equal(t, "abc-123", analyzer.gotOpts.AnalysisID)
	assert.Equal(t, 2.5, analyzer.gotOpts.SampleFPS)
	assert.Equal(t, "mock", analyzer.gotOpts.FaceBackend)
}

func TestAnalyzeHandlerGeneratesAnalysisID(t *testing.T) {
	analyzer := &stubAnalyzer{report: testReport()}
	server := testServer(t, analyzer)

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{Path: tempVideo(t)}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, analyzer.gotOpts.AnalysisID)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestAnalyzeHandlerMultipartUpload(t *testing.T) {
	analyzer := &stubAnalyzer{report: testReport()}
	server := testServer(t, analyzer)
	server.config.UploadDir = t.TempDir()

	body, contentType := multipartBody(t, map[string]string{
		"analysis_id": "upload-test",
		"sample_fps":  "1.5",
	}, "video", "talk.mp4", []byte("not a real video"))

	r := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	r.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "upload-test", analyzer.gotOpts.AnalysisID)
	assert.Equal(t, 1.5, analyzer.gotOpts.SampleFPS)
	assert.Equal(t, server.config.UploadDir, filepath.Dir(analyzer.gotPath))
	assert.True(t, strings.HasPrefix(filepath.Base(analyzer.gotPath), "upload-"))
	assert.Equal(t, ".mp4", filepath.Ext(analyzer.gotPath))

	// The stored upload is removed once the analysis has finished.
	_, err := os.Stat(analyzer.gotPath)
	assert.True(t, os.IsNotExist(err))
}

func TestAnalyzeHandlerMultipartMissingFile(t *testing.T) {
	server := testServer(t, &stubAnalyzer{report: testReport()})

	body, contentType := multipartBody(t, map[string]string{"analysis_id": "x"}, "", "", nil)
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	r.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing video file field")
}

func TestAnalyzeHandlerBadSampleFPS(t *testing.T) {
	server := testServer(t, &stubAnalyzer{report: testReport()})

	body, contentType := multipartBody(t, map[string]string{
		"sample_fps": "fast",
	}, "video", "talk.mp4", []byte("not a real video"))
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	r.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "sample_fps must be a number")
}

func TestAnalyzeHandlerUploadTooLarge(t *testing.T) {
	server := testServer(t, &stubAnalyzer{report: testReport()})
	server.config.MaxUploadMB = 1

	body, contentType := multipartBody(t, nil, "video", "talk.mp4", bytes.Repeat([]byte("x"), 2*1024*1024))
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	r.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	server.AnalyzeHandler(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit is 1 MB")
}

func TestAnalyzeHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "insufficient data",
			err:        errors.NewInsufficientData(0.1, 0.2),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "detector unavailable",
			err:        errors.NewDetectorUnavailable("remote"),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "frame extraction",
			err:        errors.NewFrameExtraction("/tmp/talk.mp4"),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testServer(t, &stubAnalyzer{err: tt.err})

			rec := httptest.NewRecorder()
			server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{Path: tempVideo(t)}))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAnalyzeHandlerPublishesReport(t *testing.T) {
	t.Run("connected publisher receives the report", func(t *testing.T) {
		server := testServer(t, &stubAnalyzer{report: testReport()})
		publisher := &stubPublisher{connected: true}
		server.SetPublisher(publisher)

		rec := httptest.NewRecorder()
		server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{Path: tempVideo(t), AnalysisID: "pub-1"}))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, publisher.published, 1)
		assert.Equal(t, "pub-1", publisher.published[0].ID)
	})

	t.Run("disconnected publisher is skipped", func(t *testing.T) {
		server := testServer(t, &stubAnalyzer{report: testReport()})
		publisher := &stubPublisher{connected: false}
		server.SetPublisher(publisher)

		rec := httptest.NewRecorder()
		server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{Path: tempVideo(t)}))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, publisher.published)
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		server := testServer(t, &stubAnalyzer{report: testReport()})
		server.SetPublisher(&stubPublisher{connected: true, err: assert.AnError})

		rec := httptest.NewRecorder()
		server.AnalyzeHandler(rec, analyzeJSONRequest(t, AnalyzeRequest{Path: tempVideo(t)}))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
