package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("test error")
	if err == nil {
		t.Fatal("New() returned nil")
	}

	if !strings.Contains(err.Error(), "test error") {
		t.Errorf("Expected error message to contain 'test error', got: %s", err.Error())
	}

	if err.Location() == "" {
		t.Error("Location should not be empty")
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")
	err := Wrap(baseErr, "wrapped")

	if err == nil {
		t.Fatal("Wrap() returned nil")
	}

	if !strings.Contains(err.Error(), "wrapped") {
		t.Errorf("Expected error message to contain 'wrapped', got: %s", err.Error())
	}

	if !strings.Contains(err.Error(), "base error") {
		t.Errorf("Expected error message to contain 'base error', got: %s", err.Error())
	}

	// Test unwrapping
	unwrapped := errors.Unwrap(err)
	if unwrapped != baseErr {
		t.Errorf("Unwrap() returned wrong error: %v", unwrapped)
	}
}

func TestWithField(t *testing.T) {
	err := New("test error").WithField("key", "value")

	fields := err.GetFields()
	if len(fields) != 1 {
		t.Fatalf("Expected 1 field, got %d", len(fields))
	}

	if fields["key"] != "value" {
		t.Errorf("Expected field['key'] = 'value', got: %v", fields["key"])
	}
}

func TestWithFields(t *testing.T) {
	fields := map[string]interface{}{
		"key1": "value1",
		"key2": 123,
	}

	err := New("test error").WithFields(fields)

	errFields := err.GetFields()
	if len(errFields) != 2 {
		t.Fatalf("Expected 2 fields, got %d", len(errFields))
	}

	if errFields["key1"] != "value1" {
		t.Errorf("Expected field['key1'] = 'value1', got: %v", errFields["key1"])
	}

	if errFields["key2"] != 123 {
		t.Errorf("Expected field['key2'] = 123, got: %v", errFields["key2"])
	}
}

func TestWithCode(t *testing.T) {
	err := New("test error").WithCode("TEST_CODE")

	if err.GetCode() != "TEST_CODE" {
		t.Errorf("Expected code 'TEST_CODE', got: %s", err.GetCode())
	}
}

func TestErrorIs(t *testing.T) {
	// Test with standard errors
	notFoundErr := NewNotFound("resource not found")
	if !errors.Is(notFoundErr, ErrNotFound) {
		t.Error("errors.Is() should return true for ErrNotFound")
	}

	// Test with domain errors
	videoErr := NewVideoRead("/tmp/missing.mp4", errors.New("no such file"))
	if !errors.Is(videoErr, ErrVideoRead) {
		t.Error("errors.Is() should return true for ErrVideoRead")
	}

	// Test with wrapped errors
	wrapped := Wrap(ErrFrameExtraction, "sampling pass failed")
	if !errors.Is(wrapped, ErrFrameExtraction) {
		t.Error("errors.Is() should return true for wrapped ErrFrameExtraction")
	}
}

func TestErrorAs(t *testing.T) {
	err := New("test error").WithCode("TEST_CODE")

	var structErr *Error
	if !errors.As(err, &structErr) {
		t.Error("errors.As() should successfully cast to *Error")
	}

	if structErr.GetCode() != "TEST_CODE" {
		t.Errorf("Expected code 'TEST_CODE', got: %s", structErr.GetCode())
	}
}

func TestDomainConstructors(t *testing.T) {
	faceErr := NewNoFaceDetected(0.2)
	if GetErrorCode(faceErr) != "NO_FACE_DETECTED" {
		t.Errorf("Expected code 'NO_FACE_DETECTED', got: %s", GetErrorCode(faceErr))
	}
	if faceErr.GetFields()["detection_rate"] != 0.2 {
		t.Errorf("Expected detection_rate field 0.2, got: %v", faceErr.GetFields()["detection_rate"])
	}

	bodyErr := NewNoBodyDetected(0.1)
	if !errors.Is(bodyErr, ErrNoBodyDetected) {
		t.Error("NewNoBodyDetected should match ErrNoBodyDetected")
	}

	dataErr := NewInsufficientData(0.1, 0.2)
	fields := dataErr.GetFields()
	if fields["facial_detection_rate"] != 0.1 || fields["posture_detection_rate"] != 0.2 {
		t.Errorf("Expected both detection rate fields, got: %v", fields)
	}
}

func TestFatalAndPartial(t *testing.T) {
	fatal := []error{
		NewVideoRead("/x.mp4", nil),
		NewFrameExtraction("/x.mp4"),
		NewInsufficientData(0, 0),
	}
	for _, err := range fatal {
		if !IsFatal(err) {
			t.Errorf("Expected IsFatal(%v) = true", err)
		}
		if IsPartial(err) {
			t.Errorf("Expected IsPartial(%v) = false", err)
		}
	}

	partial := []error{
		NewNoFaceDetected(0.25),
		NewNoBodyDetected(0.25),
	}
	for _, err := range partial {
		if !IsPartial(err) {
			t.Errorf("Expected IsPartial(%v) = true", err)
		}
		if IsFatal(err) {
			t.Errorf("Expected IsFatal(%v) = false", err)
		}
	}

	if IsFatal(errors.New("plain")) || IsPartial(errors.New("plain")) {
		t.Error("Plain errors should be neither fatal nor partial")
	}
}

func TestHelperFunctions(t *testing.T) {
	// Test IsErrorType
	notFoundErr := NewNotFound("resource not found")
	if !IsErrorType(notFoundErr, ErrNotFound) {
		t.Error("IsErrorType() should return true for ErrNotFound")
	}

	// Test GetErrorCode
	codeErr := New("test error").WithCode("TEST_CODE")
	if GetErrorCode(codeErr) != "TEST_CODE" {
		t.Errorf("GetErrorCode() should return 'TEST_CODE', got: %s", GetErrorCode(codeErr))
	}

	// Test GetErrorFields
	fieldsErr := New("test error").WithField("key", "value")
	fields := GetErrorFields(fieldsErr)
	if fields == nil || fields["key"] != "value" {
		t.Error("GetErrorFields() should return the error fields")
	}

	// Test GetErrorLocation
	locErr := New("test error")
	if GetErrorLocation(locErr) == "" {
		t.Error("GetErrorLocation() should return a non-empty string")
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"NotFound", ErrNotFound, http.StatusNotFound},
		{"InvalidInput", ErrInvalidInput, http.StatusBadRequest},
		{"Wrapped", Wrap(ErrNotFound, "wrapped"), http.StatusNotFound},
		{"Unknown", errors.New("unknown"), http.StatusInternalServerError},
		{"VideoRead", NewVideoRead("/x.mp4", nil), http.StatusBadRequest},
		{"FrameExtraction", NewFrameExtraction("/x.mp4"), http.StatusUnprocessableEntity},
		{"InsufficientData", NewInsufficientData(0.1, 0.1), http.StatusUnprocessableEntity},
		{"DetectorUnavailable", NewDetectorUnavailable("remote-face"), http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status := HTTPStatusFromError(tc.err)
			if status != tc.expectedStatus {
				t.Errorf("Expected status %d, got: %d", tc.expectedStatus, status)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "StructuredError",
			err:            New("test error").WithField("key", "value").WithCode("TEST_CODE"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"message"`,
		},
		{
			name:           "StandardError",
			err:            ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error": "resource not found"`,
		},
		{
			name:           "VideoRead",
			err:            NewVideoRead("/clips/intro.mp4", nil),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"video_path": "/clips/intro.mp4"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)

			// Check status code
			if rec.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got: %d", tc.expectedStatus, rec.Code)
			}

			// Check content type
			contentType := rec.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got: %s", contentType)
			}

			// Check response body contains expected strings
			body := rec.Body.String()
			if !strings.Contains(body, tc.expectedBody) {
				t.Errorf("Expected body to contain '%s', got: %s", tc.expectedBody, body)
			}
		})
	}
}
