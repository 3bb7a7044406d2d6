package vision

import (
	"errors"
)

// Error definitions
var (
	ErrNoDetectorAvailable  = errors.New("no detector available")
	ErrDetectorNotFound     = errors.New("requested detector not found")
	ErrInitializationFailed = errors.New("detector initialization failed")
	ErrDetectionFailed      = errors.New("detection request failed")
)
