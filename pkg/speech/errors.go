package speech

import (
	"errors"
)

// Common errors for speech-to-text operations
var (
	// ErrInitializationFailed indicates the transcriber was used before a
	// successful Initialize
	ErrInitializationFailed = errors.New("speech-to-text client initialization failed")

	// ErrNoCredentials indicates the configured provider has no usable credentials
	ErrNoCredentials = errors.New("no speech-to-text credentials provided")
)
