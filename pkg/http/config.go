package http

import "time"

// Config holds the HTTP server configuration
type Config struct {
	// Port is the HTTP server port
	Port int `json:"port" env:"HTTP_PORT" default:"8080"`

	// Enabled determines if the HTTP server should be started
	Enabled bool `json:"enabled" env:"HTTP_ENABLED" default:"true"`

	// EnableMetrics determines if the Prometheus endpoint is registered
	EnableMetrics bool `json:"enable_metrics" env:"HTTP_ENABLE_METRICS" default:"true"`

	// EnableAPI determines if the analysis API endpoints are registered
	EnableAPI bool `json:"enable_api" env:"HTTP_ENABLE_API" default:"true"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `json:"read_timeout" env:"HTTP_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Analyze requests hold the connection for the whole run, so
	// this bounds the longest accepted video.
	WriteTimeout time.Duration `json:"write_timeout" env:"HTTP_WRITE_TIMEOUT" default:"10m"`

	// ShutdownTimeout is the maximum duration to wait for the server to
	// shut down
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`

	// MaxUploadMB caps multipart video uploads, in megabytes
	MaxUploadMB int64 `json:"max_upload_mb" env:"HTTP_MAX_UPLOAD_MB" default:"512"`

	// UploadDir receives uploaded videos; empty means the OS temp dir
	UploadDir string `json:"upload_dir" env:"HTTP_UPLOAD_DIR"`
}

// DefaultConfig returns default configuration for the HTTP server
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		Enabled:         true,
		EnableMetrics:   true,
		EnableAPI:       true,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		ShutdownTimeout: 5 * time.Second,
		MaxUploadMB:     512,
	}
}
