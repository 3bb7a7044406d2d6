package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gestrec-server/pkg/errors"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents the complete application configuration
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Video     VideoConfig     `json:"video"`
	Detectors DetectorConfig  `json:"detectors"`
	Scoring   ScoringConfig   `json:"scoring"`
	Speech    SpeechConfig    `json:"speech"`
	Feedback  FeedbackConfig  `json:"feedback"`
	Messaging MessagingConfig `json:"messaging"`
	Logging   LoggingConfig   `json:"logging"`
	Resources ResourceConfig  `json:"resources"`
}

// HTTPConfig holds the HTTP server configuration
type HTTPConfig struct {
	Enabled       bool          `json:"enabled" env:"HTTP_ENABLED" default:"true"`
	Port          int           `json:"port" env:"HTTP_PORT" default:"8080"`
	ReadTimeout   time.Duration `json:"read_timeout" env:"HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout  time.Duration `json:"write_timeout" env:"HTTP_WRITE_TIMEOUT" default:"10m"`
	EnableMetrics bool          `json:"enable_metrics" env:"HTTP_ENABLE_METRICS" default:"true"`
	EnableAPI     bool          `json:"enable_api" env:"HTTP_ENABLE_API" default:"true"`

	// Maximum accepted upload size for video files, in megabytes
	MaxUploadMB int64 `json:"max_upload_mb" env:"HTTP_MAX_UPLOAD_MB" default:"512"`
}

// VideoConfig holds frame extraction configuration
type VideoConfig struct {
	FFmpegPath  string `json:"ffmpeg_path" env:"VIDEO_FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath string `json:"ffprobe_path" env:"VIDEO_FFPROBE_PATH" default:"ffprobe"`

	// Directory for uploaded videos and extracted audio; cleaned per analysis
	TempDir string `json:"temp_dir" env:"VIDEO_TEMP_DIR" default:""`

	// Longest video accepted for analysis
	MaxDuration time.Duration `json:"max_duration" env:"VIDEO_MAX_DURATION" default:"30m"`

	// Explicit sample rate override; 0 selects the adaptive policy
	SampleFPS float64 `json:"sample_fps" env:"VIDEO_SAMPLE_FPS" default:"0"`

	// JPEG quality for extracted frames (ffmpeg -q:v, 2 best .. 31 worst)
	JPEGQuality int `json:"jpeg_quality" env:"VIDEO_JPEG_QUALITY" default:"4"`
}

// DetectorConfig selects and configures the face and pose detector backends
type DetectorConfig struct {
	// Backend names: "mock" or "remote"
	FaceBackend string `json:"face_backend" env:"DETECTOR_FACE_BACKEND" default:"remote"`
	PoseBackend string `json:"pose_backend" env:"DETECTOR_POSE_BACKEND" default:"remote"`

	// Remote sidecar endpoints (one service may serve both paths)
	RemoteFaceURL string `json:"remote_face_url" env:"DETECTOR_REMOTE_FACE_URL" default:"http://localhost:9090/v1/face"`
	RemotePoseURL string `json:"remote_pose_url" env:"DETECTOR_REMOTE_POSE_URL" default:"http://localhost:9090/v1/pose"`

	// Per-frame request timeout against the sidecar
	RequestTimeout time.Duration `json:"request_timeout" env:"DETECTOR_REQUEST_TIMEOUT" default:"10s"`

	// Parallel per-frame detector calls per modality task; 1 = sequential
	Parallelism int `json:"parallelism" env:"DETECTOR_PARALLELISM" default:"4"`
}

// ScoringConfig exposes the scoring weights and thresholds as configuration.
// These are product-tuning constants; the defaults are the calibrated values
// and changing them changes reported scores.
type ScoringConfig struct {
	// Facial signal extraction
	SmileCurvatureThreshold float64 `json:"smile_curvature_threshold" env:"SCORING_SMILE_CURVATURE_THRESHOLD" default:"-0.15"`
	ExpressivenessScale     float64 `json:"expressiveness_scale" env:"SCORING_EXPRESSIVENESS_SCALE" default:"10"`
	NeutralExpressiveness   float64 `json:"neutral_expressiveness" env:"SCORING_NEUTRAL_EXPRESSIVENESS" default:"0.5"`
	EyeOpennessScale        float64 `json:"eye_openness_scale" env:"SCORING_EYE_OPENNESS_SCALE" default:"20"`
	NeutralEngagement       float64 `json:"neutral_engagement" env:"SCORING_NEUTRAL_ENGAGEMENT" default:"0.5"`

	// Gaze classification
	GazeMinEyeOpenness float64 `json:"gaze_min_eye_openness" env:"SCORING_GAZE_MIN_EYE_OPENNESS" default:"0.3"`
	GazeStrongYaw      float64 `json:"gaze_strong_yaw" env:"SCORING_GAZE_STRONG_YAW" default:"25"`
	GazeMaxPupilOffset float64 `json:"gaze_max_pupil_offset" env:"SCORING_GAZE_MAX_PUPIL_OFFSET" default:"0.15"`
	GazePitchLimit     float64 `json:"gaze_pitch_limit" env:"SCORING_GAZE_PITCH_LIMIT" default:"15"`
	GazeYawLimit       float64 `json:"gaze_yaw_limit" env:"SCORING_GAZE_YAW_LIMIT" default:"20"`

	// Posture signal extraction
	MinKeypointConfidence   float64 `json:"min_keypoint_confidence" env:"SCORING_MIN_KEYPOINT_CONFIDENCE" default:"0.3"`
	ShoulderAlignmentWeight float64 `json:"shoulder_alignment_weight" env:"SCORING_SHOULDER_ALIGNMENT_WEIGHT" default:"0.6"`
	VerticalPostureWeight   float64 `json:"vertical_posture_weight" env:"SCORING_VERTICAL_POSTURE_WEIGHT" default:"0.4"`

	// Aggregation
	MinDetectionRate      float64 `json:"min_detection_rate" env:"SCORING_MIN_DETECTION_RATE" default:"0.30"`
	IdealMovementVariance float64 `json:"ideal_movement_variance" env:"SCORING_IDEAL_MOVEMENT_VARIANCE" default:"0.01"`
	ConsistencySlope      float64 `json:"consistency_slope" env:"SCORING_CONSISTENCY_SLOPE" default:"50"`
	RigidVarianceMax      float64 `json:"rigid_variance_max" env:"SCORING_RIGID_VARIANCE_MAX" default:"0.001"`
	RigidStabilityScore   float64 `json:"rigid_stability_score" env:"SCORING_RIGID_STABILITY_SCORE" default:"0.6"`
	ExcessVarianceMin     float64 `json:"excess_variance_min" env:"SCORING_EXCESS_VARIANCE_MIN" default:"0.03"`
	ExcessStabilitySlope  float64 `json:"excess_stability_slope" env:"SCORING_EXCESS_STABILITY_SLOPE" default:"20"`

	// Per-modality score weights
	FacialSmileWeight       float64 `json:"facial_smile_weight" env:"SCORING_FACIAL_SMILE_WEIGHT" default:"0.30"`
	FacialVarietyWeight     float64 `json:"facial_variety_weight" env:"SCORING_FACIAL_VARIETY_WEIGHT" default:"0.35"`
	FacialEngagementWeight  float64 `json:"facial_engagement_weight" env:"SCORING_FACIAL_ENGAGEMENT_WEIGHT" default:"0.35"`
	PostureConfidenceWeight float64 `json:"posture_confidence_weight" env:"SCORING_POSTURE_CONFIDENCE_WEIGHT" default:"0.50"`
	PostureMovementWeight   float64 `json:"posture_movement_weight" env:"SCORING_POSTURE_MOVEMENT_WEIGHT" default:"0.25"`
	PostureStabilityWeight  float64 `json:"posture_stability_weight" env:"SCORING_POSTURE_STABILITY_WEIGHT" default:"0.25"`
	EyeContactFocusWeight   float64 `json:"eye_contact_focus_weight" env:"SCORING_EYE_CONTACT_FOCUS_WEIGHT" default:"0.65"`
	EyeContactGazeWeight    float64 `json:"eye_contact_gaze_weight" env:"SCORING_EYE_CONTACT_GAZE_WEIGHT" default:"0.35"`

	// Fusion
	FusionMinRate        float64 `json:"fusion_min_rate" env:"SCORING_FUSION_MIN_RATE" default:"0.5"`
	OverallFacialWeight  float64 `json:"overall_facial_weight" env:"SCORING_OVERALL_FACIAL_WEIGHT" default:"0.55"`
	OverallPostureWeight float64 `json:"overall_posture_weight" env:"SCORING_OVERALL_POSTURE_WEIGHT" default:"0.45"`
}

// SpeechConfig holds transcription and pacing configuration
type SpeechConfig struct {
	Enabled  bool   `json:"enabled" env:"SPEECH_ENABLED" default:"false"`
	Provider string `json:"provider" env:"SPEECH_PROVIDER" default:"google"`

	// Google Cloud Speech credentials; API key takes precedence
	GoogleAPIKey          string `json:"-" env:"GOOGLE_STT_API_KEY"`
	GoogleCredentialsFile string `json:"google_credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`

	Language   string `json:"language" env:"SPEECH_LANGUAGE" default:"en-US"`
	SampleRate int    `json:"sample_rate" env:"SPEECH_SAMPLE_RATE" default:"16000"`

	// Pacing score tuning
	IdealWPM   float64 `json:"ideal_wpm" env:"SPEECH_IDEAL_WPM" default:"140"`
	FloorScore int     `json:"floor_score" env:"SPEECH_FLOOR_SCORE" default:"50"`
}

// FeedbackConfig holds generative feedback backend configuration
type FeedbackConfig struct {
	GenerativeEnabled bool          `json:"generative_enabled" env:"FEEDBACK_GENERATIVE_ENABLED" default:"false"`
	BaseURL           string        `json:"base_url" env:"FEEDBACK_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey            string        `json:"-" env:"OPENAI_API_KEY"`
	Model             string        `json:"model" env:"FEEDBACK_MODEL" default:"gpt-4o-mini"`
	RequestTimeout    time.Duration `json:"request_timeout" env:"FEEDBACK_REQUEST_TIMEOUT" default:"30s"`
	MaxTokens         int           `json:"max_tokens" env:"FEEDBACK_MAX_TOKENS" default:"400"`
}

// MessagingConfig holds AMQP publisher configuration
type MessagingConfig struct {
	AMQPUrl       string `json:"amqp_url" env:"AMQP_URL"`
	AMQPQueueName string `json:"amqp_queue_name" env:"AMQP_QUEUE_NAME"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL" default:"info"`
	Format     string `json:"format" env:"LOG_FORMAT" default:"json"`
	OutputFile string `json:"output_file" env:"LOG_OUTPUT_FILE"`
}

// ResourceConfig holds resource limit configuration
type ResourceConfig struct {
	// Analyses processed at the same time; further requests queue on the handler
	MaxConcurrentAnalyses int `json:"max_concurrent_analyses" env:"MAX_CONCURRENT_ANALYSES" default:"2"`
}

// Load loads the configuration from environment variables and .env files
func Load(logger *logrus.Logger) (*Config, error) {
	// Get current working directory
	wd, err := os.Getwd()
	if err != nil {
		logger.WithError(err).Warn("Failed to get current working directory")
		wd = "unknown"
	}

	// Define possible locations for .env file
	possibleEnvFiles := []string{
		".env",                    // Current directory
		"../.env",                 // Parent directory
		filepath.Join(wd, ".env"), // Absolute path
	}

	// Try loading .env file from each possible location
	var loadedFrom string
	var loadErr error

	for _, envFile := range possibleEnvFiles {
		// Try to load this .env file
		if _, statErr := os.Stat(envFile); statErr == nil {
			absPath, _ := filepath.Abs(envFile)
			logger.WithField("path", absPath).Debug("Attempting to load .env file")

			if loadErr = godotenv.Load(envFile); loadErr == nil {
				loadedFrom = absPath
				break
			}
		}
	}

	// If all attempts failed, try default Load() which uses working directory
	if loadedFrom == "" {
		if loadErr = godotenv.Load(); loadErr == nil {
			if _, statErr := os.Stat(".env"); statErr == nil {
				loadedFrom, _ = filepath.Abs(".env")
			}
		}
	}

	// Report results
	if loadedFrom != "" {
		logger.WithFields(logrus.Fields{
			"working_dir": wd,
			"path":        loadedFrom,
		}).Info("Successfully loaded .env file")
	} else {
		logger.WithField("working_dir", wd).Warn("No .env file found, using environment variables only")
	}

	// Initialize config with default values
	config := &Config{}

	// Load HTTP configuration
	if err := loadHTTPConfig(logger, &config.HTTP); err != nil {
		return nil, errors.Wrap(err, "failed to load HTTP configuration")
	}

	// Load video configuration
	if err := loadVideoConfig(logger, &config.Video); err != nil {
		return nil, errors.Wrap(err, "failed to load video configuration")
	}

	// Load detector configuration
	if err := loadDetectorConfig(logger, &config.Detectors); err != nil {
		return nil, errors.Wrap(err, "failed to load detector configuration")
	}

	// Load scoring configuration
	if err := loadScoringConfig(logger, &config.Scoring); err != nil {
		return nil, errors.Wrap(err, "failed to load scoring configuration")
	}

	// Load speech configuration
	if err := loadSpeechConfig(logger, &config.Speech); err != nil {
		return nil, errors.Wrap(err, "failed to load speech configuration")
	}

	// Load feedback configuration
	if err := loadFeedbackConfig(logger, &config.Feedback); err != nil {
		return nil, errors.Wrap(err, "failed to load feedback configuration")
	}

	// Load messaging configuration
	if err := loadMessagingConfig(logger, &config.Messaging); err != nil {
		return nil, errors.Wrap(err, "failed to load messaging configuration")
	}

	// Load logging configuration
	if err := loadLoggingConfig(logger, &config.Logging); err != nil {
		return nil, errors.Wrap(err, "failed to load logging configuration")
	}

	// Load resource configuration
	if err := loadResourceConfig(logger, &config.Resources); err != nil {
		return nil, errors.Wrap(err, "failed to load resource configuration")
	}

	return config, nil
}

// loadHTTPConfig loads the HTTP server configuration section
func loadHTTPConfig(logger *logrus.Logger, config *HTTPConfig) error {
	// Load HTTP port
	httpPortStr := getEnv("HTTP_PORT", "8080")
	httpPort, err := strconv.Atoi(httpPortStr)
	if err != nil || httpPort < 1 || httpPort > 65535 {
		logger.Warn("Invalid HTTP_PORT value, using default: 8080")
		config.Port = 8080
	} else {
		config.Port = httpPort
	}

	// Load feature flags
	config.Enabled = getEnvBool("HTTP_ENABLED", true)
	config.EnableMetrics = getEnvBool("HTTP_ENABLE_METRICS", true)
	config.EnableAPI = getEnvBool("HTTP_ENABLE_API", true)

	// Load timeouts; writes stay open for the full analysis on the synchronous path
	config.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second)
	config.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Minute)

	// Load upload limit
	maxUpload := getEnvInt("HTTP_MAX_UPLOAD_MB", 512)
	if maxUpload < 1 {
		logger.Warn("Invalid HTTP_MAX_UPLOAD_MB value, using default: 512")
		maxUpload = 512
	}
	config.MaxUploadMB = int64(maxUpload)

	return nil
}

// loadVideoConfig loads the video processing configuration section
func loadVideoConfig(logger *logrus.Logger, config *VideoConfig) error {
	config.FFmpegPath = getEnv("VIDEO_FFMPEG_PATH", "ffmpeg")
	config.FFprobePath = getEnv("VIDEO_FFPROBE_PATH", "ffprobe")

	// Load temp directory, defaulting to the system temp dir
	config.TempDir = getEnv("VIDEO_TEMP_DIR", "")
	if config.TempDir == "" {
		config.TempDir = filepath.Join(os.TempDir(), "gestrec")
	}

	config.MaxDuration = getEnvDuration("VIDEO_MAX_DURATION", 30*time.Minute)

	// Explicit sample rate; 0 keeps the adaptive duration-based policy
	config.SampleFPS = getEnvFloat("VIDEO_SAMPLE_FPS", 0)
	if config.SampleFPS < 0 {
		logger.Warn("Invalid VIDEO_SAMPLE_FPS value, using adaptive policy")
		config.SampleFPS = 0
	}

	jpegQuality := getEnvInt("VIDEO_JPEG_QUALITY", 4)
	if jpegQuality < 2 || jpegQuality > 31 {
		logger.Warn("Invalid VIDEO_JPEG_QUALITY value, using default: 4")
		jpegQuality = 4
	}
	config.JPEGQuality = jpegQuality

	return nil
}

// loadDetectorConfig loads the detector backend configuration section
func loadDetectorConfig(logger *logrus.Logger, config *DetectorConfig) error {
	config.FaceBackend = strings.ToLower(getEnv("DETECTOR_FACE_BACKEND", "remote"))
	if config.FaceBackend != "remote" && config.FaceBackend != "mock" {
		logger.WithField("backend", config.FaceBackend).Warn("Unknown DETECTOR_FACE_BACKEND, defaulting to remote")
		config.FaceBackend = "remote"
	}

	config.PoseBackend = strings.ToLower(getEnv("DETECTOR_POSE_BACKEND", "remote"))
	if config.PoseBackend != "remote" && config.PoseBackend != "mock" {
		logger.WithField("backend", config.PoseBackend).Warn("Unknown DETECTOR_POSE_BACKEND, defaulting to remote")
		config.PoseBackend = "remote"
	}

	config.RemoteFaceURL = getEnv("DETECTOR_REMOTE_FACE_URL", "http://localhost:9090/v1/face")
	config.RemotePoseURL = getEnv("DETECTOR_REMOTE_POSE_URL", "http://localhost:9090/v1/pose")
	config.RequestTimeout = getEnvDuration("DETECTOR_REQUEST_TIMEOUT", 10*time.Second)

	parallelism := getEnvInt("DETECTOR_PARALLELISM", 4)
	if parallelism < 1 {
		logger.Warn("Invalid DETECTOR_PARALLELISM value, using default: 4")
		parallelism = 4
	}
	config.Parallelism = parallelism

	return nil
}

// loadScoringConfig loads the scoring weights and thresholds
func loadScoringConfig(logger *logrus.Logger, config *ScoringConfig) error {
	*config = DefaultScoringConfig()

	config.SmileCurvatureThreshold = getEnvFloat("SCORING_SMILE_CURVATURE_THRESHOLD", config.SmileCurvatureThreshold)
	config.ExpressivenessScale = getEnvFloat("SCORING_EXPRESSIVENESS_SCALE", config.ExpressivenessScale)
	config.NeutralExpressiveness = getEnvFloat("SCORING_NEUTRAL_EXPRESSIVENESS", config.NeutralExpressiveness)
	config.EyeOpennessScale = getEnvFloat("SCORING_EYE_OPENNESS_SCALE", config.EyeOpennessScale)
	config.NeutralEngagement = getEnvFloat("SCORING_NEUTRAL_ENGAGEMENT", config.NeutralEngagement)

	config.GazeMinEyeOpenness = getEnvFloat("SCORING_GAZE_MIN_EYE_OPENNESS", config.GazeMinEyeOpenness)
	config.GazeStrongYaw = getEnvFloat("SCORING_GAZE_STRONG_YAW", config.GazeStrongYaw)
	config.GazeMaxPupilOffset = getEnvFloat("SCORING_GAZE_MAX_PUPIL_OFFSET", config.GazeMaxPupilOffset)
	config.GazePitchLimit = getEnvFloat("SCORING_GAZE_PITCH_LIMIT", config.GazePitchLimit)
	config.GazeYawLimit = getEnvFloat("SCORING_GAZE_YAW_LIMIT", config.GazeYawLimit)

	config.MinKeypointConfidence = getEnvFloat("SCORING_MIN_KEYPOINT_CONFIDENCE", config.MinKeypointConfidence)
	config.ShoulderAlignmentWeight = getEnvFloat("SCORING_SHOULDER_ALIGNMENT_WEIGHT", config.ShoulderAlignmentWeight)
	config.VerticalPostureWeight = getEnvFloat("SCORING_VERTICAL_POSTURE_WEIGHT", config.VerticalPostureWeight)

	config.MinDetectionRate = getEnvFloat("SCORING_MIN_DETECTION_RATE", config.MinDetectionRate)
	config.IdealMovementVariance = getEnvFloat("SCORING_IDEAL_MOVEMENT_VARIANCE", config.IdealMovementVariance)
	config.ConsistencySlope = getEnvFloat("SCORING_CONSISTENCY_SLOPE", config.ConsistencySlope)
	config.RigidVarianceMax = getEnvFloat("SCORING_RIGID_VARIANCE_MAX", config.RigidVarianceMax)
	config.RigidStabilityScore = getEnvFloat("SCORING_RIGID_STABILITY_SCORE", config.RigidStabilityScore)
	config.ExcessVarianceMin = getEnvFloat("SCORING_EXCESS_VARIANCE_MIN", config.ExcessVarianceMin)
	config.ExcessStabilitySlope = getEnvFloat("SCORING_EXCESS_STABILITY_SLOPE", config.ExcessStabilitySlope)

	config.FacialSmileWeight = getEnvFloat("SCORING_FACIAL_SMILE_WEIGHT", config.FacialSmileWeight)
	config.FacialVarietyWeight = getEnvFloat("SCORING_FACIAL_VARIETY_WEIGHT", config.FacialVarietyWeight)
	config.FacialEngagementWeight = getEnvFloat("SCORING_FACIAL_ENGAGEMENT_WEIGHT", config.FacialEngagementWeight)
	config.PostureConfidenceWeight = getEnvFloat("SCORING_POSTURE_CONFIDENCE_WEIGHT", config.PostureConfidenceWeight)
	config.PostureMovementWeight = getEnvFloat("SCORING_POSTURE_MOVEMENT_WEIGHT", config.PostureMovementWeight)
	config.PostureStabilityWeight = getEnvFloat("SCORING_POSTURE_STABILITY_WEIGHT", config.PostureStabilityWeight)
	config.EyeContactFocusWeight = getEnvFloat("SCORING_EYE_CONTACT_FOCUS_WEIGHT", config.EyeContactFocusWeight)
	config.EyeContactGazeWeight = getEnvFloat("SCORING_EYE_CONTACT_GAZE_WEIGHT", config.EyeContactGazeWeight)

	config.FusionMinRate = getEnvFloat("SCORING_FUSION_MIN_RATE", config.FusionMinRate)
	config.OverallFacialWeight = getEnvFloat("SCORING_OVERALL_FACIAL_WEIGHT", config.OverallFacialWeight)
	config.OverallPostureWeight = getEnvFloat("SCORING_OVERALL_POSTURE_WEIGHT", config.OverallPostureWeight)

	// Per-modality and fusion weights must stay normalized or scores drift
	// outside 0-100
	facialSum := config.FacialSmileWeight + config.FacialVarietyWeight + config.FacialEngagementWeight
	if facialSum < 0.99 || facialSum > 1.01 {
		logger.WithField("sum", facialSum).Warn("Facial score weights do not sum to 1.0, reverting to defaults")
		defaults := DefaultScoringConfig()
		config.FacialSmileWeight = defaults.FacialSmileWeight
		config.FacialVarietyWeight = defaults.FacialVarietyWeight
		config.FacialEngagementWeight = defaults.FacialEngagementWeight
	}

	postureSum := config.PostureConfidenceWeight + config.PostureMovementWeight + config.PostureStabilityWeight
	if postureSum < 0.99 || postureSum > 1.01 {
		logger.WithField("sum", postureSum).Warn("Posture score weights do not sum to 1.0, reverting to defaults")
		defaults := DefaultScoringConfig()
		config.PostureConfidenceWeight = defaults.PostureConfidenceWeight
		config.PostureMovementWeight = defaults.PostureMovementWeight
		config.PostureStabilityWeight = defaults.PostureStabilityWeight
	}

	overallSum := config.OverallFacialWeight + config.OverallPostureWeight
	if overallSum < 0.99 || overallSum > 1.01 {
		logger.WithField("sum", overallSum).Warn("Overall fusion weights do not sum to 1.0, reverting to defaults")
		defaults := DefaultScoringConfig()
		config.OverallFacialWeight = defaults.OverallFacialWeight
		config.OverallPostureWeight = defaults.OverallPostureWeight
	}

	return nil
}

// DefaultScoringConfig returns the calibrated scoring constants
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SmileCurvatureThreshold: -0.15,
		ExpressivenessScale:     10,
		NeutralExpressiveness:   0.5,
		EyeOpennessScale:        20,
		NeutralEngagement:       0.5,

		GazeMinEyeOpenness: 0.3,
		GazeStrongYaw:      25,
		GazeMaxPupilOffset: 0.15,
		GazePitchLimit:     15,
		GazeYawLimit:       20,

		MinKeypointConfidence:   0.3,
		ShoulderAlignmentWeight: 0.6,
		VerticalPostureWeight:   0.4,

		MinDetectionRate:      0.30,
		IdealMovementVariance: 0.01,
		ConsistencySlope:      50,
		RigidVarianceMax:      0.001,
		RigidStabilityScore:   0.6,
		ExcessVarianceMin:     0.03,
		ExcessStabilitySlope:  20,

		FacialSmileWeight:       0.30,
		FacialVarietyWeight:     0.35,
		FacialEngagementWeight:  0.35,
		PostureConfidenceWeight: 0.50,
		PostureMovementWeight:   0.25,
		PostureStabilityWeight:  0.25,
		EyeContactFocusWeight:   0.65,
		EyeContactGazeWeight:    0.35,

		FusionMinRate:        0.5,
		OverallFacialWeight:  0.55,
		OverallPostureWeight: 0.45,
	}
}

// loadSpeechConfig loads the transcription configuration section
func loadSpeechConfig(logger *logrus.Logger, config *SpeechConfig) error {
	config.Enabled = getEnvBool("SPEECH_ENABLED", false)

	config.Provider = strings.ToLower(getEnv("SPEECH_PROVIDER", "google"))
	if config.Provider != "google" && config.Provider != "mock" {
		logger.WithField("provider", config.Provider).Warn("Unknown SPEECH_PROVIDER, defaulting to google")
		config.Provider = "google"
	}

	config.GoogleAPIKey = getEnv("GOOGLE_STT_API_KEY", "")
	config.GoogleCredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	config.Language = getEnv("SPEECH_LANGUAGE", "en-US")

	sampleRate := getEnvInt("SPEECH_SAMPLE_RATE", 16000)
	if sampleRate < 8000 || sampleRate > 48000 {
		logger.Warn("Invalid SPEECH_SAMPLE_RATE value, using default: 16000")
		sampleRate = 16000
	}
	config.SampleRate = sampleRate

	config.IdealWPM = getEnvFloat("SPEECH_IDEAL_WPM", 140)
	if config.IdealWPM <= 0 {
		logger.Warn("Invalid SPEECH_IDEAL_WPM value, using default: 140")
		config.IdealWPM = 140
	}

	floorScore := getEnvInt("SPEECH_FLOOR_SCORE", 50)
	if floorScore < 0 || floorScore > 100 {
		logger.Warn("Invalid SPEECH_FLOOR_SCORE value, using default: 50")
		floorScore = 50
	}
	config.FloorScore = floorScore

	if config.Enabled && config.Provider == "google" &&
		config.GoogleAPIKey == "" && config.GoogleCredentialsFile == "" {
		logger.Warn("Speech enabled but no Google credentials provided, pacing analysis will be skipped")
	}

	return nil
}

// loadFeedbackConfig loads the generative feedback configuration section
func loadFeedbackConfig(logger *logrus.Logger, config *FeedbackConfig) error {
	config.GenerativeEnabled = getEnvBool("FEEDBACK_GENERATIVE_ENABLED", false)
	config.BaseURL = strings.TrimRight(getEnv("FEEDBACK_BASE_URL", "https://api.openai.com/v1"), "/")
	config.APIKey = getEnv("OPENAI_API_KEY", "")
	config.Model = getEnv("FEEDBACK_MODEL", "gpt-4o-mini")
	config.RequestTimeout = getEnvDuration("FEEDBACK_REQUEST_TIMEOUT", 30*time.Second)

	maxTokens := getEnvInt("FEEDBACK_MAX_TOKENS", 400)
	if maxTokens < 50 {
		logger.Warn("Invalid FEEDBACK_MAX_TOKENS value, using default: 400")
		maxTokens = 400
	}
	config.MaxTokens = maxTokens

	if config.GenerativeEnabled && config.APIKey == "" {
		logger.Warn("Generative feedback enabled but OPENAI_API_KEY is not set, template fallback will be used")
	}

	return nil
}

// loadMessagingConfig loads the messaging configuration section
func loadMessagingConfig(logger *logrus.Logger, config *MessagingConfig) error {
	config.AMQPUrl = getEnv("AMQP_URL", "")
	config.AMQPQueueName = getEnv("AMQP_QUEUE_NAME", "")

	// Validate AMQP config
	if (config.AMQPUrl != "" && config.AMQPQueueName == "") || (config.AMQPUrl == "" && config.AMQPQueueName != "") {
		logger.Warn("Incomplete AMQP configuration: both AMQP_URL and AMQP_QUEUE_NAME must be provided")
	}

	return nil
}

// loadLoggingConfig loads the logging configuration section
func loadLoggingConfig(logger *logrus.Logger, config *LoggingConfig) error {
	// Load log level
	config.Level = getEnv("LOG_LEVEL", "info")

	// Validate log level
	_, err := logrus.ParseLevel(config.Level)
	if err != nil {
		logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to 'info'", config.Level)
		config.Level = "info"
	}

	// Load log format
	config.Format = getEnv("LOG_FORMAT", "json")
	if config.Format != "json" && config.Format != "text" {
		logger.Warn("Invalid LOG_FORMAT, must be 'json' or 'text', defaulting to 'json'")
		config.Format = "json"
	}

	// Load log output file
	config.OutputFile = getEnv("LOG_OUTPUT_FILE", "")

	return nil
}

// loadResourceConfig loads the resource limit configuration section
func loadResourceConfig(logger *logrus.Logger, config *ResourceConfig) error {
	maxConcurrent := getEnvInt("MAX_CONCURRENT_ANALYSES", 2)
	if maxConcurrent < 1 {
		logger.Warn("Invalid MAX_CONCURRENT_ANALYSES value, using default: 2")
		maxConcurrent = 2
	}
	config.MaxConcurrentAnalyses = maxConcurrent

	return nil
}

// ApplyLogging configures the logger from the loaded logging section
func (c *Config) ApplyLogging(logger *logrus.Logger) error {
	// Set log level
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("invalid log level: %s", c.Logging.Level))
	}
	logger.SetLevel(level)

	// Set log format
	if c.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}

	// Set log output
	if c.Logging.OutputFile != "" {
		f, err := os.OpenFile(c.Logging.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to open log file: %s", c.Logging.OutputFile))
		}
		logger.SetOutput(f)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return nil
}

// Helper function to get an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Helper function to get a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

// Helper function to get an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// Helper function to get a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getEnvFloat retrieves an environment variable and converts it to float64
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatValue
}
