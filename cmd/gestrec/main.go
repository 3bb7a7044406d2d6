package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
	"gestrec-server/pkg/feedback"
	"gestrec-server/pkg/gesture"
	http_server "gestrec-server/pkg/http"
	"gestrec-server/pkg/messaging"
	"gestrec-server/pkg/metrics"
	"gestrec-server/pkg/speech"
	"gestrec-server/pkg/util"
	"gestrec-server/pkg/version"
	"gestrec-server/pkg/video"
	"gestrec-server/pkg/vision"
)

var (
	logger     = logrus.New()
	appConfig  *config.Config
	amqpClient *messaging.AMQPClient
	pipeline   *gesture.Pipeline
	httpServer *http_server.Server
	wsHub      *http_server.ProgressHub
	pool       *util.DetectionPool

	// Context for graceful shutdown
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func main() {
	// Set up logger with basic configuration (will be updated after config is loaded)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetOutput(os.Stdout)

	// Initialize the root context for graceful shutdown
	rootCtx, rootCancel = context.WithCancel(context.Background())
	defer rootCancel()

	if err := initialize(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	if appConfig.HTTP.Enabled {
		httpServer.Start()
		logger.Info("HTTP server started")
	} else {
		logger.Info("HTTP server is disabled by configuration")
	}

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Received shutdown signal, cleaning up...")

	// Force exit if graceful shutdown hangs
	go func() {
		time.Sleep(20 * time.Second)
		logger.Error("Shutdown timed out, forcing exit")
		os.Exit(1)
	}()

	shutdown()
}

// initialize loads configuration and initializes all components
func initialize() error {
	var err error

	logger.WithField("version", version.Version).Info("Starting gesture analysis server")

	appConfig, err = config.Load(logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Apply logging configuration
	if err := appConfig.ApplyLogging(logger); err != nil {
		return fmt.Errorf("failed to apply logging configuration: %w", err)
	}
	logger.WithField("level", logger.GetLevel().String()).Info("Log level set")

	// Initialize metrics system
	metrics.StartMetrics(logger, appConfig.HTTP.EnableMetrics)

	// Verify the ffmpeg/ffprobe binaries before accepting any work
	executor, err := video.NewExecutor(logger, &appConfig.Video)
	if err != nil {
		return fmt.Errorf("failed to initialize video executor: %w", err)
	}

	// Register detector backends per configuration
	detectors := vision.NewDetectorManager(logger, appConfig.Detectors.FaceBackend, appConfig.Detectors.PoseBackend)

	var faceDetector vision.FaceDetector
	switch appConfig.Detectors.FaceBackend {
	case "mock":
		faceDetector = vision.NewMockFaceDetector(logger)
	default:
		faceDetector = vision.NewRemoteFaceDetector(logger, &appConfig.Detectors)
	}
	if err := detectors.RegisterFaceDetector(faceDetector); err != nil {
		return fmt.Errorf("failed to register face detector: %w", err)
	}

	var poseDetector vision.PoseDetector
	switch appConfig.Detectors.PoseBackend {
	case "mock":
		poseDetector = vision.NewMockPoseDetector(logger)
	default:
		poseDetector = vision.NewRemotePoseDetector(logger, &appConfig.Detectors)
	}
	if err := detectors.RegisterPoseDetector(poseDetector); err != nil {
		return fmt.Errorf("failed to register pose detector: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"face_backend": appConfig.Detectors.FaceBackend,
		"pose_backend": appConfig.Detectors.PoseBackend,
	}).Info("Detector backends registered")

	// Shared detection pool; all concurrent analyses draw from it
	workers := appConfig.Detectors.Parallelism * appConfig.Resources.MaxConcurrentAnalyses
	pool = util.NewDetectionPool(workers, 0)
	logger.WithField("workers", workers).Info("Detection worker pool started")

	pipeline = gesture.NewPipeline(logger, appConfig, detectors, pool, executor)

	// Optional speech transcriber for pacing analysis
	if appConfig.Speech.Enabled {
		var transcriber speech.Transcriber
		switch appConfig.Speech.Provider {
		case "mock":
			transcriber = speech.NewMockTranscriber(logger)
		default:
			transcriber = speech.NewGoogleTranscriber(logger, &appConfig.Speech)
		}

		if err := transcriber.Initialize(); err != nil {
			logger.WithError(err).Warn("Failed to initialize transcriber, pacing analysis disabled")
		} else {
			pipeline.SetTranscriber(transcriber)
			logger.WithField("provider", appConfig.Speech.Provider).Info("Speech transcriber initialized")
		}
	} else {
		logger.Debug("Speech transcription disabled")
	}

	// Feedback generation: generative backend when configured, template fallback always
	var backend feedback.Backend
	if appConfig.Feedback.GenerativeEnabled {
		client := feedback.NewGenerativeClient(logger, &appConfig.Feedback)
		if err := client.Initialize(); err != nil {
			logger.WithError(err).Warn("Generative feedback unavailable, using templates only")
		} else {
			backend = client
		}
	}
	pipeline.SetFeedbackGenerator(feedback.NewService(logger, backend))

	// Optional AMQP report publisher
	if appConfig.Messaging.AMQPUrl != "" && appConfig.Messaging.AMQPQueueName != "" {
		logger.Info("Initializing AMQP client")
		amqpClient = messaging.NewAMQPClient(logger, messaging.AMQPConfig{
			URL:       appConfig.Messaging.AMQPUrl,
			QueueName: appConfig.Messaging.AMQPQueueName,
		})
		if err := amqpClient.Connect(); err != nil {
			logger.WithError(err).Warn("Failed to connect to AMQP server, continuing without AMQP")
		} else {
			logger.Info("AMQP client initialized successfully")
		}
	} else {
		logger.Warn("AMQP not configured, reports will not be sent to message queue")
	}

	// Initialize HTTP server
	httpServerConfig := &http_server.Config{
		Port:            appConfig.HTTP.Port,
		Enabled:         appConfig.HTTP.Enabled,
		EnableMetrics:   appConfig.HTTP.EnableMetrics,
		EnableAPI:       appConfig.HTTP.EnableAPI,
		ReadTimeout:     appConfig.HTTP.ReadTimeout,
		WriteTimeout:    appConfig.HTTP.WriteTimeout,
		ShutdownTimeout: 5 * time.Second,
		MaxUploadMB:     appConfig.HTTP.MaxUploadMB,
		UploadDir:       appConfig.Video.TempDir,
	}
	httpServer = http_server.NewServer(logger, httpServerConfig, pipeline, detectors, pool)

	if amqpClient != nil {
		httpServer.SetPublisher(amqpClient)
	}

	// Create the progress hub and start it in a goroutine
	wsHub = http_server.NewProgressHub(logger)
	go wsHub.Run(rootCtx)
	httpServer.SetWebSocketHub(wsHub)

	return nil
}

// shutdown tears components down in dependency order
func shutdown() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Cancel the root context to signal shutdown to all goroutines
	rootCancel()

	// Shutdown HTTP server first so no new analyses start
	if httpServer != nil {
		logger.Debug("Shutting down HTTP server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error shutting down HTTP server")
		} else {
			logger.Info("HTTP server shut down successfully")
		}
	}

	// Disconnect from AMQP
	if amqpClient != nil && amqpClient.IsConnected() {
		logger.Debug("Disconnecting from AMQP...")
		amqpClient.Disconnect()
		logger.Info("AMQP disconnected")
	}

	// Drain queued detection tasks
	if pool != nil {
		logger.Debug("Shutting down detection pool...")
		pool.Shutdown(10 * time.Second)
		logger.Info("Detection pool shut down")
	}

	// Allow progress hub clients a moment to observe the close
	select {
	case <-shutdownCtx.Done():
		logger.Warn("Global shutdown timed out, forcing exit")
	case <-time.After(500 * time.Millisecond):
		logger.Info("All components shut down successfully")
	}

	logger.Info("Application shut down gracefully")
}
