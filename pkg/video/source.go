package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
	"gestrec-server/pkg/errors"
	"gestrec-server/pkg/metrics"
)

// Frame is one sampled video frame, owned by the pipeline for the duration
// of per-frame extraction
type Frame struct {
	Index     int
	Timestamp float64
	Image     []byte
}

// Source yields metadata, sampled frames and the audio track of one video
type Source interface {
	// Duration returns the video length in seconds
	Duration() float64

	// Dimensions returns the video width and height in pixels
	Dimensions() (int, int)

	// HasAudio reports whether the video carries an audio track
	HasAudio() bool

	// ExtractFrames decodes the video into frames at the given rate.
	// Individual undecodable frames are skipped; an empty result is an
	// error.
	ExtractFrames(ctx context.Context, fps float64) ([]Frame, error)

	// ExtractAudio writes the audio track as a mono PCM WAV file and
	// returns its path
	ExtractAudio(ctx context.Context, sampleRate int) (string, error)

	// Close removes any temporary files the source produced
	Close() error
}

// FileSource implements Source for a local video file
type FileSource struct {
	logger   *logrus.Logger
	executor *Executor
	quality  int
	info     *Info
	workDir  string
}

// OpenFile probes a video file and prepares a scratch directory for
// extracted artifacts. A file that cannot be probed, has no duration or
// exceeds the configured maximum fails with a video read error.
func OpenFile(ctx context.Context, logger *logrus.Logger, executor *Executor, cfg *config.VideoConfig, path string) (*FileSource, error) {
	info, err := executor.Probe(ctx, path)
	if err != nil {
		return nil, errors.NewVideoRead(path, err)
	}
	if info.Duration <= 0 {
		return nil, errors.NewVideoRead(path, fmt.Errorf("video has no duration"))
	}
	if cfg.MaxDuration > 0 && info.Duration > cfg.MaxDuration {
		return nil, errors.NewVideoRead(path, fmt.Errorf("video duration %s exceeds maximum %s", info.Duration, cfg.MaxDuration))
	}

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, errors.NewVideoRead(path, fmt.Errorf("failed to create temp directory: %w", err))
	}
	workDir, err := os.MkdirTemp(cfg.TempDir, "analysis-*")
	if err != nil {
		return nil, errors.NewVideoRead(path, fmt.Errorf("failed to create scratch directory: %w", err))
	}

	return &FileSource{
		logger:   logger,
		executor: executor,
		quality:  cfg.JPEGQuality,
		info:     info,
		workDir:  workDir,
	}, nil
}

// Duration returns the video length in seconds
func (s *FileSource) Duration() float64 {
	return s.info.Duration.Seconds()
}

// Dimensions returns the video width and height in pixels
func (s *FileSource) Dimensions() (int, int) {
	return s.info.Width, s.info.Height
}

// HasAudio reports whether the video carries an audio track
func (s *FileSource) HasAudio() bool {
	return s.info.HasAudio
}

// ExtractFrames decodes the video at the given rate and loads each frame
// into memory. Frames whose files cannot be read back are logged and
// skipped; zero readable frames is a frame extraction error.
func (s *FileSource) ExtractFrames(ctx context.Context, fps float64) ([]Frame, error) {
	files, err := s.executor.ExtractFrames(ctx, s.info.Path, s.workDir, fps, s.quality)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.NewFrameExtraction(s.info.Path).WithField("cause", err.Error())
	}

	frames := make([]Frame, 0, len(files))
	failed := 0
	for i, file := range files {
		image, err := os.ReadFile(file)
		if err != nil {
			failed++
			s.logger.WithFields(logrus.Fields{
				"frame": file,
				"error": err,
			}).Warn("Skipping unreadable frame")
			continue
		}
		frames = append(frames, Frame{
			Index:     i,
			Timestamp: float64(i) / fps,
			Image:     image,
		})
	}

	metrics.RecordFramesExtracted("extracted", len(frames))
	if failed > 0 {
		metrics.RecordFramesExtracted("failed", failed)
	}

	if len(frames) == 0 {
		return nil, errors.NewFrameExtraction(s.info.Path)
	}

	s.logger.WithFields(logrus.Fields{
		"path":   s.info.Path,
		"fps":    fps,
		"frames": len(frames),
	}).Info("Extracted video frames")

	return frames, nil
}

// ExtractAudio writes the audio track as a mono PCM WAV file in the scratch
// directory and returns its path
func (s *FileSource) ExtractAudio(ctx context.Context, sampleRate int) (string, error) {
	if !s.info.HasAudio {
		return "", fmt.Errorf("video has no audio track")
	}

	outPath := filepath.Join(s.workDir, "audio.wav")
	if err := s.executor.ExtractAudio(ctx, s.info.Path, outPath, sampleRate); err != nil {
		return "", err
	}
	return outPath, nil
}

// Close removes the scratch directory and everything extracted into it
func (s *FileSource) Close() error {
	return os.RemoveAll(s.workDir)
}
