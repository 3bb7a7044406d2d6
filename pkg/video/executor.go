// Package video wraps the external ffmpeg/ffprobe binaries for probing
// uploaded recordings, sampling frames at a target rate and extracting the
// audio track for pacing analysis.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"gestrec-server/pkg/config"
)

// Executor runs the ffmpeg and ffprobe binaries
type Executor struct {
	logger      *logrus.Logger
	ffmpegPath  string
	ffprobePath string
}

// NewExecutor resolves the configured ffmpeg and ffprobe binaries
func NewExecutor(logger *logrus.Logger, cfg *config.VideoConfig) (*Executor, error) {
	ffmpegPath, err := exec.LookPath(cfg.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ffprobePath, err := exec.LookPath(cfg.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	return &Executor{
		logger:      logger,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// Info holds probed video metadata
type Info struct {
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	HasAudio bool
}

// Probe extracts metadata from a video file
func (e *Executor) Probe(ctx context.Context, filePath string) (*Info, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	info, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}
	info.Path = filePath

	e.logger.WithFields(logrus.Fields{
		"path":      filePath,
		"duration":  info.Duration,
		"width":     info.Width,
		"height":    info.Height,
		"has_audio": info.HasAudio,
	}).Debug("Probed video file")

	return info, nil
}

// ExtractFrames decodes the video into JPEG frames at the given rate. The
// frames land in outDir as frame_%05d.jpg and the sorted file list is
// returned.
func (e *Executor) ExtractFrames(ctx context.Context, filePath, outDir string, fps float64, quality int) ([]string, error) {
	pattern := filepath.Join(outDir, "frame_%05d.jpg")
	args := frameArgs(filePath, fps, quality, pattern)

	e.logger.WithFields(logrus.Fields{
		"path": filePath,
		"fps":  fps,
	}).Debug("Extracting frames")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, string(output))
	}

	files, err := filepath.Glob(filepath.Join(outDir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("failed to list extracted frames: %w", err)
	}
	sort.Strings(files)

	return files, nil
}

// ExtractAudio writes the audio track as 16-bit mono PCM suitable for
// speech-to-text
func (e *Executor) ExtractAudio(ctx context.Context, filePath, outPath string, sampleRate int) error {
	args := audioArgs(filePath, sampleRate, outPath)

	e.logger.WithFields(logrus.Fields{
		"path":        filePath,
		"out":         outPath,
		"sample_rate": sampleRate,
	}).Debug("Extracting audio track")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg audio extraction failed: %w: %s", err, string(output))
	}

	return nil
}

func frameArgs(filePath string, fps float64, quality int, pattern string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", filePath,
		"-vf", fmt.Sprintf("fps=%g", fps),
		"-q:v", strconv.Itoa(quality),
		pattern,
	}
}

func audioArgs(filePath string, sampleRate int, outPath string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", filePath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		outPath,
	}
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func parseProbeOutput(output []byte) (*Info, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &Info{}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
		case "audio":
			info.HasAudio = true
		}
	}

	return info, nil
}
