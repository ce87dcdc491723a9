package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// VideoExtractor pulls the audio track out of a video container.
type VideoExtractor interface {
	HasAudio(ctx context.Context, videoPath string) (bool, error)
	ExtractAudio(ctx context.Context, videoPath, wavPath string) error
}

// Capabilities is probed once at startup and handed to NewLoader.
type Capabilities struct {
	Video       bool
	FFmpegPath  string
	FFprobePath string
}

// DetectCapabilities looks for ffmpeg and ffprobe on PATH.
func DetectCapabilities() Capabilities {
	ffmpeg, errFFmpeg := exec.LookPath("ffmpeg")
	ffprobe, errFFprobe := exec.LookPath("ffprobe")
	return Capabilities{
		Video:       errFFmpeg == nil && errFFprobe == nil,
		FFmpegPath:  ffmpeg,
		FFprobePath: ffprobe,
	}
}

// FFmpeg implements VideoExtractor with the ffprobe and ffmpeg binaries.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpeg uses the binaries found by DetectCapabilities.
func NewFFmpeg(caps Capabilities) *FFmpeg {
	return &FFmpeg{FFmpegPath: caps.FFmpegPath, FFprobePath: caps.FFprobePath}
}

// HasAudio reports whether the container has at least one audio stream.
func (f *FFmpeg) HasAudio(ctx context.Context, videoPath string) (bool, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("ffprobe failed: %w", err)
	}
	return strings.TrimSpace(string(output)) != "", nil
}

// ExtractAudio converts the first audio track to 16kHz mono 16-bit WAV.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, wavPath string) error {
	cmd := exec.CommandContext(ctx, f.FFmpegPath,
		"-i", videoPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		wavPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}
	return nil
}
