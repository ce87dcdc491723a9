package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Supported upload extensions.
const (
	ExtWAV = "wav"
	ExtMP3 = "mp3"
	ExtMP4 = "mp4"
	ExtMOV = "mov"
	ExtAVI = "avi"
)

var supported = map[string]bool{
	ExtWAV: true,
	ExtMP3: true,
	ExtMP4: true,
	ExtMOV: true,
	ExtAVI: true,
}

// NormalizeExtension lower-cases ext, strips a leading dot and reports whether it is accepted.
func NormalizeExtension(ext string) (string, bool) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	return ext, supported[ext]
}

// IsVideo reports whether a normalized extension is a video container.
func IsVideo(ext string) bool {
	return ext == ExtMP4 || ext == ExtMOV || ext == ExtAVI
}

// Loader turns uploaded bytes into an AudioBuffer.
type Loader struct {
	caps    Capabilities
	video   VideoExtractor
	tempDir string
}

// Option configures a Loader.
type Option func(*Loader)

// WithVideoExtractor replaces the ffmpeg-backed extractor.
func WithVideoExtractor(v VideoExtractor) Option {
	return func(l *Loader) {
		l.video = v
	}
}

// NewLoader creates a loader. Video uploads are only accepted when caps.Video is set.
func NewLoader(caps Capabilities, tempDir string, opts ...Option) *Loader {
	l := &Loader{
		caps:    caps,
		tempDir: tempDir,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.video == nil && caps.Video {
		l.video = NewFFmpeg(caps)
	}
	return l
}

// VideoEnabled reports whether mp4, mov and avi uploads can be decoded.
func (l *Loader) VideoEnabled() bool {
	return l.caps.Video && l.video != nil
}

// Load decodes fileBytes according to the declared extension.
func (l *Loader) Load(ctx context.Context, fileBytes []byte, declaredExtension string) (*AudioBuffer, error) {
	ext, ok := NormalizeExtension(declaredExtension)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, declaredExtension)
	}
	if len(fileBytes) == 0 {
		return nil, &MediaDecodeError{Extension: ext, Err: fmt.Errorf("empty upload")}
	}

	switch ext {
	case ExtWAV:
		return decodeChain(fileBytes, ext, []decoder{wavDecoder})
	case ExtMP3:
		// some uploads named .mp3 are really WAV containers
		return decodeChain(fileBytes, ext, []decoder{wavDecoder, mp3Decoder})
	default:
		if !l.VideoEnabled() {
			return nil, ErrVideoUnsupported
		}
		return l.loadVideo(ctx, fileBytes, ext)
	}
}

func (l *Loader) loadVideo(ctx context.Context, fileBytes []byte, ext string) (*AudioBuffer, error) {
	if err := os.MkdirAll(l.tempDir, 0755); err != nil {
		return nil, &MediaDecodeError{Extension: ext, Err: err}
	}

	videoPath := filepath.Join(l.tempDir, fmt.Sprintf("video_%s.%s", uuid.New().String(), ext))
	defer l.cleanupTempFile(videoPath)
	if err := os.WriteFile(videoPath, fileBytes, 0644); err != nil {
		return nil, &MediaDecodeError{Extension: ext, Err: fmt.Errorf("write temp video: %w", err)}
	}

	hasAudio, err := l.video.HasAudio(ctx, videoPath)
	if err != nil {
		return nil, &MediaDecodeError{Extension: ext, Err: err}
	}
	if !hasAudio {
		return nil, &NoAudioTrackError{Extension: ext}
	}

	wavPath := filepath.Join(l.tempDir, fmt.Sprintf("audio_%s.wav", uuid.New().String()))
	defer l.cleanupTempFile(wavPath)
	if err := l.video.ExtractAudio(ctx, videoPath, wavPath); err != nil {
		return nil, &MediaDecodeError{Extension: ext, Err: err}
	}

	wavBytes, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, &MediaDecodeError{Extension: ext, Err: fmt.Errorf("read extracted audio: %w", err)}
	}
	return decodeChain(wavBytes, ext, []decoder{wavDecoder})
}

// cleanupTempFile removes a temporary file
func (l *Loader) cleanupTempFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to cleanup temp file")
	}
}
