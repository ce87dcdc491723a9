package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

// ErrOutsideOutputDir is returned when a transcript path does not live under the output directory.
var ErrOutsideOutputDir = errors.New("path is outside the output directory")

// ModelName is recorded in transcript metadata.
const ModelName = "vosk-small-en-us"

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
	now       func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		now:       time.Now,
	}
}

type transcriptMeta struct {
	JobID       string    `json:"job_id"`
	RequestName string    `json:"request_name"`
	Extension   string    `json:"source_extension"`
	SampleRate  int       `json:"sample_rate"`
	Channels    int       `json:"channels"`
	Duration    float64   `json:"duration_seconds"`
	WordCount   int       `json:"word_count"`
	ModelUsed   string    `json:"model_used"`
	CreatedAt   time.Time `json:"created_at"`
	LocalPath   string    `json:"local_path,omitempty"`
	GDriveURL   string    `json:"gdrive_url,omitempty"`
}

func newTranscriptMeta(requestName string, result *types.TranscriptionResult) transcriptMeta {
	return transcriptMeta{
		JobID:       result.JobID,
		RequestName: requestName,
		Extension:   result.Extension,
		SampleRate:  result.SampleRate,
		Channels:    result.Channels,
		Duration:    result.Duration,
		WordCount:   result.WordCount,
		ModelUsed:   ModelName,
		CreatedAt:   result.ProcessedAt,
		LocalPath:   result.LocalPath,
		GDriveURL:   result.GDriveURL,
	}
}

// SaveTranscript writes outputs/YYYY/MM/DD/<ts>_<name>.txt plus a _meta.json
// sidecar and returns the transcript path.
func (ls *LocalStorage) SaveTranscript(requestName string, result *types.TranscriptionResult) (string, error) {
	now := ls.now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	baseFilename := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(requestName))
	if result.JobID != "" {
		baseFilename += "_" + shortID(result.JobID)
	}
	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(result.Text), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}

	meta := newTranscriptMeta(requestName, result)
	meta.LocalPath = txtPath
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %w", err)
	}

	return txtPath, nil
}

// ReadTranscript returns the contents of a transcript saved by SaveTranscript.
func (ls *LocalStorage) ReadTranscript(path string) (string, error) {
	root, err := filepath.Abs(ls.outputDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideOutputDir)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(content), nil
}

const maxFilenameRunes = 100

// sanitizeFilename replaces characters that are not safe in file names.
func sanitizeFilename(name string) string {
	var b strings.Builder
	count := 0
	for _, r := range strings.TrimSpace(name) {
		if count == maxFilenameRunes {
			break
		}
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), r < 0x20:
			b.WriteRune('_')
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
		count++
	}
	result := strings.Trim(b.String(), "._")
	if result == "" {
		return "untitled"
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
