package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceGDrive = "gdrive"
	SourceStream = "stream"
)

// DefaultSummarySentences is used when a caller does not ask for a sentence count.
const DefaultSummarySentences = 3

// TranscriptionResult represents a finished transcription
type TranscriptionResult struct {
	JobID       string    `json:"job_id"`
	Text        string    `json:"text"`
	Extension   string    `json:"extension"`
	SampleRate  int       `json:"sample_rate"`
	Channels    int       `json:"channels"`
	Duration    float64   `json:"duration_seconds"`
	WordCount   int       `json:"word_count"`
	ProcessedAt time.Time `json:"processed_at"`
	LocalPath   string    `json:"local_path,omitempty"`
	GDriveURL   string    `json:"gdrive_url,omitempty"`
}

// IsTerminal reports whether a job in this status will not change anymore.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
