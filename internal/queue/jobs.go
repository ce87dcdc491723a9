package queue

import (
	"sync"
	"time"

	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

// Job represents a transcription job
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	Extension   string
	FilePath    string
	CreatedAt   time.Time

	mu       sync.RWMutex
	status   string
	progress float64
	text     string
	err      error
	result   *types.TranscriptionResult
	updated  time.Time
	changed  chan struct{}
}

// Snapshot is a point-in-time view of a job, safe to serialize.
type Snapshot struct {
	JobID       string                     `json:"job_id"`
	RequestName string                     `json:"request_name"`
	Source      string                     `json:"source"`
	Extension   string                     `json:"extension"`
	Status      string                     `json:"status"`
	Progress    float64                    `json:"progress"`
	Text        string                     `json:"text"`
	Error       string                     `json:"error,omitempty"`
	Result      *types.TranscriptionResult `json:"result,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// NewJob creates a queued job for the file at filePath.
func NewJob(id, requestName, sourceType, extension, filePath string) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		Extension:   extension,
		FilePath:    filePath,
		CreatedAt:   now,
		status:      types.StatusQueued,
		updated:     now,
		changed:     make(chan struct{}),
	}
}

// Snapshot returns the current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.snapshotLocked()
}

// Watch returns the current state together with a channel that is closed on
// the next change.
func (j *Job) Watch() (Snapshot, <-chan struct{}) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.snapshotLocked(), j.changed
}

func (j *Job) snapshotLocked() Snapshot {
	s := Snapshot{
		JobID:       j.ID,
		RequestName: j.RequestName,
		Source:      j.SourceType,
		Extension:   j.Extension,
		Status:      j.status,
		Progress:    j.progress,
		Text:        j.text,
		Result:      j.result,
		CreatedAt:   j.CreatedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	return s
}

// Status returns the current status.
func (j *Job) Status() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Text returns the transcript so far.
func (j *Job) Text() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.text
}

// Err returns the failure, if any.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// update applies fn under the lock and wakes every watcher. Terminal jobs are frozen.
func (j *Job) update(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if types.IsTerminal(j.status) {
		return
	}
	fn()
	j.updated = time.Now()
	close(j.changed)
	j.changed = make(chan struct{})
}

func (j *Job) setProcessing() {
	j.update(func() {
		j.status = types.StatusProcessing
	})
}

func (j *Job) setProgress(progress float64, text string) {
	j.update(func() {
		j.progress = progress
		j.text = text
	})
}

// fail marks the job FAILED, keeping whatever transcript was produced.
func (j *Job) fail(err error, partial string) {
	j.update(func() {
		j.status = types.StatusFailed
		j.err = err
		if partial != "" {
			j.text = partial
		}
	})
}

func (j *Job) complete(result *types.TranscriptionResult) {
	j.update(func() {
		j.status = types.StatusCompleted
		j.progress = 1
		j.text = result.Text
		j.result = result
	})
}

// finishedBefore reports whether the job reached a terminal state before t.
func (j *Job) finishedBefore(t time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return types.IsTerminal(j.status) && j.updated.Before(t)
}
