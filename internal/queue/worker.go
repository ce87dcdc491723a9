package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/storage"
	"github.com/codebuildervaibhav/offline-transcriber/internal/transcription"
	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

var (
	// ErrQueueFull is returned when the job buffer is at capacity.
	ErrQueueFull = errors.New("job queue is full")
	// ErrPoolStopped is returned when enqueuing after Stop.
	ErrPoolStopped = errors.New("worker pool stopped")
)

// AudioLoader decodes uploaded bytes.
type AudioLoader interface {
	Load(ctx context.Context, fileBytes []byte, declaredExtension string) (*media.AudioBuffer, error)
}

// TranscriptStore persists finished transcripts and returns their location.
type TranscriptStore interface {
	SaveTranscript(requestName string, result *types.TranscriptionResult) (string, error)
}

// Exporter uploads finished transcripts somewhere shareable.
type Exporter interface {
	Upload(ctx context.Context, requestName string, result *types.TranscriptionResult) (string, error)
}

// MetadataStore records finished transcripts.
type MetadataStore interface {
	SaveTranscript(ctx context.Context, rec storage.TranscriptRecord) error
}

const exportAttempts = 3

// WorkerPool manages a pool of workers processing transcription jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	loader      AudioLoader
	transcriber *transcription.Transcriber
	local       TranscriptStore
	exporter    Exporter
	db          MetadataStore
	backoff     time.Duration

	mu      sync.RWMutex
	jobs    map[string]*Job
	stopped bool
	wg      sync.WaitGroup
}

// Option configures a WorkerPool.
type Option func(*WorkerPool)

// WithExporter enables uploading finished transcripts.
func WithExporter(e Exporter) Option {
	return func(wp *WorkerPool) {
		wp.exporter = e
	}
}

// WithMetadata records finished transcripts in db.
func WithMetadata(db MetadataStore) Option {
	return func(wp *WorkerPool) {
		wp.db = db
	}
}

// WithExportBackoff sets the base delay between export attempts.
func WithExportBackoff(d time.Duration) Option {
	return func(wp *WorkerPool) {
		wp.backoff = d
	}
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(
	workerCount, queueSize int,
	loader AudioLoader,
	transcriber *transcription.Transcriber,
	local TranscriptStore,
	opts ...Option,
) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	wp := &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		loader:      loader,
		transcriber: transcriber,
		local:       local,
		backoff:     time.Second,
		jobs:        make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(wp)
	}
	return wp
}

// Start launches the workers. They exit once Stop has drained the queue.
func (wp *WorkerPool) Start(ctx context.Context) {
	log.Info().Int("workers", wp.workerCount).Msg("starting worker pool")
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go func(id int) {
			defer wp.wg.Done()
			wp.worker(ctx, id)
		}(i)
	}
}

// Stop stops accepting jobs and waits for queued ones to finish.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	log.Info().Msg("worker pool stopped")
}

// EnqueueJob registers the job and queues it without blocking.
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return ErrPoolStopped
	}

	wp.jobs[job.ID] = job
	select {
	case wp.jobQueue <- job:
	default:
		delete(wp.jobs, job.ID)
		return ErrQueueFull
	}

	log.Info().
		Str("job_id", job.ID).
		Str("source", job.SourceType).
		Str("name", job.RequestName).
		Msg("job enqueued")
	return nil
}

// Get returns a job by ID.
func (wp *WorkerPool) Get(id string) (*Job, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[id]
	return job, ok
}

// PruneJobs forgets jobs that finished more than maxAge ago.
func (wp *WorkerPool) PruneJobs(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	wp.mu.Lock()
	defer wp.mu.Unlock()

	pruned := 0
	for id, job := range wp.jobs {
		if job.finishedBefore(cutoff) {
			delete(wp.jobs, id)
			pruned++
		}
	}
	return pruned
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger := log.With().Int("worker", id).Logger()
	logger.Debug().Msg("worker started")

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Str("job_id", job.ID).
						Str("stack", string(debug.Stack())).
						Msgf("panic processing job: %v", r)
					job.fail(fmt.Errorf("worker panic: %v", r), "")
					wp.cleanupTempFile(job.FilePath)
				}
			}()

			wp.processJob(ctx, id, job)
		}()
	}
}

// processJob handles the complete transcription pipeline
func (wp *WorkerPool) processJob(ctx context.Context, workerID int, job *Job) {
	logger := log.With().Int("worker", workerID).Str("job_id", job.ID).Logger()
	logger.Info().Msg("processing job")
	job.setProcessing()
	defer wp.cleanupTempFile(job.FilePath)

	data, err := os.ReadFile(job.FilePath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read upload")
		job.fail(fmt.Errorf("failed to read upload: %w", err), "")
		return
	}

	buf, err := wp.loader.Load(ctx, data, job.Extension)
	if err != nil {
		logger.Error().Err(err).Msg("audio decoding failed")
		job.fail(err, "")
		return
	}

	text, err := wp.transcriber.Run(buf, func(u transcription.Update) {
		job.setProgress(u.Progress, u.Text)
	})
	if err != nil {
		logger.Error().Err(err).Int("partial_chars", len(text)).Msg("transcription failed")
		job.fail(err, text)
		return
	}

	result := &types.TranscriptionResult{
		JobID:       job.ID,
		Text:        text,
		Extension:   job.Extension,
		SampleRate:  buf.SampleRate,
		Channels:    buf.Channels,
		Duration:    buf.Duration().Seconds(),
		WordCount:   len(strings.Fields(text)),
		ProcessedAt: time.Now(),
	}

	localPath, err := wp.local.SaveTranscript(job.RequestName, result)
	if err != nil {
		logger.Error().Err(err).Msg("local save failed")
		job.fail(fmt.Errorf("local save failed: %w", err), text)
		return
	}
	result.LocalPath = localPath

	if wp.exporter != nil {
		result.GDriveURL = wp.export(ctx, logger, job, result)
	}

	if wp.db != nil {
		rec := storage.TranscriptRecord{
			JobID:       job.ID,
			RequestName: job.RequestName,
			SourceType:  job.SourceType,
			SourceExt:   job.Extension,
			SampleRate:  result.SampleRate,
			Duration:    result.Duration,
			WordCount:   result.WordCount,
			LocalPath:   localPath,
			GDriveURL:   result.GDriveURL,
			CreatedAt:   result.ProcessedAt,
		}
		if err := wp.db.SaveTranscript(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("database save failed")
		}
	}

	job.complete(result)
	logger.Info().
		Str("local", localPath).
		Str("gdrive", result.GDriveURL).
		Int("words", result.WordCount).
		Msg("job completed")
}

// export retries with quadratic backoff and gives up quietly; the local copy is authoritative.
func (wp *WorkerPool) export(ctx context.Context, logger zerolog.Logger, job *Job, result *types.TranscriptionResult) string {
	for attempt := 1; attempt <= exportAttempts; attempt++ {
		url, err := wp.exporter.Upload(ctx, job.RequestName, result)
		if err == nil {
			return url
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("google drive upload failed")
		if attempt < exportAttempts {
			select {
			case <-time.After(time.Duration(attempt*attempt) * wp.backoff):
			case <-ctx.Done():
				return ""
			}
		}
	}
	logger.Warn().Msg("google drive upload gave up, transcript saved locally only")
	return ""
}

// cleanupTempFile removes a temporary file
func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", filePath).Msg("failed to cleanup temp file")
	}
}
