package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer/recognizertest"
	"github.com/codebuildervaibhav/offline-transcriber/internal/storage"
	"github.com/codebuildervaibhav/offline-transcriber/internal/transcription"
	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

type stubLoader struct {
	buf   *media.AudioBuffer
	err   error
	panic bool
}

func (l *stubLoader) Load(ctx context.Context, data []byte, ext string) (*media.AudioBuffer, error) {
	if l.panic {
		panic("decoder exploded")
	}
	return l.buf, l.err
}

type memoryStore struct {
	mu    sync.Mutex
	saved []*types.TranscriptionResult
}

func (s *memoryStore) SaveTranscript(requestName string, result *types.TranscriptionResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, result)
	return "outputs/" + requestName + ".txt", nil
}

type flakyExporter struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (e *flakyExporter) Upload(ctx context.Context, requestName string, result *types.TranscriptionResult) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.failures {
		return "", errors.New("drive unavailable")
	}
	return "https://drive.google.com/file/d/abc/view", nil
}

func (e *flakyExporter) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type memoryDB struct {
	mu      sync.Mutex
	records []storage.TranscriptRecord
}

func (d *memoryDB) SaveTranscript(ctx context.Context, rec storage.TranscriptRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, rec)
	return nil
}

func silence(n int) *media.AudioBuffer {
	return &media.AudioBuffer{Samples: make([]int16, n), SampleRate: 16000, Channels: 1}
}

func tempUpload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.wav")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		t.Fatalf("failed to write upload: %v", err)
	}
	return path
}

func waitTerminal(t *testing.T, job *Job) Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		snap, changed := job.Watch()
		if types.IsTerminal(snap.Status) {
			return snap
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("job %s did not finish, last status %s", job.ID, snap.Status)
		}
	}
}

func startPool(t *testing.T, loader AudioLoader, model *recognizertest.Model, store TranscriptStore, opts ...Option) *WorkerPool {
	t.Helper()
	wp := NewWorkerPool(1, 10, loader, transcription.NewTranscriber(model), store, opts...)
	wp.Start(context.Background())
	t.Cleanup(wp.Stop)
	return wp
}

func TestWorkerPool_CompletesJob(t *testing.T) {
	model := recognizertest.NewModel()
	model.Boundaries = map[int]string{0: "hello"}
	model.Final = "world"
	store := &memoryStore{}
	db := &memoryDB{}
	wp := startPool(t, &stubLoader{buf: silence(8000)}, model, store, WithMetadata(db))

	upload := tempUpload(t)
	job := NewJob("job-1", "greeting", types.SourceUpload, "wav", upload)
	if err := wp.EnqueueJob(job); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	snap := waitTerminal(t, job)
	if snap.Status != types.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", snap.Status, snap.Error)
	}
	if snap.Text != "hello world" || snap.Progress != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Result == nil || snap.Result.WordCount != 2 || snap.Result.SampleRate != 16000 {
		t.Fatalf("unexpected result: %+v", snap.Result)
	}
	if snap.Result.Duration != 0.5 {
		t.Fatalf("expected 0.5s duration, got %f", snap.Result.Duration)
	}
	if snap.Result.LocalPath != "outputs/greeting.txt" {
		t.Fatalf("unexpected local path: %s", snap.Result.LocalPath)
	}
	if len(db.records) != 1 || db.records[0].SourceExt != "wav" || db.records[0].JobID != "job-1" {
		t.Fatalf("unexpected metadata: %+v", db.records)
	}
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Fatal("expected upload to be removed")
	}
	if got, ok := wp.Get("job-1"); !ok || got != job {
		t.Fatal("expected job to be registered")
	}
}

func TestWorkerPool_DecodeFailure(t *testing.T) {
	decodeErr := &media.MediaDecodeError{Extension: "mp3", Err: errors.New("bad frame")}
	store := &memoryStore{}
	wp := startPool(t, &stubLoader{err: decodeErr}, recognizertest.NewModel(), store)

	upload := tempUpload(t)
	job := NewJob("job-2", "broken", types.SourceUpload, "mp3", upload)
	if err := wp.EnqueueJob(job); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	snap := waitTerminal(t, job)
	if snap.Status != types.StatusFailed {
		t.Fatalf("expected FAILED, got %s", snap.Status)
	}
	var target *media.MediaDecodeError
	if !errors.As(job.Err(), &target) {
		t.Fatalf("expected MediaDecodeError, got %v", job.Err())
	}
	if len(store.saved) != 0 {
		t.Fatal("nothing should be saved for a failed job")
	}
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Fatal("expected upload to be removed after failure")
	}
}

func TestWorkerPool_TranscriptionFailureKeepsPartial(t *testing.T) {
	model := recognizertest.NewModel()
	model.Boundaries = map[int]string{0: "kept words"}
	model.FailAt = 2
	wp := startPool(t, &stubLoader{buf: silence(5 * transcription.ChunkSize)}, model, &memoryStore{})

	job := NewJob("job-3", "partial", types.SourceUpload, "wav", tempUpload(t))
	if err := wp.EnqueueJob(job); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	snap := waitTerminal(t, job)
	if snap.Status != types.StatusFailed {
		t.Fatalf("expected FAILED, got %s", snap.Status)
	}
	if snap.Text != "kept words" {
		t.Fatalf("expected partial transcript, got %q", snap.Text)
	}
	var trErr *transcription.TranscriptionError
	if !errors.As(job.Err(), &trErr) {
		t.Fatalf("expected TranscriptionError, got %v", job.Err())
	}
}

func TestWorkerPool_ExportRetries(t *testing.T) {
	exporter := &flakyExporter{failures: 2}
	wp := startPool(t, &stubLoader{buf: silence(4000)}, recognizertest.NewModel(), &memoryStore{},
		WithExporter(exporter), WithExportBackoff(time.Millisecond))

	job := NewJob("job-4", "export", types.SourceUpload, "wav", tempUpload(t))
	if err := wp.EnqueueJob(job); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	snap := waitTerminal(t, job)
	if snap.Status != types.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", snap.Status)
	}
	if exporter.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", exporter.Calls())
	}
	if snap.Result.GDriveURL == "" {
		t.Fatal("expected drive url after successful retry")
	}
}

func TestWorkerPool_ExportGivesUp(t *testing.T) {
	exporter := &flakyExporter{failures: 10}
	wp := startPool(t, &stubLoader{buf: silence(4000)}, recognizertest.NewModel(), &memoryStore{},
		WithExporter(exporter), WithExportBackoff(time.Millisecond))

	job := NewJob("job-5", "export", types.SourceUpload, "wav", tempUpload(t))
	if err := wp.EnqueueJob(job); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	snap := waitTerminal(t, job)
	if snap.Status != types.StatusCompleted {
		t.Fatalf("export failures must not fail the job, got %s", snap.Status)
	}
	if exporter.Calls() != exportAttempts || snap.Result.GDriveURL != "" {
		t.Fatalf("unexpected export outcome: calls=%d url=%q", exporter.Calls(), snap.Result.GDriveURL)
	}
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	wp := startPool(t, &stubLoader{panic: true}, recognizertest.NewModel(), &memoryStore{})

	job := NewJob("job-6", "panic", types.SourceUpload, "wav", tempUpload(t))
	if err := wp.EnqueueJob(job); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	snap := waitTerminal(t, job)
	if snap.Status != types.StatusFailed || !strings.Contains(snap.Error, "worker panic") {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	next := NewJob("job-7", "after", types.SourceUpload, "wav", tempUpload(t))
	if err := wp.EnqueueJob(next); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	if waitTerminal(t, next).Status != types.StatusFailed {
		t.Fatal("worker should keep processing after a panic")
	}
}

func TestWorkerPool_QueueFull(t *testing.T) {
	wp := NewWorkerPool(1, 1, &stubLoader{}, transcription.NewTranscriber(recognizertest.NewModel()), &memoryStore{})

	if err := wp.EnqueueJob(NewJob("a", "a", types.SourceUpload, "wav", "")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := wp.EnqueueJob(NewJob("b", "b", types.SourceUpload, "wav", ""))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if _, ok := wp.Get("b"); ok {
		t.Fatal("rejected job must not be registered")
	}
}

func TestWorkerPool_EnqueueAfterStop(t *testing.T) {
	wp := NewWorkerPool(1, 1, &stubLoader{}, transcription.NewTranscriber(recognizertest.NewModel()), &memoryStore{})
	wp.Start(context.Background())
	wp.Stop()
	wp.Stop()

	err := wp.EnqueueJob(NewJob("a", "a", types.SourceUpload, "wav", ""))
	if !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
}

func TestWorkerPool_PruneJobs(t *testing.T) {
	wp := NewWorkerPool(1, 4, &stubLoader{}, transcription.NewTranscriber(recognizertest.NewModel()), &memoryStore{})
	done := NewJob("done", "done", types.SourceUpload, "wav", "")
	queued := NewJob("queued", "queued", types.SourceUpload, "wav", "")
	for _, j := range []*Job{done, queued} {
		if err := wp.EnqueueJob(j); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	done.fail(errors.New("boom"), "")

	if n := wp.PruneJobs(time.Hour); n != 0 {
		t.Fatalf("expected nothing pruned yet, got %d", n)
	}
	if n := wp.PruneJobs(-time.Second); n != 1 {
		t.Fatalf("expected one pruned job, got %d", n)
	}
	if _, ok := wp.Get("done"); ok {
		t.Fatal("finished job should be forgotten")
	}
	if _, ok := wp.Get("queued"); !ok {
		t.Fatal("queued job must be kept")
	}
}
