package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/queue"
	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer/recognizertest"
	"github.com/codebuildervaibhav/offline-transcriber/internal/summary"
	"github.com/codebuildervaibhav/offline-transcriber/internal/transcription"
	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

const testMaxSize = 1024

type silentLoader struct{}

func (silentLoader) Load(ctx context.Context, data []byte, ext string) (*media.AudioBuffer, error) {
	return &media.AudioBuffer{Samples: make([]int16, 8000), SampleRate: 16000, Channels: 1}, nil
}

type discardStore struct{}

func (discardStore) SaveTranscript(requestName string, result *types.TranscriptionResult) (string, error) {
	return "outputs/" + requestName + ".txt", nil
}

// recordingQueue accepts jobs without running them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs map[string]*queue.Job
	err  error
}

func newRecordingQueue() *recordingQueue {
	return &recordingQueue{jobs: make(map[string]*queue.Job)}
}

func (q *recordingQueue) EnqueueJob(job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs[job.ID] = job
	return nil
}

func (q *recordingQueue) Get(id string) (*queue.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	return job, ok
}

// startPool runs a real worker pool whose transcripts are transcript.
func startPool(t *testing.T, transcript string) *queue.WorkerPool {
	t.Helper()
	model := recognizertest.NewModel()
	model.Final = transcript
	wp := queue.NewWorkerPool(1, 10, silentLoader{}, transcription.NewTranscriber(model), discardStore{})
	wp.Start(context.Background())
	t.Cleanup(wp.Stop)
	return wp
}

func newApp(t *testing.T, h Handlers) *fiber.App {
	t.Helper()
	app := fiber.New()
	Register(app, h)
	return app
}

func multipartUpload(t *testing.T, filename, name string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(body)
	}
	if name != "" {
		w.WriteField("name", name)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("invalid json %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func waitJob(t *testing.T, wp *queue.WorkerPool, id string) queue.Snapshot {
	t.Helper()
	job, ok := wp.Get(id)
	if !ok {
		t.Fatalf("job %s not registered", id)
	}
	deadline := time.After(5 * time.Second)
	for {
		snap, changed := job.Watch()
		if types.IsTerminal(snap.Status) {
			return snap
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("job %s did not finish", id)
		}
	}
}

type stubSummarizer struct {
	gotText  string
	gotCount int
}

func (s *stubSummarizer) Summarize(text string, count int) (summary.Summary, error) {
	s.gotText = text
	s.gotCount = count
	return summary.Summary{Sentences: []string{"First.", "Second."}}, nil
}
