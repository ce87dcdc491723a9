package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/codebuildervaibhav/offline-transcriber/internal/storage"
	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

type stubDownloader struct {
	data   []byte
	err    error
	gotID  string
	called bool
}

func (d *stubDownloader) Download(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	d.called = true
	d.gotID = fileID
	return d.data, d.err
}

const driveID = "1AbCdEfGhIjKlMnOpQrStUvWxYz012345"

func TestGDrive_QueuesDownloadedFile(t *testing.T) {
	q := newRecordingQueue()
	dl := &stubDownloader{data: []byte("RIFF")}
	intake := NewIntake(q, t.TempDir(), testMaxSize, false)
	app := newApp(t, Handlers{GDrive: NewGDriveHandler(intake, dl)})

	req := jsonRequest(http.MethodPost, "/gdrive", GDriveRequest{
		URL:  fmt.Sprintf("https://drive.google.com/file/d/%s/view?usp=sharing", driveID),
		Name: "interview.wav",
	})
	status, body := do(t, app, req)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if dl.gotID != driveID {
		t.Fatalf("unexpected file id: %s", dl.gotID)
	}
	job, ok := q.Get(body["job_id"].(string))
	if !ok {
		t.Fatal("job not queued")
	}
	if job.Extension != "wav" || job.SourceType != types.SourceGDrive {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestGDrive_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    GDriveRequest
		dlErr  error
		status int
		code   string
	}{
		{"missing url", GDriveRequest{}, nil, 400, CodeNoURL},
		{"bad url", GDriveRequest{URL: "https://example.com/x"}, nil, 400, CodeInvalidURL},
		{"bad extension", GDriveRequest{URL: driveID, Extension: "flac"}, nil, 400, CodeInvalidFormat},
		{"private file", GDriveRequest{URL: driveID}, storage.ErrNotAccessible, 400, CodeNotAccessible},
		{"too large", GDriveRequest{URL: driveID}, storage.ErrTooLarge, 413, CodeFileTooLarge},
		{"network", GDriveRequest{URL: driveID}, errors.New("dial tcp: timeout"), 502, CodeDownloadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newRecordingQueue()
			dl := &stubDownloader{err: tt.dlErr}
			app := newApp(t, Handlers{GDrive: NewGDriveHandler(NewIntake(q, t.TempDir(), testMaxSize, false), dl)})

			status, body := do(t, app, jsonRequest(http.MethodPost, "/gdrive", tt.req))
			if status != tt.status || body["code"] != tt.code {
				t.Fatalf("expected %d %s, got %d %v", tt.status, tt.code, status, body)
			}
			if len(q.jobs) != 0 {
				t.Fatal("nothing should be queued")
			}
		})
	}
}

func TestExtractGDriveFileID(t *testing.T) {
	tests := map[string]string{
		"https://drive.google.com/file/d/abc_DEF-123/view":  "abc_DEF-123",
		"https://drive.google.com/open?id=xyz789":           "xyz789",
		"https://drive.google.com/uc?export=download&id=q1": "q1",
		driveID:               driveID,
		"not a drive link":    "",
		"https://example.com": "",
	}
	for in, want := range tests {
		if got := extractGDriveFileID(in); got != want {
			t.Errorf("extractGDriveFileID(%q) = %q, want %q", in, got, want)
		}
	}
}
