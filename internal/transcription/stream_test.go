package transcription

import (
	"errors"
	"testing"

	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer/recognizertest"
)

func silentBuffer(samples, rate int) *media.AudioBuffer {
	return &media.AudioBuffer{Samples: make([]int16, samples), SampleRate: rate, Channels: 1}
}

func collect(t *testing.T, s *Stream) ([]Update, error) {
	t.Helper()
	var updates []Update
	for u, err := range s.Updates() {
		if err != nil {
			return append(updates, u), err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func TestTotalChunks(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 3999: 1, 4000: 1, 4001: 2, 8000: 2, 8001: 3, 40000: 10}
	for samples, want := range cases {
		if got := TotalChunks(samples); got != want {
			t.Fatalf("TotalChunks(%d) = %d, want %d", samples, got, want)
		}
	}
}

func TestTranscribe_SilentTwoChunks(t *testing.T) {
	model := recognizertest.NewModel()
	tr := NewTranscriber(model)

	updates, err := collect(t, tr.Transcribe(silentBuffer(8000, 16000)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Progress != 0.5 || updates[1].Progress != 1.0 {
		t.Fatalf("unexpected progress: %v, %v", updates[0].Progress, updates[1].Progress)
	}
	if updates[0].Done || !updates[1].Done {
		t.Fatal("only the last update should be done")
	}
	if updates[1].Text != "" {
		t.Fatalf("expected empty transcript, got %q", updates[1].Text)
	}
}

func TestTranscribe_ProgressNonDecreasingEndsAtOne(t *testing.T) {
	for _, rate := range []int{8000, 16000, 44100, 48000} {
		for _, n := range []int{1, 3999, 4000, 4001, 12345, 40000} {
			model := recognizertest.NewModel()
			updates, err := collect(t, NewTranscriber(model).Transcribe(silentBuffer(n, rate)))
			if err != nil {
				t.Fatalf("rate=%d n=%d: unexpected error: %v", rate, n, err)
			}
			if len(updates) != TotalChunks(n) {
				t.Fatalf("rate=%d n=%d: expected %d updates, got %d", rate, n, TotalChunks(n), len(updates))
			}
			prev := 0.0
			for _, u := range updates {
				if u.Progress < prev {
					t.Fatalf("rate=%d n=%d: progress decreased %v -> %v", rate, n, prev, u.Progress)
				}
				prev = u.Progress
			}
			if prev != 1.0 {
				t.Fatalf("rate=%d n=%d: last progress %v", rate, n, prev)
			}
		}
	}
}

func TestTranscribe_AccumulatesSegmentsAndFlushes(t *testing.T) {
	model := recognizertest.NewModel()
	model.Boundaries = map[int]string{0: "hello world", 2: "how are"}
	model.Final = "you"

	updates, err := collect(t, NewTranscriber(model).Transcribe(silentBuffer(16000, 16000)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"hello world", "hello world", "hello world how are", "hello world how are you"}
	for i, u := range updates {
		if u.Text != want[i] {
			t.Fatalf("update %d: expected %q, got %q", i, want[i], u.Text)
		}
	}
	rec := model.Recognizers()[0]
	if !rec.Flushed() {
		t.Fatal("expected final flush after last chunk")
	}
	if !rec.Closed() {
		t.Fatal("expected recognizer to be closed")
	}
}

func TestTranscribe_BindsBufferSampleRateAndFeedsAllSamples(t *testing.T) {
	model := recognizertest.NewModel()
	tr := NewTranscriber(model, WithExpectedSampleRate(16000))

	if _, err := collect(t, tr.Transcribe(silentBuffer(9000, 22050))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rates := model.Rates()
	if len(rates) != 1 || rates[0] != 22050 {
		t.Fatalf("expected recognizer bound to 22050 Hz, got %v", rates)
	}
	rec := model.Recognizers()[0]
	if rec.Chunks() != 3 {
		t.Fatalf("expected 3 chunks, got %d", rec.Chunks())
	}
	if rec.Bytes() != 9000*2 {
		t.Fatalf("expected %d bytes fed, got %d", 9000*2, rec.Bytes())
	}
}

func TestTranscribe_EachCallGetsOwnRecognizer(t *testing.T) {
	model := recognizertest.NewModel()
	tr := NewTranscriber(model)
	for i := 0; i < 2; i++ {
		if _, err := tr.Run(silentBuffer(4000, 16000), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(model.Recognizers()) != 2 {
		t.Fatalf("expected 2 recognizers, got %d", len(model.Recognizers()))
	}
}

func TestTranscribe_FailureKeepsPartialTranscript(t *testing.T) {
	model := recognizertest.NewModel()
	model.Boundaries = map[int]string{0: "kept words"}
	model.FailAt = 2

	updates, err := collect(t, NewTranscriber(model).Transcribe(silentBuffer(20000, 16000)))
	var trErr *TranscriptionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
	if !errors.Is(err, recognizertest.ErrInjected) {
		t.Fatalf("expected wrapped recognizer error, got %v", err)
	}
	if trErr.Partial != "kept words" || trErr.Chunk != 3 {
		t.Fatalf("unexpected error contents: %+v", trErr)
	}
	last := updates[len(updates)-1]
	if last.Text != "kept words" || last.Done {
		t.Fatalf("unexpected failure update: %+v", last)
	}
	if len(updates) != 3 {
		t.Fatalf("expected 2 progress updates plus the failure, got %d", len(updates))
	}
	if !model.Recognizers()[0].Closed() {
		t.Fatal("expected recognizer to be closed after failure")
	}
}

func TestTranscribe_RecognizerCreationFails(t *testing.T) {
	model := recognizertest.NewModel()
	model.NewErr = errors.New("bad rate")
	_, err := NewTranscriber(model).Run(silentBuffer(4000, 16000), nil)
	var trErr *TranscriptionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
}

func TestTranscribe_InvalidBuffer(t *testing.T) {
	model := recognizertest.NewModel()
	tr := NewTranscriber(model)
	for _, buf := range []*media.AudioBuffer{nil, silentBuffer(0, 16000), silentBuffer(10, 0)} {
		_, err := tr.Run(buf, nil)
		var trErr *TranscriptionError
		if !errors.As(err, &trErr) {
			t.Fatalf("expected TranscriptionError for %+v, got %v", buf, err)
		}
	}
	if len(model.Recognizers()) != 0 {
		t.Fatal("no recognizer should be created for an invalid buffer")
	}
}

func TestStream_NotRestartable(t *testing.T) {
	stream := NewTranscriber(recognizertest.NewModel()).Transcribe(silentBuffer(4000, 16000))
	if _, err := collect(t, stream); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := collect(t, stream)
	if !errors.Is(err, ErrStreamConsumed) {
		t.Fatalf("expected ErrStreamConsumed, got %v", err)
	}
}

func TestStream_EarlyBreakClosesRecognizer(t *testing.T) {
	model := recognizertest.NewModel()
	stream := NewTranscriber(model).Transcribe(silentBuffer(40000, 16000))
	for range stream.Updates() {
		break
	}
	rec := model.Recognizers()[0]
	if rec.Chunks() != 1 {
		t.Fatalf("expected to stop after one chunk, got %d", rec.Chunks())
	}
	if !rec.Closed() {
		t.Fatal("expected recognizer to be closed on early break")
	}
}

func TestRun_ReportsEveryUpdate(t *testing.T) {
	model := recognizertest.NewModel()
	model.Final = "tail words"
	var seen []float64
	text, err := NewTranscriber(model).Run(silentBuffer(12000, 16000), func(u Update) {
		seen = append(seen, u.Progress)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "tail words" {
		t.Fatalf("expected flushed text, got %q", text)
	}
	if len(seen) != 3 || seen[2] != 1.0 {
		t.Fatalf("unexpected progress sequence: %v", seen)
	}
}
