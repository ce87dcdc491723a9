package transcription

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer"
)

// ChunkSize is the number of samples fed to the recognizer per step. It also sets
// how often progress is reported.
const ChunkSize = 4000

// ErrStreamConsumed is yielded when a Stream is ranged over more than once.
var ErrStreamConsumed = errors.New("transcription stream already consumed")

// TranscriptionError carries the transcript accumulated before the recognizer failed.
type TranscriptionError struct {
	Partial string
	Chunk   int
	Err     error
}

func (e *TranscriptionError) Error() string {
	if e.Chunk > 0 {
		return fmt.Sprintf("transcription failed at chunk %d: %v", e.Chunk, e.Err)
	}
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Update is emitted after every chunk.
type Update struct {
	Progress    float64 `json:"progress"`
	Text        string  `json:"text"`
	Chunk       int     `json:"chunk"`
	TotalChunks int     `json:"total_chunks"`
	Done        bool    `json:"done"`
}

// TotalChunks is ceil(samples / ChunkSize).
func TotalChunks(samples int) int {
	if samples <= 0 {
		return 0
	}
	return (samples + ChunkSize - 1) / ChunkSize
}

func progress(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return min(float64(done)/float64(total), 1.0)
}

// Transcriber turns audio buffers into text using a shared model.
type Transcriber struct {
	model        recognizer.Model
	expectedRate int
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithExpectedSampleRate logs a warning for buffers at a different rate.
func WithExpectedSampleRate(rate int) Option {
	return func(t *Transcriber) {
		t.expectedRate = rate
	}
}

// NewTranscriber wraps a loaded model.
func NewTranscriber(model recognizer.Model, opts ...Option) *Transcriber {
	t := &Transcriber{model: model}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Stream is a single-use sequence of updates for one buffer.
type Stream struct {
	t        *Transcriber
	buf      *media.AudioBuffer
	consumed atomic.Bool
}

// Transcribe prepares a stream over buf. Nothing runs until Updates is ranged over.
func (t *Transcriber) Transcribe(buf *media.AudioBuffer) *Stream {
	return &Stream{t: t, buf: buf}
}

// Run drains a new stream over buf, calling onUpdate for each update, and returns
// the final transcript. On failure the partial transcript is returned with the error.
func (t *Transcriber) Run(buf *media.AudioBuffer, onUpdate func(Update)) (string, error) {
	var last Update
	for u, err := range t.Transcribe(buf).Updates() {
		if err != nil {
			return u.Text, err
		}
		last = u
		if onUpdate != nil {
			onUpdate(u)
		}
	}
	return last.Text, nil
}

// Updates yields one update per chunk. The last update has Done set, progress 1.0
// and the complete transcript, including text flushed from the recognizer after
// the final chunk. A recognizer failure yields the partial transcript together with
// a *TranscriptionError and ends the sequence.
func (s *Stream) Updates() iter.Seq2[Update, error] {
	return func(yield func(Update, error) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			yield(Update{}, ErrStreamConsumed)
			return
		}
		if err := s.buf.Validate(); err != nil {
			yield(Update{}, &TranscriptionError{Err: err})
			return
		}
		s.run(yield)
	}
}

func (s *Stream) run(yield func(Update, error) bool) {
	buf := s.buf
	if s.t.expectedRate > 0 && buf.SampleRate != s.t.expectedRate {
		log.Warn().
			Int("sample_rate", buf.SampleRate).
			Int("model_rate", s.t.expectedRate).
			Msg("audio sample rate differs from model rate, accuracy may degrade")
	}

	rec, err := s.t.model.NewRecognizer(float64(buf.SampleRate))
	if err != nil {
		yield(Update{}, &TranscriptionError{Err: fmt.Errorf("create recognizer: %w", err)})
		return
	}
	defer rec.Close()

	var text transcript
	total := TotalChunks(len(buf.Samples))
	pcm := make([]byte, ChunkSize*2)

	fail := func(done int, err error) {
		yield(Update{
			Progress:    progress(done, total),
			Text:        text.String(),
			Chunk:       done,
			TotalChunks: total,
		}, &TranscriptionError{Partial: text.String(), Chunk: done + 1, Err: err})
	}

	for i := 0; i < total; i++ {
		start := i * ChunkSize
		end := min(start+ChunkSize, len(buf.Samples))

		final, err := rec.AcceptWaveform(encodePCM16(pcm, buf.Samples[start:end]))
		if err != nil {
			fail(i, err)
			return
		}
		if final {
			segment, err := recognizer.ParseText(rec.Result())
			if err != nil {
				fail(i, err)
				return
			}
			text.add(segment)
		}

		last := i == total-1
		if last {
			segment, err := recognizer.ParseText(rec.FinalResult())
			if err != nil {
				fail(i, err)
				return
			}
			text.add(segment)
		}

		u := Update{
			Progress:    progress(i+1, total),
			Text:        text.String(),
			Chunk:       i + 1,
			TotalChunks: total,
			Done:        last,
		}
		if !yield(u, nil) {
			return
		}
	}
}

// encodePCM16 writes samples into dst as little-endian 16-bit PCM.
func encodePCM16(dst []byte, samples []int16) []byte {
	dst = dst[:len(samples)*2]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(s))
	}
	return dst
}

// transcript accumulates finalized segments in order.
type transcript struct {
	b strings.Builder
}

func (t *transcript) add(segment string) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return
	}
	if t.b.Len() > 0 {
		t.b.WriteByte(' ')
	}
	t.b.WriteString(segment)
}

func (t *transcript) String() string { return t.b.String() }
