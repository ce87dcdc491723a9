// Package recognizertest provides a scripted recognizer.Model for tests.
package recognizertest

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer"
)

// ErrInjected is returned by AcceptWaveform at FailAt.
var ErrInjected = errors.New("injected recognizer failure")

// Model scripts what its recognizers return. Chunk indexes are zero-based and
// count AcceptWaveform calls on a single recognizer.
type Model struct {
	// Boundaries maps a chunk index to the text finalized at that chunk.
	Boundaries map[int]string
	// Final is returned by FinalResult.
	Final string
	// FailAt makes AcceptWaveform fail on that chunk; negative disables it.
	FailAt int
	// NewErr makes NewRecognizer fail.
	NewErr error

	mu          sync.Mutex
	rates       []float64
	recognizers []*Recognizer
	closed      bool
}

// NewModel returns a model whose recognizers never finalize anything.
func NewModel() *Model {
	return &Model{FailAt: -1}
}

func (m *Model) NewRecognizer(sampleRate float64) (recognizer.Recognizer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append(m.rates, sampleRate)
	if m.NewErr != nil {
		return nil, m.NewErr
	}
	r := &Recognizer{model: m}
	m.recognizers = append(m.recognizers, r)
	return r, nil
}

func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// Rates returns the sample rates recognizers were created with.
func (m *Model) Rates() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.rates...)
}

// Recognizers returns every recognizer created so far.
func (m *Model) Recognizers() []*Recognizer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Recognizer(nil), m.recognizers...)
}

// Closed reports whether Close was called.
func (m *Model) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Recognizer replays its model's script.
type Recognizer struct {
	model   *Model
	chunks  int
	bytes   int
	pending string
	closed  bool
	flushed bool
}

func (r *Recognizer) AcceptWaveform(pcm []byte) (bool, error) {
	idx := r.chunks
	r.chunks++
	r.bytes += len(pcm)
	if r.model.FailAt >= 0 && idx == r.model.FailAt {
		return false, ErrInjected
	}
	text, ok := r.model.Boundaries[idx]
	if !ok {
		return false, nil
	}
	r.pending = text
	return true, nil
}

func (r *Recognizer) Result() string {
	text := r.pending
	r.pending = ""
	return encode(text)
}

func (r *Recognizer) FinalResult() string {
	r.flushed = true
	return encode(r.model.Final)
}

func (r *Recognizer) Close() { r.closed = true }

// Chunks is the number of AcceptWaveform calls.
func (r *Recognizer) Chunks() int { return r.chunks }

// Bytes is the total PCM bytes fed.
func (r *Recognizer) Bytes() int { return r.bytes }

// Closed reports whether Close was called.
func (r *Recognizer) Closed() bool { return r.closed }

// Flushed reports whether FinalResult was called.
func (r *Recognizer) Flushed() bool { return r.flushed }

func encode(text string) string {
	b, _ := json.Marshal(map[string]string{"text": text})
	return string(b)
}
