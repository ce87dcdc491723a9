// Package recognizer defines the contract between the streaming transcriber and an
// offline speech engine. A Model is loaded once per process and shared read-only;
// every transcription creates its own Recognizer from it.
package recognizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned by LoadVosk when the binary was built without the vosk tag.
var ErrUnavailable = errors.New("speech engine not compiled in (build with -tags vosk)")

// Model is a loaded speech model.
type Model interface {
	// NewRecognizer creates a decoder bound to the given sample rate.
	NewRecognizer(sampleRate float64) (Recognizer, error)
	Close()
}

// Recognizer is a stateful decoder. It is not safe for concurrent use.
type Recognizer interface {
	// AcceptWaveform feeds little-endian 16-bit mono PCM and reports whether an
	// utterance boundary was reached inside it.
	AcceptWaveform(pcm []byte) (bool, error)
	// Result returns the JSON result for the utterance just finalized.
	Result() string
	// FinalResult flushes whatever audio is still buffered and returns its JSON result.
	FinalResult() string
	Close()
}

type result struct {
	Text string `json:"text"`
}

// ParseText extracts the recognized text from a JSON result document.
func ParseText(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	var r result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return "", fmt.Errorf("parse recognizer result: %w", err)
	}
	return strings.TrimSpace(r.Text), nil
}
