//go:build vosk

package recognizer

import (
	"errors"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskAvailable reports whether the Vosk engine is compiled in.
const VoskAvailable = true

func init() {
	vosk.SetLogLevel(-1)
}

type voskModel struct {
	model *vosk.VoskModel
}

// LoadVosk loads a Vosk model directory.
func LoadVosk(path string) (Model, error) {
	m, err := vosk.NewModel(path)
	if err != nil {
		return nil, fmt.Errorf("load vosk model %q: %w", path, err)
	}
	return &voskModel{model: m}, nil
}

func (m *voskModel) NewRecognizer(sampleRate float64) (Recognizer, error) {
	rec, err := vosk.NewRecognizer(m.model, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("create vosk recognizer at %.0f Hz: %w", sampleRate, err)
	}
	return &voskRecognizer{rec: rec}, nil
}

func (m *voskModel) Close() {
	m.model.Free()
}

type voskRecognizer struct {
	rec *vosk.VoskRecognizer
}

func (r *voskRecognizer) AcceptWaveform(pcm []byte) (bool, error) {
	switch r.rec.AcceptWaveform(pcm) {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, errors.New("vosk rejected waveform")
	}
}

func (r *voskRecognizer) Result() string { return r.rec.Result() }

func (r *voskRecognizer) FinalResult() string { return r.rec.FinalResult() }

func (r *voskRecognizer) Close() { r.rec.Free() }
