package transcription

import (
	"github.com/samber/do/v2"

	"github.com/codebuildervaibhav/offline-transcriber/internal/config"
	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Transcriber, error) {
		cfg := do.MustInvoke[*config.Config](i)
		model, err := do.Invoke[recognizer.Model](i)
		if err != nil {
			return nil, err
		}
		return NewTranscriber(model, WithExpectedSampleRate(cfg.Model.SampleRate)), nil
	})
}
