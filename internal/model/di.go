package model

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/codebuildervaibhav/offline-transcriber/internal/config"
	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer"
)

// RegisterDI provides the loaded recognizer.Model. Resolving it downloads the
// model on first run.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (recognizer.Model, error) {
		cfg := do.MustInvoke[*config.Config](i)
		p := NewProvisioner(recognizer.LoadVosk, WithTempDir(cfg.Storage.TempDir))
		return p.EnsureModel(context.Background(), cfg.Model.Path, cfg.Model.URL)
	})
}
