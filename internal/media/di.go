package media

import (
	"github.com/samber/do/v2"

	"github.com/codebuildervaibhav/offline-transcriber/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Capabilities, error) {
		return DetectCapabilities(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Loader, error) {
		cfg := do.MustInvoke[*config.Config](i)
		caps := do.MustInvoke[Capabilities](i)
		return NewLoader(caps, cfg.Storage.TempDir), nil
	})
}
