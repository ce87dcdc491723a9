package queue

import (
	"github.com/samber/do/v2"

	"github.com/codebuildervaibhav/offline-transcriber/internal/config"
	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/storage"
	"github.com/codebuildervaibhav/offline-transcriber/internal/transcription"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*WorkerPool, error) {
		cfg := do.MustInvoke[*config.Config](i)
		transcriber, err := do.Invoke[*transcription.Transcriber](i)
		if err != nil {
			return nil, err
		}
		db, err := do.Invoke[*storage.MetadataDB](i)
		if err != nil {
			return nil, err
		}

		opts := []Option{WithMetadata(db)}
		if dc := do.MustInvoke[*storage.DriveClient](i); dc != nil {
			opts = append(opts, WithExporter(dc))
		}
		return NewWorkerPool(
			cfg.Workers.Count,
			cfg.Workers.QueueSize,
			do.MustInvoke[*media.Loader](i),
			transcriber,
			do.MustInvoke[*storage.LocalStorage](i),
			opts...,
		), nil
	})
}
