package storage

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/codebuildervaibhav/offline-transcriber/internal/config"
)

const driveSetupTimeout = 30 * time.Second

// RegisterDI provides local storage, the metadata database and the Drive
// clients. The *DriveClient is nil when Drive export is not configured.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*LocalStorage, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewLocalStorage(cfg.Storage.OutputDir), nil
	})
	do.Provide(injector, func(i do.Injector) (*MetadataDB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewMetadataDB(context.Background(), cfg.Storage.Database)
	})
	do.Provide(injector, func(i do.Injector) (*DriveClient, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return newOptionalDriveClient(cfg.GoogleDrive), nil
	})
	do.Provide(injector, func(i do.Injector) (*SharedFileDownloader, error) {
		return NewSharedFileDownloader(nil, ""), nil
	})
}

func newOptionalDriveClient(cfg config.GoogleDriveConfig) *DriveClient {
	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		log.Info().Msg("google drive credentials not found, saving locally only")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), driveSetupTimeout)
	defer cancel()
	dc, err := NewDriveClient(ctx, cfg.CredentialsFile, cfg.TokenFile, cfg.FolderName)
	if errors.Is(err, ErrTokenMissing) {
		log.Warn().Str("token_file", cfg.TokenFile).Msg("google drive token missing, saving locally only")
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("google drive not available, saving locally only")
		return nil
	}
	log.Info().Str("folder", cfg.FolderName).Msg("google drive integration enabled")
	return dc
}
