package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/codebuildervaibhav/offline-transcriber/internal/cleanup"
	"github.com/codebuildervaibhav/offline-transcriber/internal/config"
	"github.com/codebuildervaibhav/offline-transcriber/internal/handlers"
	"github.com/codebuildervaibhav/offline-transcriber/internal/logging"
	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/model"
	"github.com/codebuildervaibhav/offline-transcriber/internal/queue"
	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer"
	"github.com/codebuildervaibhav/offline-transcriber/internal/storage"
	"github.com/codebuildervaibhav/offline-transcriber/internal/summary"
	"github.com/codebuildervaibhav/offline-transcriber/internal/transcription"
	"github.com/codebuildervaibhav/offline-transcriber/internal/ui"
)

const (
	version    = "1.0.0"
	configPath = "config/config.yaml"
)

func main() {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logBuffer, logWriter := logging.Setup(cfg.Log.Level, cfg.IsDevelopment())
	log.Info().Str("env", cfg.Env).Msg("configuration loaded")

	if err := cleanup.EnsureDirs(cfg.Storage.TempDir, cfg.Storage.OutputDir); err != nil {
		log.Fatal().Err(err).Msg("failed to create storage directories")
	}

	if !recognizer.VoskAvailable {
		log.Fatal().Msg("speech recognition is not compiled in, rebuild with -tags vosk")
	}

	injector := setupDI(cfg)

	// Fatal without a model: nothing can be transcribed.
	speechModel, err := do.Invoke[recognizer.Model](injector)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Model.Path).Msg("failed to load speech model")
	}
	defer speechModel.Close()

	caps := do.MustInvoke[media.Capabilities](injector)
	if caps.Video {
		log.Info().Str("ffmpeg", caps.FFmpegPath).Msg("video uploads enabled")
	} else {
		log.Warn().Msg("ffmpeg/ffprobe not found, video uploads disabled")
	}

	db := do.MustInvoke[*storage.MetadataDB](injector)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerPool, err := do.Invoke[*queue.WorkerPool](injector)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create worker pool")
	}
	workerPool.Start(ctx)

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
		workerPool,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.BodyLimitBytes(),
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: logWriter}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	intake := handlers.NewIntake(workerPool, cfg.Storage.TempDir, cfg.MaxFileSizeBytes(), caps.Video)
	handlers.Register(app, handlers.Handlers{
		Intake:      intake,
		GDrive:      handlers.NewGDriveHandler(intake, do.MustInvoke[*storage.SharedFileDownloader](injector)),
		Stream:      handlers.NewStreamHandler(intake),
		Jobs:        handlers.NewJobsHandler(workerPool),
		Summary:     handlers.NewSummaryHandler(workerPool, do.MustInvoke[*summary.Summarizer](injector), cfg.Summary.DefaultSentences),
		Transcripts: handlers.NewTranscriptsHandler(db, do.MustInvoke[*storage.LocalStorage](injector)),
		System:      handlers.NewSystemHandler(version, cfg.Model.Path, caps.Video, logBuffer),
	})
	app.Use("/", ui.Handler())

	log.Info().Str("addr", cfg.Addr()).Msg("server starting")
	log.Info().Msg("endpoints: GET / | POST /upload | POST /gdrive | GET /jobs/:id | GET /ws/jobs/:id | GET /ws/stream | " +
		"POST /jobs/:id/summary | POST /summarize | GET /transcripts | GET /transcripts/:id/text | GET /logs | GET /health")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info().Msg("shutting down gracefully")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	if err := app.Listen(cfg.Addr()); err != nil {
		log.Error().Err(err).Msg("server failed")
	}

	workerPool.Stop()
	log.Info().Msg("server stopped")
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	model.RegisterDI(injector)
	media.RegisterDI(injector)
	transcription.RegisterDI(injector)
	summary.RegisterDI(injector)
	storage.RegisterDI(injector)
	queue.RegisterDI(injector)

	return injector
}
