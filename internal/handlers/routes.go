package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handlers groups every endpoint. Nil members are not routed.
type Handlers struct {
	Intake      *Intake
	GDrive      *GDriveHandler
	Stream      *StreamHandler
	Jobs        *JobsHandler
	Summary     *SummaryHandler
	Transcripts *TranscriptsHandler
	System      *SystemHandler
}

// Register mounts the API on app.
func Register(app fiber.Router, h Handlers) {
	if h.System != nil {
		app.Get("/health", h.System.Health)
		app.Get("/logs", h.System.Logs)
	}

	if h.Intake != nil {
		app.Post("/upload", h.Intake.HandleUpload)
	}
	if h.GDrive != nil {
		app.Post("/gdrive", h.GDrive.Handle)
	}

	if h.Jobs != nil {
		app.Get("/jobs/:id", h.Jobs.Get)
	}
	if h.Summary != nil {
		app.Post("/jobs/:id/summary", h.Summary.ForJob)
		app.Post("/summarize", h.Summary.ForText)
	}

	if h.Transcripts != nil {
		app.Get("/transcripts", h.Transcripts.List)
		app.Get("/transcripts/:id/text", h.Transcripts.Text)
	}

	ws := app.Group("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	if h.Stream != nil {
		ws.Get("/stream", websocket.New(h.Stream.Handle))
	}
	if h.Jobs != nil {
		ws.Get("/jobs/:id", websocket.New(h.Jobs.Watch))
	}
}
