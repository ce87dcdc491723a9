package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"
)

// JobsHandler exposes job state.
type JobsHandler struct {
	jobs JobQueue
}

func NewJobsHandler(jobs JobQueue) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Get returns the current job snapshot.
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	job, ok := h.jobs.Get(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, CodeJobNotFound, "Job not found")
	}
	return c.JSON(job.Snapshot())
}

// Watch pushes snapshots over a WebSocket until the job finishes.
func (h *JobsHandler) Watch(c *websocket.Conn) {
	defer c.Close()

	job, ok := h.jobs.Get(c.Params("id"))
	if !ok {
		c.WriteJSON(fiber.Map{"error": "Job not found", "code": CodeJobNotFound})
		return
	}
	if err := streamJob(job, c.WriteJSON); err != nil {
		log.Debug().Err(err).Str("job_id", job.ID).Msg("job watcher disconnected")
	}
}
