package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// LogSource returns buffered log lines.
type LogSource interface {
	GetLogs() []string
}

// SystemHandler serves health and log endpoints.
type SystemHandler struct {
	version      string
	modelPath    string
	videoEnabled bool
	logs         LogSource
}

func NewSystemHandler(version, modelPath string, videoEnabled bool, logs LogSource) *SystemHandler {
	return &SystemHandler{
		version:      version,
		modelPath:    modelPath,
		videoEnabled: videoEnabled,
		logs:         logs,
	}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": h.version,
		"model":   h.modelPath,
		"video":   h.videoEnabled,
	})
}

func (h *SystemHandler) Logs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"logs": h.logs.GetLogs(),
	})
}
