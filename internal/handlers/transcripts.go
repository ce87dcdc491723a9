package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/offline-transcriber/internal/storage"
)

const transcriptListLimit = 50

// TranscriptIndex looks up saved transcripts.
type TranscriptIndex interface {
	ListTranscripts(ctx context.Context, limit int) ([]storage.TranscriptRecord, error)
	GetTranscript(ctx context.Context, jobID string) (storage.TranscriptRecord, error)
}

// TranscriptReader reads saved transcript files.
type TranscriptReader interface {
	ReadTranscript(path string) (string, error)
}

// TranscriptsHandler serves saved transcripts.
type TranscriptsHandler struct {
	index TranscriptIndex
	files TranscriptReader
}

func NewTranscriptsHandler(index TranscriptIndex, files TranscriptReader) *TranscriptsHandler {
	return &TranscriptsHandler{index: index, files: files}
}

// List returns the most recent transcript metadata.
func (h *TranscriptsHandler) List(c *fiber.Ctx) error {
	transcripts, err := h.index.ListTranscripts(c.UserContext(), transcriptListLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list transcripts")
		return errorJSON(c, fiber.StatusInternalServerError, CodeInternal, "Failed to list transcripts")
	}
	return c.JSON(transcripts)
}

// Text returns the saved transcript for a job as plain text.
func (h *TranscriptsHandler) Text(c *fiber.Ctx) error {
	rec, err := h.index.GetTranscript(c.UserContext(), c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, CodeNotFound, "Transcript not found")
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get transcript")
		return errorJSON(c, fiber.StatusInternalServerError, CodeInternal, "Failed to get transcript")
	}
	if rec.LocalPath == "" {
		return errorJSON(c, fiber.StatusNotFound, CodeNotFound, "Transcript file path not found")
	}

	content, err := h.files.ReadTranscript(rec.LocalPath)
	if err != nil {
		log.Error().Err(err).Str("path", rec.LocalPath).Msg("failed to read transcript file")
		return errorJSON(c, fiber.StatusInternalServerError, CodeInternal, "Failed to read transcript file")
	}
	return c.SendString(content)
}
