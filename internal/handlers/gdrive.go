package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/storage"
	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

// Downloader fetches a shared Google Drive file by ID.
type Downloader interface {
	Download(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

// GDriveHandler handles Google Drive link processing
type GDriveHandler struct {
	intake     *Intake
	downloader Downloader
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(intake *Intake, downloader Downloader) *GDriveHandler {
	return &GDriveHandler{
		intake:     intake,
		downloader: downloader,
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

// Handle downloads the shared file and queues it.
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, CodeInvalidBody, "Invalid request body")
	}
	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, CodeNoURL, "URL is required")
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return errorJSON(c, fiber.StatusBadRequest, CodeInvalidURL, "Invalid Google Drive URL")
	}

	ext := req.Extension
	if ext == "" {
		ext = filepath.Ext(req.Name)
	}
	if ext == "" {
		ext = media.ExtMP3
	}
	// Reject before downloading anything.
	if _, err := h.intake.checkExtension(ext); err != nil {
		return respondIntakeError(c, err)
	}

	name := req.Name
	if name == "" {
		name = "gdrive_file"
	}

	log.Info().Str("file_id", fileID).Msg("downloading from google drive")
	data, err := h.downloader.Download(c.UserContext(), fileID, h.intake.maxSize)
	switch {
	case errors.Is(err, storage.ErrNotAccessible):
		return errorJSON(c, fiber.StatusBadRequest, CodeNotAccessible, "File not accessible (may be private or doesn't exist)")
	case errors.Is(err, storage.ErrTooLarge):
		return respondIntakeError(c, h.intake.checkSize(h.intake.maxSize+1))
	case err != nil:
		log.Error().Err(err).Str("file_id", fileID).Msg("google drive download failed")
		return errorJSON(c, fiber.StatusBadGateway, CodeDownloadFailed, "Failed to download file from Google Drive")
	}

	job, err := h.intake.submitBytes(data, name, types.SourceGDrive, ext)
	if err != nil {
		return respondIntakeError(c, err)
	}
	return queuedJSON(c, job, "Google Drive file downloaded, processing started")
}

var (
	gdriveFilePattern  = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	gdriveQueryPattern = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	gdriveIDPattern    = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	for _, re := range []*regexp.Regexp{gdriveFilePattern, gdriveQueryPattern, gdriveIDPattern} {
		if matches := re.FindStringSubmatch(url); len(matches) > 1 {
			return matches[1]
		}
	}
	return ""
}
