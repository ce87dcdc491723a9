package handlers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/queue"
	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

// Intake validates incoming media and turns it into queued jobs. It is shared
// by the upload, Google Drive and streaming endpoints.
type Intake struct {
	jobs         JobQueue
	tempDir      string
	maxSize      int64
	videoEnabled bool
}

// NewIntake creates an intake that stores pending media in tempDir.
func NewIntake(jobs JobQueue, tempDir string, maxSize int64, videoEnabled bool) *Intake {
	return &Intake{
		jobs:         jobs,
		tempDir:      tempDir,
		maxSize:      maxSize,
		videoEnabled: videoEnabled,
	}
}

// intakeError carries the HTTP status and code for a rejected submission.
type intakeError struct {
	status int
	code   string
	msg    string
}

func (e *intakeError) Error() string { return e.msg }

func (e *intakeError) respond(c *fiber.Ctx) error {
	return errorJSON(c, e.status, e.code, e.msg)
}

func respondIntakeError(c *fiber.Ctx, err error) error {
	var ie *intakeError
	if errors.As(err, &ie) {
		return ie.respond(c)
	}
	return errorJSON(c, fiber.StatusInternalServerError, CodeInternal, err.Error())
}

// checkExtension normalizes ext and rejects formats that cannot be decoded.
func (in *Intake) checkExtension(ext string) (string, error) {
	normalized, ok := media.NormalizeExtension(ext)
	if !ok {
		return "", &intakeError{fiber.StatusBadRequest, CodeInvalidFormat,
			fmt.Sprintf("Unsupported format %q (accepted: wav, mp3, mp4, mov, avi)", ext)}
	}
	if media.IsVideo(normalized) && !in.videoEnabled {
		return "", &intakeError{fiber.StatusUnsupportedMediaType, CodeVideoUnsupported,
			"Video uploads are disabled on this server (ffmpeg not found)"}
	}
	return normalized, nil
}

func (in *Intake) checkSize(size int64) error {
	if size > in.maxSize {
		return &intakeError{fiber.StatusRequestEntityTooLarge, CodeFileTooLarge,
			fmt.Sprintf("File too large (max %dMB)", in.maxSize/(1024*1024))}
	}
	return nil
}

func (in *Intake) tempPath(jobID, ext string) string {
	return filepath.Join(in.tempDir, fmt.Sprintf("%s.%s", jobID, ext))
}

// enqueue registers a job for a file already written to path.
func (in *Intake) enqueue(jobID, name, source, ext, path string) (*queue.Job, error) {
	if strings.TrimSpace(name) == "" {
		name = "untitled"
	}
	job := queue.NewJob(jobID, name, source, ext, path)
	if err := in.jobs.EnqueueJob(job); err != nil {
		os.Remove(path)
		if errors.Is(err, queue.ErrQueueFull) {
			return nil, &intakeError{fiber.StatusServiceUnavailable, CodeQueueFull, "Server is busy, try again later"}
		}
		return nil, err
	}
	return job, nil
}

// submitBytes writes data to the temp directory and queues it.
func (in *Intake) submitBytes(data []byte, name, source, ext string) (*queue.Job, error) {
	ext, err := in.checkExtension(ext)
	if err != nil {
		return nil, err
	}
	if err := in.checkSize(int64(len(data))); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	path := in.tempPath(jobID, ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to save media")
		return nil, &intakeError{fiber.StatusInternalServerError, CodeSaveFailed, "Failed to save file"}
	}
	return in.enqueue(jobID, name, source, ext, path)
}

// HandleUpload accepts a multipart "file" with an optional "name".
func (in *Intake) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, CodeNoFile, "No file uploaded")
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	if err := in.checkSize(file.Size); err != nil {
		return respondIntakeError(c, err)
	}
	ext, err := in.checkExtension(filepath.Ext(file.Filename))
	if err != nil {
		return respondIntakeError(c, err)
	}

	jobID := uuid.New().String()
	path := in.tempPath(jobID, ext)
	if err := c.SaveFile(file, path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to save uploaded file")
		return errorJSON(c, fiber.StatusInternalServerError, CodeSaveFailed, "Failed to save file")
	}

	job, err := in.enqueue(jobID, requestName, types.SourceUpload, ext, path)
	if err != nil {
		return respondIntakeError(c, err)
	}
	return queuedJSON(c, job, "File uploaded successfully, processing started")
}
