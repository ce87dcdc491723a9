package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/offline-transcriber/internal/queue"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeNoFile           = "ERR_NO_FILE"
	CodeFileTooLarge     = "ERR_FILE_TOO_LARGE"
	CodeInvalidFormat    = "ERR_INVALID_FORMAT"
	CodeVideoUnsupported = "ERR_VIDEO_UNSUPPORTED"
	CodeSaveFailed       = "ERR_SAVE_FAILED"
	CodeQueueFull        = "ERR_QUEUE_FULL"
	CodeInvalidBody      = "ERR_INVALID_BODY"
	CodeNoURL            = "ERR_NO_URL"
	CodeInvalidURL       = "ERR_INVALID_URL"
	CodeDownloadFailed   = "ERR_DOWNLOAD_FAILED"
	CodeNotAccessible    = "ERR_FILE_NOT_ACCESSIBLE"
	CodeJobNotFound      = "ERR_JOB_NOT_FOUND"
	CodeJobNotReady      = "ERR_JOB_NOT_READY"
	CodeInvalidCount     = "ERR_INVALID_SENTENCES"
	CodeSummaryFailed    = "ERR_SUMMARY_FAILED"
	CodeNotFound         = "ERR_NOT_FOUND"
	CodeInternal         = "ERR_INTERNAL"
)

// JobQueue accepts jobs and looks them up by ID.
type JobQueue interface {
	EnqueueJob(job *queue.Job) error
	Get(id string) (*queue.Job, bool)
}

func errorJSON(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}

func queuedJSON(c *fiber.Ctx, job *queue.Job, message string) error {
	return c.JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status(),
		"message": message,
	})
}
