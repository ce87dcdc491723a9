package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/offline-transcriber/internal/summary"
	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

// Summarizer produces extractive summaries.
type Summarizer interface {
	Summarize(text string, count int) (summary.Summary, error)
}

// SummaryHandler summarizes job transcripts and free text.
type SummaryHandler struct {
	jobs             JobQueue
	summarizer       Summarizer
	defaultSentences int
}

func NewSummaryHandler(jobs JobQueue, summarizer Summarizer, defaultSentences int) *SummaryHandler {
	if defaultSentences <= 0 {
		defaultSentences = types.DefaultSummarySentences
	}
	return &SummaryHandler{
		jobs:             jobs,
		summarizer:       summarizer,
		defaultSentences: defaultSentences,
	}
}

// SummarizeRequest is the body of POST /summarize.
type SummarizeRequest struct {
	Text      string `json:"text"`
	Sentences int    `json:"sentences"`
}

type summaryResponse struct {
	JobID     string   `json:"job_id,omitempty"`
	Sentences []string `json:"sentences"`
	Summary   string   `json:"summary"`
}

// ForJob summarizes a finished job's transcript. A failed job's partial
// transcript is summarized too.
func (h *SummaryHandler) ForJob(c *fiber.Ctx) error {
	job, ok := h.jobs.Get(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, CodeJobNotFound, "Job not found")
	}
	snap := job.Snapshot()
	if !types.IsTerminal(snap.Status) {
		return errorJSON(c, fiber.StatusConflict, CodeJobNotReady, "Transcription is still running")
	}

	count := c.QueryInt("sentences", h.defaultSentences)
	if count < 1 {
		return errorJSON(c, fiber.StatusBadRequest, CodeInvalidCount, "sentences must be a positive number")
	}
	return h.respond(c, snap.JobID, snap.Text, count)
}

// ForText summarizes arbitrary text.
func (h *SummaryHandler) ForText(c *fiber.Ctx) error {
	var req SummarizeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, CodeInvalidBody, "Invalid request body")
	}
	if req.Sentences < 0 {
		return errorJSON(c, fiber.StatusBadRequest, CodeInvalidCount, "sentences must be a positive number")
	}
	if req.Sentences == 0 {
		req.Sentences = h.defaultSentences
	}
	return h.respond(c, "", req.Text, req.Sentences)
}

func (h *SummaryHandler) respond(c *fiber.Ctx, jobID, text string, count int) error {
	sum, err := h.summarizer.Summarize(text, count)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("summarization failed")
		return errorJSON(c, fiber.StatusInternalServerError, CodeSummaryFailed, "Failed to summarize transcript")
	}
	return c.JSON(summaryResponse{
		JobID:     jobID,
		Sentences: sum.Sentences,
		Summary:   sum.String(),
	})
}
