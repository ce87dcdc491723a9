package handlers

import (
	"bytes"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/offline-transcriber/internal/media"
	"github.com/codebuildervaibhav/offline-transcriber/internal/queue"
	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

const (
	streamEnd       = "END"
	streamExtPrefix = "ext:"
	maxNameLength   = 200
)

// wsConn is the part of *websocket.Conn the handlers use.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
}

// StreamHandler receives media over a WebSocket and then reports job progress
// on the same connection.
type StreamHandler struct {
	intake *Intake
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(intake *Intake) *StreamHandler {
	return &StreamHandler{intake: intake}
}

// Handle processes WebSocket connections
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()
	h.serve(c)
}

// serve reads text frames (a name, "ext:<ext>" or "END") and binary audio frames
// until END, queues the media and streams job snapshots until the job finishes.
func (h *StreamHandler) serve(c wsConn) {
	var (
		buffer      bytes.Buffer
		requestName = "stream_recording"
		ext         = media.ExtWAV
	)

read:
	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("websocket closed before END")
			return
		}

		switch messageType {
		case websocket.TextMessage:
			msg := strings.TrimSpace(string(message))
			switch {
			case msg == streamEnd:
				break read
			case strings.HasPrefix(msg, streamExtPrefix):
				ext = strings.TrimPrefix(msg, streamExtPrefix)
			case msg != "" && len(msg) < maxNameLength:
				requestName = msg
			}
		case websocket.BinaryMessage:
			if int64(buffer.Len()+len(message)) > h.intake.maxSize {
				sendError(c, h.intake.checkSize(h.intake.maxSize+1))
				return
			}
			buffer.Write(message)
		}
	}

	if buffer.Len() == 0 {
		sendError(c, &intakeError{fiber.StatusBadRequest, CodeNoFile, "No audio data received"})
		return
	}

	job, err := h.intake.submitBytes(buffer.Bytes(), requestName, types.SourceStream, ext)
	if err != nil {
		sendError(c, err)
		return
	}
	log.Info().Str("job_id", job.ID).Int("bytes", buffer.Len()).Msg("stream received")

	if err := streamJob(job, c.WriteJSON); err != nil {
		log.Debug().Err(err).Str("job_id", job.ID).Msg("stopped streaming job updates")
	}
}

func sendError(c wsConn, err error) {
	msg := fiber.Map{"error": err.Error(), "code": CodeInternal}
	var ie *intakeError
	if errors.As(err, &ie) {
		msg["code"] = ie.code
	}
	if werr := c.WriteJSON(msg); werr != nil {
		log.Debug().Err(werr).Msg("failed to send websocket error")
	}
}

// streamJob sends a snapshot for every job change until the job is terminal.
func streamJob(job *queue.Job, send func(interface{}) error) error {
	for {
		snap, changed := job.Watch()
		if err := send(snap); err != nil {
			return err
		}
		if types.IsTerminal(snap.Status) {
			return nil
		}
		<-changed
	}
}
