package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBufferLines is how many log lines the /logs endpoint keeps.
const DefaultBufferLines = 1000

// Setup configures the global zerolog logger and returns the in-memory buffer
// plus the writer that HTTP access logs should share.
func Setup(level string, development bool) (*LogBuffer, io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	buffer := NewLogBuffer(DefaultBufferLines)

	var console io.Writer = os.Stdout
	if development {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	out := io.MultiWriter(console, buffer)

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return buffer, out
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	max   int
	mu    sync.Mutex
}

// NewLogBuffer keeps at most max lines.
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = DefaultBufferLines
	}
	return &LogBuffer{
		lines: make([]string, 0, max),
		max:   max,
	}
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))
	if len(lb.lines) > lb.max {
		lb.lines = lb.lines[len(lb.lines)-lb.max:]
	}

	return len(p), nil
}

// GetLogs returns a copy of the buffered lines, oldest first.
func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
