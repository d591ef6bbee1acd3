package stream

import (
	"bufio"
	"encoding/json"
	"fmt"

	"companion-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// SSEWriter frames events as `data: <json>\n\n` and flushes after each one.
type SSEWriter struct {
	w *bufio.Writer
}

func NewSSEWriter(w *bufio.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

func (s *SSEWriter) Emit(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal sse event %s: %w", event.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return s.w.Flush()
}

// SetHeaders prepares a Fiber response for an event stream.
func SetHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

type ErrorData struct {
	Kind    apperror.Kind `json:"kind"`
	Message string        `json:"message"`
}

// ErrorDataFrom hides the message of internal failures.
func ErrorDataFrom(err error) ErrorData {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		return ErrorData{Kind: kind, Message: "internal server error"}
	}
	return ErrorData{Kind: kind, Message: err.Error()}
}

// Serve wraps run with the connected / error / close frames.
// The close event is always the last one written.
func Serve(w *bufio.Writer, run func(sink Sink) error) error {
	sink := NewSSEWriter(w)

	if err := sink.Emit(NewEvent(EventConnected, nil)); err != nil {
		return err
	}

	runErr := run(sink)
	if runErr != nil {
		if err := sink.Emit(NewEvent(EventError, ErrorDataFrom(runErr))); err != nil {
			return err
		}
	}

	if err := sink.Emit(NewEvent(EventClose, nil)); err != nil {
		return err
	}
	return runErr
}
