package common

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// SetSSEHeaders prepares the response for a Server-Sent Events stream.
// X-Accel-Buffering disables nginx/reverse proxy buffering so events are
// delivered as they are written.
func SetSSEHeaders(c echo.Context) {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// WriteSSEData writes a single data-only SSE frame and flushes it. Event
// discrimination happens inside the JSON payload ("type" field), not via
// named SSE events.
func WriteSSEData(c echo.Context, data []byte) error {
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
