package session_api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
)

// HandleEvents serves the long-lived SSE stream for a session. Each client
// receives one snapshot immediately on connect, then every coalesced
// session-update broadcast, with heartbeat frames on idle.
//
// The optional ?name= query ties the connection to a participant so the
// broadcast envelope can flag them as connected.
func HandleEvents(registry *realtime.Registry, broadcaster *realtime.Broadcaster, keepalive time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()

		if registry.SubscriberCount(code) >= realtime.MaxSubscribersPerSession {
			return c.String(503, "session is full")
		}

		ch, unsubscribe := registry.Subscribe(code)
		defer unsubscribe()

		// Unsubscribe drops the participant mapping with the channel, so no
		// separate untrack is needed and a newer tab's mapping is never
		// clobbered on the way out.
		name := cleanText(c.QueryParam("name"))
		if name != "" {
			registry.TrackParticipant(code, name, ch)
		}

		// Build the initial paint after subscribing and tracking so the
		// connecting participant already reads as connected in their own
		// first frame. Headers are not written yet, so a bad code still
		// gets a proper status line; the deferred unsubscribe cleans up.
		initial, err := broadcaster.SnapshotPayload(ctx, code)
		if errors.Is(err, db.ErrSessionNotFound) {
			return c.String(404, "session not found")
		}
		if err != nil {
			slog.Error("failed to open event stream", "session_code", code, "error", err)
			return c.String(500, "failed to open event stream")
		}

		common.SetSSEHeaders(c)
		c.Response().WriteHeader(200)

		if err := common.WriteSSEData(c, initial); err != nil {
			return nil
		}

		slog.Debug("event stream open", "session_code", code, "participant", name)

		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case payload, ok := <-ch:
				if !ok {
					// Registry pruned us, most likely a dead-channel sweep.
					return nil
				}
				if err := common.WriteSSEData(c, payload); err != nil {
					return nil
				}
			case <-ticker.C:
				if err := common.WriteSSEData(c, realtime.Heartbeat); err != nil {
					return nil
				}
			}
		}
	}
}
