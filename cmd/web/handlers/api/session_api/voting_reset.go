package session_api

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
)

// HandleVotingReset clears every vote and opens a fresh voting pass in a
// single transaction.
func HandleVotingReset(dbc *db.DatabaseConnection, coalescer *realtime.Coalescer) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		snap, err := dbc.ResetVotes(c.Request().Context(), code)
		if errors.Is(err, db.ErrSessionNotFound) {
			return c.String(404, "session not found")
		}
		if err != nil {
			slog.Error("failed to reset votes", "session_code", code, "error", err)
			return c.String(500, "failed to reset votes")
		}

		coalescer.ScheduleBroadcast(code)
		return c.JSON(200, snap)
	}
}
