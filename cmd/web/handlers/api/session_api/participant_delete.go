package session_api

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
)

func HandleParticipantDelete(dbc *db.DatabaseConnection, coalescer *realtime.Coalescer) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}
		name := cleanText(c.Param("name"))
		if name == "" {
			return c.String(400, "invalid participant name")
		}

		snap, err := dbc.RemoveParticipant(c.Request().Context(), code, name)
		if errors.Is(err, db.ErrSessionNotFound) || errors.Is(err, db.ErrParticipantNotFound) {
			return c.String(404, "participant not found")
		}
		if err != nil {
			slog.Error("failed to remove participant", "session_code", code, "participant", name, "error", err)
			return c.String(500, "failed to remove participant")
		}

		coalescer.ScheduleBroadcast(code)
		return c.JSON(200, snap)
	}
}
