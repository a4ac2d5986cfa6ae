package session_api

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/internal/db"
)

func HandleGet(dbc *db.DatabaseConnection, cleaner *db.LazyCleaner) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		snap, err := dbc.GetSession(c.Request().Context(), code)
		if errors.Is(err, db.ErrSessionNotFound) {
			return c.String(404, "session not found")
		}
		if err != nil {
			slog.Error("failed to load session", "session_code", code, "error", err)
			return c.String(500, "failed to load session")
		}

		cleaner.MaybeCleanup(c.Request().Context())
		return c.JSON(200, snap)
	}
}
