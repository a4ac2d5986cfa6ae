package session_api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/internal/db"
)

// HandleVerifyHost reports whether the caller is the original host of the
// session, keyed by the userId it was created with. Rejoining hosts use this
// to reclaim the host view after a page reload.
func HandleVerifyHost(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		var req struct {
			Name   string `json:"name" validate:"required,max=64"`
			UserID string `json:"userId" validate:"required,max=64"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(400, "invalid json")
		}
		req.Name = cleanText(req.Name)
		if err := validate.Struct(&req); err != nil {
			return c.String(400, "invalid request: "+err.Error())
		}

		isHost, err := dbc.IsOriginalHost(c.Request().Context(), code, req.UserID, req.Name)
		if err != nil {
			slog.Error("failed to verify host", "session_code", code, "error", err)
			return c.String(500, "failed to verify host")
		}

		return c.JSON(200, map[string]any{"isHost": isHost})
	}
}
