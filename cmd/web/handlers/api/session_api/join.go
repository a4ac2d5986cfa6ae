package session_api

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
)

func HandleJoin(dbc *db.DatabaseConnection, coalescer *realtime.Coalescer, cleaner *db.LazyCleaner) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		var req struct {
			Name       string `json:"name" validate:"required,max=64"`
			UserID     string `json:"userId" validate:"omitempty,max=64"`
			IsObserver bool   `json:"isObserver"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(400, "invalid json")
		}
		req.Name = cleanText(req.Name)
		if err := validate.Struct(&req); err != nil {
			return c.String(400, "invalid request: "+err.Error())
		}
		if req.UserID == "" {
			req.UserID = uuid.NewString()
		}

		snap, err := dbc.JoinSession(c.Request().Context(), code, req.Name, req.UserID, req.IsObserver)
		if errors.Is(err, db.ErrSessionNotFound) {
			return c.String(404, "session not found")
		}
		if err != nil {
			slog.Error("failed to join session", "session_code", code, "error", err)
			return c.String(500, "failed to join session")
		}

		cleaner.MaybeCleanup(c.Request().Context())
		coalescer.ScheduleBroadcast(code)
		return c.JSON(200, map[string]any{
			"userId":  req.UserID,
			"session": snap,
		})
	}
}
