package session_api

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
)

// HandleUpdate patches session-level settings: the title and/or the story
// point scale.
func HandleUpdate(dbc *db.DatabaseConnection, coalescer *realtime.Coalescer) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		var req struct {
			Title           *string  `json:"title" validate:"omitempty,max=200"`
			StoryPointScale []string `json:"storyPointScale" validate:"omitempty,min=2,max=20,dive,required,max=16"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(400, "invalid json")
		}
		if err := validate.Struct(&req); err != nil {
			return c.String(400, "invalid request: "+err.Error())
		}
		if req.Title == nil && req.StoryPointScale == nil {
			return c.String(400, "nothing to update")
		}

		var snap *db.Snapshot
		if req.Title != nil {
			title := cleanText(*req.Title)
			if title == "" {
				return c.String(400, "title must not be empty")
			}
			snap, err = dbc.UpdateTitle(c.Request().Context(), code, title)
		}
		if err == nil && req.StoryPointScale != nil {
			snap, err = dbc.UpdateScale(c.Request().Context(), code, req.StoryPointScale)
		}
		if errors.Is(err, db.ErrSessionNotFound) {
			return c.String(404, "session not found")
		}
		if err != nil {
			slog.Error("failed to update session", "session_code", code, "error", err)
			return c.String(500, "failed to update session")
		}

		coalescer.ScheduleBroadcast(code)
		return c.JSON(200, snap)
	}
}
