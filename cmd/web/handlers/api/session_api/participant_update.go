package session_api

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
)

// HandleParticipantUpdate patches a single participant: vote submission,
// vote retraction, observer toggling. Every call refreshes last_seen, so an
// empty body doubles as a presence heartbeat.
func HandleParticipantUpdate(dbc *db.DatabaseConnection, coalescer *realtime.Coalescer) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}
		name := cleanText(c.Param("name"))
		if name == "" {
			return c.String(400, "invalid participant name")
		}

		var req struct {
			Voted      *bool   `json:"voted"`
			Vote       *string `json:"vote" validate:"omitempty,max=16"`
			ClearVote  bool    `json:"clearVote"`
			IsObserver *bool   `json:"isObserver"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(400, "invalid json")
		}
		if err := validate.Struct(&req); err != nil {
			return c.String(400, "invalid request: "+err.Error())
		}

		updates := db.ParticipantUpdate{
			Voted:      req.Voted,
			Vote:       req.Vote,
			ClearVote:  req.ClearVote,
			IsObserver: req.IsObserver,
		}
		// Submitting a vote implies voted unless the client says otherwise.
		if req.Vote != nil && req.Voted == nil {
			updates.Voted = common.BoolPtr(true)
		}

		snap, err := dbc.UpdateParticipant(c.Request().Context(), code, name, updates)
		if errors.Is(err, db.ErrSessionNotFound) || errors.Is(err, db.ErrParticipantNotFound) {
			return c.String(404, "participant not found")
		}
		if err != nil {
			slog.Error("failed to update participant", "session_code", code, "participant", name, "error", err)
			return c.String(500, "failed to update participant")
		}

		coalescer.ScheduleBroadcast(code)
		return c.JSON(200, snap)
	}
}
