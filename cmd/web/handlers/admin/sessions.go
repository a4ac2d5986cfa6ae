package admin

import (
	"errors"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/auth"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
)

// HandleSessionsIndex lists every live session with participant and
// connection counts for the operator view.
func HandleSessionsIndex(sm *auth.SessionManager, dbc *db.DatabaseConnection, registry *realtime.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := common.RequireAdmin(c, sm); err != nil {
			return err
		}

		snaps, err := dbc.ListSessions(c.Request().Context())
		if err != nil {
			slog.Error("failed to list sessions", "error", err)
			return c.String(500, "failed to list sessions")
		}

		type sessionRow struct {
			SessionCode  string `json:"sessionCode"`
			Title        string `json:"title"`
			HostName     string `json:"hostName"`
			Participants int    `json:"participants"`
			Subscribers  int    `json:"subscribers"`
			CurrentRound int    `json:"currentRound"`
			Created      string `json:"created"`
			LastActivity string `json:"lastActivity"`
		}
		rows := make([]sessionRow, 0, len(snaps))
		for _, s := range snaps {
			rows = append(rows, sessionRow{
				SessionCode:  s.SessionCode,
				Title:        s.Title,
				HostName:     s.HostName(),
				Participants: len(s.Participants),
				Subscribers:  registry.SubscriberCount(s.SessionCode),
				CurrentRound: s.VotingState.CurrentRound,
				Created:      humanize.Time(s.CreatedAt),
				LastActivity: humanize.Time(s.LastUpdated),
			})
		}

		return c.JSON(200, rows)
	}
}

// HandleSessionDelete lets the operator tear down a session. Connected
// clients are not force-disconnected; their streams simply go quiet and the
// next reconnect attempt gets a 404.
func HandleSessionDelete(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := common.RequireAdmin(c, sm); err != nil {
			return err
		}

		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		err = dbc.DeleteSession(c.Request().Context(), code)
		if errors.Is(err, db.ErrSessionNotFound) {
			return c.String(404, "session not found")
		}
		if err != nil {
			slog.Error("failed to delete session", "session_code", code, "error", err)
			return c.String(500, "failed to delete session")
		}

		slog.Info("session deleted by operator", "session_code", code)
		return c.JSON(200, map[string]any{"status": "deleted"})
	}
}
