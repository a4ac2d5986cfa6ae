// package session_api provides estimation session API handlers.
package session_api

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
	"thirdcoast.systems/pointdeck/internal/sessioncode"
)

var (
	validate  = validator.New()
	sanitizer = bluemonday.StrictPolicy()
)

// cleanText strips any markup from user-supplied display text.
func cleanText(s string) string {
	return strings.TrimSpace(sanitizer.Sanitize(s))
}

const createCodeAttempts = 5

func HandleCreate(dbc *db.DatabaseConnection, coalescer *realtime.Coalescer, cleaner *db.LazyCleaner) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			HostName        string   `json:"hostName" validate:"required,max=64"`
			UserID          string   `json:"userId" validate:"omitempty,max=64"`
			Title           string   `json:"title" validate:"omitempty,max=200"`
			StoryPointScale []string `json:"storyPointScale" validate:"omitempty,min=2,max=20,dive,required,max=16"`
			SessionCode     string   `json:"sessionCode"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(400, "invalid json")
		}
		req.HostName = cleanText(req.HostName)
		req.Title = cleanText(req.Title)
		if err := validate.Struct(&req); err != nil {
			return c.String(400, "invalid request: "+err.Error())
		}
		if req.UserID == "" {
			req.UserID = uuid.NewString()
		}

		// A client-suggested code is honored when well formed; collisions
		// fall through to generated codes.
		var codes []string
		if suggested := sessioncode.Normalize(req.SessionCode); sessioncode.Valid(suggested) {
			codes = append(codes, suggested)
		}
		for len(codes) < createCodeAttempts {
			codes = append(codes, sessioncode.Generate())
		}

		var snap *db.Snapshot
		var err error
		for _, code := range codes {
			snap, err = dbc.CreateSession(c.Request().Context(), db.CreateSessionParams{
				SessionCode:     code,
				HostName:        req.HostName,
				UserID:          req.UserID,
				Title:           req.Title,
				StoryPointScale: req.StoryPointScale,
			})
			if err == nil {
				break
			}
			if !db.IsUniqueViolation(err) {
				slog.Error("failed to create session", "error", err)
				return c.String(500, "failed to create session")
			}
		}
		if err != nil {
			slog.Error("session code space exhausted after retries", "error", err)
			return c.String(500, "failed to create session")
		}

		cleaner.MaybeCleanup(c.Request().Context())
		coalescer.ScheduleBroadcast(snap.SessionCode)
		return c.JSON(201, snap)
	}
}
