package session_api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/internal/db"
	"thirdcoast.systems/pointdeck/pkg/utils/markdown"
)

// HandleRoundsList returns the completed round history. Descriptions are
// stored as markdown source and rendered to sanitized HTML here.
func HandleRoundsList(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		exists, err := dbc.SessionExists(c.Request().Context(), code)
		if err != nil {
			slog.Error("failed to check session", "session_code", code, "error", err)
			return c.String(500, "failed to load rounds")
		}
		if !exists {
			return c.String(404, "session not found")
		}

		rounds, err := dbc.ListRounds(c.Request().Context(), code)
		if err != nil {
			slog.Error("failed to load rounds", "session_code", code, "error", err)
			return c.String(500, "failed to load rounds")
		}

		type roundOut struct {
			db.Round
			DescriptionHTML string `json:"descriptionHtml,omitempty"`
		}
		out := make([]roundOut, 0, len(rounds))
		for _, r := range rounds {
			ro := roundOut{Round: r}
			if strings.TrimSpace(r.Description) != "" {
				md, err := markdown.NewMarkdown(r.Description)
				if err == nil {
					ro.DescriptionHTML = string(md.Render())
				}
			}
			out = append(out, ro)
		}
		return c.JSON(200, out)
	}
}

// HandleRoundSave records a completed round together with its votes.
func HandleRoundSave(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		var req struct {
			RoundNumber   int               `json:"roundNumber" validate:"gte=1"`
			Description   string            `json:"description" validate:"omitempty,max=2000"`
			Votes         map[string]string `json:"votes"`
			VoteAverage   string            `json:"voteAverage" validate:"omitempty,max=16"`
			FinalEstimate string            `json:"finalEstimate" validate:"omitempty,max=16"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(400, "invalid json")
		}
		if err := validate.Struct(&req); err != nil {
			return c.String(400, "invalid request: "+err.Error())
		}

		err = dbc.SaveRound(c.Request().Context(), code, db.Round{
			RoundNumber:   req.RoundNumber,
			Description:   req.Description,
			Votes:         req.Votes,
			VoteAverage:   req.VoteAverage,
			FinalEstimate: req.FinalEstimate,
		})
		if errors.Is(err, db.ErrSessionNotFound) || db.IsForeignKeyViolation(err) {
			return c.String(404, "session not found")
		}
		if err != nil {
			slog.Error("failed to save round", "session_code", code, "round", req.RoundNumber, "error", err)
			return c.String(500, "failed to save round")
		}

		return c.JSON(201, map[string]any{"roundNumber": req.RoundNumber})
	}
}
