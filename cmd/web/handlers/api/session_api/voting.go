package session_api

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/common"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
)

// HandleVotingUpdate patches the session voting state: start/stop voting,
// reveal votes, record the average and final estimate, advance rounds.
func HandleVotingUpdate(dbc *db.DatabaseConnection, coalescer *realtime.Coalescer) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, err := common.RequireSessionCode(c, "code")
		if err != nil {
			return err
		}

		var req struct {
			VotingInProgress        *bool   `json:"votingInProgress"`
			VotesRevealed           *bool   `json:"votesRevealed"`
			VoteAverage             *string `json:"voteAverage" validate:"omitempty,max=16"`
			FinalEstimate           *string `json:"finalEstimate" validate:"omitempty,max=16"`
			CurrentRound            *int    `json:"currentRound" validate:"omitempty,gte=1"`
			CurrentRoundDescription *string `json:"currentRoundDescription" validate:"omitempty,max=2000"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(400, "invalid json")
		}
		if err := validate.Struct(&req); err != nil {
			return c.String(400, "invalid request: "+err.Error())
		}

		snap, err := dbc.UpdateVotingState(c.Request().Context(), code, db.VotingStateUpdate{
			VotingInProgress:        req.VotingInProgress,
			VotesRevealed:           req.VotesRevealed,
			VoteAverage:             req.VoteAverage,
			FinalEstimate:           req.FinalEstimate,
			CurrentRound:            req.CurrentRound,
			CurrentRoundDescription: req.CurrentRoundDescription,
		})
		if errors.Is(err, db.ErrSessionNotFound) {
			return c.String(404, "session not found")
		}
		if err != nil {
			slog.Error("failed to update voting state", "session_code", code, "error", err)
			return c.String(500, "failed to update voting state")
		}

		coalescer.ScheduleBroadcast(code)
		return c.JSON(200, snap)
	}
}
