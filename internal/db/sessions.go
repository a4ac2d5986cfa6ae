package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// CreateSessionParams contains the parameters for creating a new session
type CreateSessionParams struct {
	SessionCode     string
	HostName        string
	UserID          string
	Title           string
	StoryPointScale []string
}

// CreateSession inserts a session plus its host participant in one transaction.
func (db *DatabaseConnection) CreateSession(ctx context.Context, params CreateSessionParams) (*Snapshot, error) {
	title := params.Title
	if title == "" {
		title = DefaultSessionTitle
	}
	scale := params.StoryPointScale
	if len(scale) == 0 {
		scale = DefaultStoryPointScale
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (session_code, title, story_point_scale) VALUES ($1, $2, $3)`,
		params.SessionCode, title, scale)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO participants (session_code, name, user_id, is_host, last_seen)
		 VALUES ($1, $2, $3, TRUE, NOW())`,
		params.SessionCode, params.HostName, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("insert host participant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return db.GetSession(ctx, params.SessionCode)
}

// GetSession loads the full session snapshot, participants included.
// Returns ErrSessionNotFound for unknown codes.
func (db *DatabaseConnection) GetSession(ctx context.Context, sessionCode string) (*Snapshot, error) {
	snap := Snapshot{SessionCode: sessionCode}

	err := db.Pool.QueryRow(ctx,
		`SELECT title, voting_in_progress, votes_revealed, vote_average, final_estimate,
		        current_round, current_round_description, story_point_scale, created_at, updated_at
		 FROM sessions WHERE session_code = $1`,
		sessionCode).Scan(
		&snap.Title,
		&snap.VotingState.VotingInProgress,
		&snap.VotingState.VotesRevealed,
		&snap.VotingState.VoteAverage,
		&snap.VotingState.FinalEstimate,
		&snap.VotingState.CurrentRound,
		&snap.VotingState.CurrentRoundDescription,
		&snap.StoryPointScale,
		&snap.CreatedAt,
		&snap.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session %s: %w", sessionCode, err)
	}

	participants, err := db.sessionParticipants(ctx, sessionCode)
	if err != nil {
		return nil, err
	}
	snap.Participants = participants

	return &snap, nil
}

// SessionExists reports whether a session code is present.
func (db *DatabaseConnection) SessionExists(ctx context.Context, sessionCode string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE session_code = $1)`, sessionCode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("session exists %s: %w", sessionCode, err)
	}
	return exists, nil
}

// UpdateTitle replaces the session title.
func (db *DatabaseConnection) UpdateTitle(ctx context.Context, sessionCode string, title string) (*Snapshot, error) {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE sessions SET title = $1 WHERE session_code = $2`, title, sessionCode)
	if err != nil {
		return nil, fmt.Errorf("update title %s: %w", sessionCode, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSessionNotFound
	}
	return db.GetSession(ctx, sessionCode)
}

// UpdateScale replaces the story point scale.
func (db *DatabaseConnection) UpdateScale(ctx context.Context, sessionCode string, scale []string) (*Snapshot, error) {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE sessions SET story_point_scale = $1 WHERE session_code = $2`, scale, sessionCode)
	if err != nil {
		return nil, fmt.Errorf("update scale %s: %w", sessionCode, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSessionNotFound
	}
	return db.GetSession(ctx, sessionCode)
}

// UpdateVotingState applies a partial voting-state update.
func (db *DatabaseConnection) UpdateVotingState(ctx context.Context, sessionCode string, updates VotingStateUpdate) (*Snapshot, error) {
	setClauses := []string{}
	args := []any{}

	appendSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if updates.VotingInProgress != nil {
		appendSet("voting_in_progress", *updates.VotingInProgress)
	}
	if updates.VotesRevealed != nil {
		appendSet("votes_revealed", *updates.VotesRevealed)
	}
	if updates.VoteAverage != nil {
		appendSet("vote_average", *updates.VoteAverage)
	}
	if updates.FinalEstimate != nil {
		appendSet("final_estimate", *updates.FinalEstimate)
	}
	if updates.CurrentRound != nil {
		appendSet("current_round", *updates.CurrentRound)
	}
	if updates.CurrentRoundDescription != nil {
		appendSet("current_round_description", *updates.CurrentRoundDescription)
	}

	if len(setClauses) == 0 {
		return db.GetSession(ctx, sessionCode)
	}

	args = append(args, sessionCode)
	query := fmt.Sprintf(`UPDATE sessions SET %s WHERE session_code = $%d`,
		strings.Join(setClauses, ", "), len(args))

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update voting state %s: %w", sessionCode, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSessionNotFound
	}

	return db.GetSession(ctx, sessionCode)
}

// ResetVotes clears every participant's vote and arms a fresh voting pass.
func (db *DatabaseConnection) ResetVotes(ctx context.Context, sessionCode string) (*Snapshot, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE participants SET voted = FALSE, vote = NULL, last_seen = NOW()
		 WHERE session_code = $1`, sessionCode)
	if err != nil {
		return nil, fmt.Errorf("reset participant votes %s: %w", sessionCode, err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET voting_in_progress = TRUE, votes_revealed = FALSE,
		        vote_average = '', final_estimate = ''
		 WHERE session_code = $1`, sessionCode)
	if err != nil {
		return nil, fmt.Errorf("reset voting state %s: %w", sessionCode, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSessionNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return db.GetSession(ctx, sessionCode)
}

// ListSessions returns every session, most recently updated first. Admin use.
func (db *DatabaseConnection) ListSessions(ctx context.Context) ([]*Snapshot, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_code, title, voting_in_progress, votes_revealed, vote_average,
		        final_estimate, current_round, current_round_description, story_point_scale,
		        created_at, updated_at
		 FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Snapshot
	for rows.Next() {
		var snap Snapshot
		err := rows.Scan(
			&snap.SessionCode,
			&snap.Title,
			&snap.VotingState.VotingInProgress,
			&snap.VotingState.VotesRevealed,
			&snap.VotingState.VoteAverage,
			&snap.VotingState.FinalEstimate,
			&snap.VotingState.CurrentRound,
			&snap.VotingState.CurrentRoundDescription,
			&snap.StoryPointScale,
			&snap.CreatedAt,
			&snap.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, &snap)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("list sessions rows: %w", rows.Err())
	}

	for _, snap := range sessions {
		participants, err := db.sessionParticipants(ctx, snap.SessionCode)
		if err != nil {
			return nil, err
		}
		snap.Participants = participants
	}

	return sessions, nil
}

// DeleteSession removes a session and, via FK cascade, its participants and rounds.
func (db *DatabaseConnection) DeleteSession(ctx context.Context, sessionCode string) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE session_code = $1`, sessionCode)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionCode, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
