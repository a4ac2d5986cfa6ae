package db

import (
	"context"
	"fmt"
)

// SaveRound records a completed round and its per-participant votes in one
// transaction. Re-saving the same round number replaces its votes.
func (db *DatabaseConnection) SaveRound(ctx context.Context, sessionCode string, round Round) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var roundID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO voting_rounds (session_code, round_number, description, vote_average, final_estimate, completed_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (session_code, round_number)
		 DO UPDATE SET description = $3, vote_average = $4, final_estimate = $5, completed_at = NOW()
		 RETURNING id`,
		sessionCode, round.RoundNumber, round.Description, round.VoteAverage, round.FinalEstimate).Scan(&roundID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("insert round %s#%d: %w", sessionCode, round.RoundNumber, err)
	}

	for name, vote := range round.Votes {
		_, err = tx.Exec(ctx,
			`INSERT INTO round_votes (round_id, participant_name, vote)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (round_id, participant_name) DO UPDATE SET vote = EXCLUDED.vote`,
			roundID, name, vote)
		if err != nil {
			return fmt.Errorf("insert round vote %s#%d/%s: %w", sessionCode, round.RoundNumber, name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRounds returns all completed rounds for a session in round order.
func (db *DatabaseConnection) ListRounds(ctx context.Context, sessionCode string) ([]Round, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, round_number, description, vote_average, final_estimate, created_at, completed_at
		 FROM voting_rounds WHERE session_code = $1 ORDER BY round_number ASC`,
		sessionCode)
	if err != nil {
		return nil, fmt.Errorf("select rounds %s: %w", sessionCode, err)
	}
	defer rows.Close()

	type roundRow struct {
		id    int64
		round Round
	}
	var rounds []roundRow
	for rows.Next() {
		var r roundRow
		if err := rows.Scan(&r.id, &r.round.RoundNumber, &r.round.Description,
			&r.round.VoteAverage, &r.round.FinalEstimate, &r.round.CreatedAt, &r.round.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan round row: %w", err)
		}
		r.round.Votes = map[string]string{}
		rounds = append(rounds, r)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("rounds rows %s: %w", sessionCode, rows.Err())
	}

	out := make([]Round, 0, len(rounds))
	for _, r := range rounds {
		voteRows, err := db.Pool.Query(ctx,
			`SELECT participant_name, vote FROM round_votes WHERE round_id = $1 ORDER BY participant_name ASC`,
			r.id)
		if err != nil {
			return nil, fmt.Errorf("select round votes %s#%d: %w", sessionCode, r.round.RoundNumber, err)
		}
		for voteRows.Next() {
			var name, vote string
			if err := voteRows.Scan(&name, &vote); err != nil {
				voteRows.Close()
				return nil, fmt.Errorf("scan round vote row: %w", err)
			}
			r.round.Votes[name] = vote
		}
		err = voteRows.Err()
		voteRows.Close()
		if err != nil {
			return nil, fmt.Errorf("round votes rows %s#%d: %w", sessionCode, r.round.RoundNumber, err)
		}
		out = append(out, r.round)
	}

	return out, nil
}
