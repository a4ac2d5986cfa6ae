package db

import (
	"context"
	"fmt"
	"strings"
)

func (db *DatabaseConnection) sessionParticipants(ctx context.Context, sessionCode string) ([]Participant, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT name, user_id, voted, vote, is_host, is_observer, last_seen
		 FROM participants WHERE session_code = $1 ORDER BY created_at ASC`,
		sessionCode)
	if err != nil {
		return nil, fmt.Errorf("select participants %s: %w", sessionCode, err)
	}
	defer rows.Close()

	participants := []Participant{}
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.Name, &p.UserID, &p.Voted, &p.Vote, &p.IsHost, &p.IsObserver, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("participants rows %s: %w", sessionCode, rows.Err())
	}
	return participants, nil
}

// JoinSession upserts a participant. A user rejoining a session they
// originally hosted keeps host status even under a new connection.
func (db *DatabaseConnection) JoinSession(ctx context.Context, sessionCode, name, userID string, isObserver bool) (*Snapshot, error) {
	exists, err := db.SessionExists(ctx, sessionCode)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSessionNotFound
	}

	var isHost bool
	err = db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM participants
		   WHERE session_code = $1 AND user_id = $2 AND is_host = TRUE
		 )`, sessionCode, userID).Scan(&isHost)
	if err != nil {
		return nil, fmt.Errorf("check original host %s: %w", sessionCode, err)
	}

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO participants (session_code, name, user_id, is_host, is_observer, last_seen)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (session_code, name)
		 DO UPDATE SET user_id = $3, is_host = $4, is_observer = $5, last_seen = NOW()`,
		sessionCode, name, userID, isHost, isObserver)
	if err != nil {
		return nil, fmt.Errorf("upsert participant %s/%s: %w", sessionCode, name, err)
	}

	return db.GetSession(ctx, sessionCode)
}

// UpdateParticipant applies a partial participant update. LastSeen is always
// touched so idle pruning treats any mutation as activity.
func (db *DatabaseConnection) UpdateParticipant(ctx context.Context, sessionCode, name string, updates ParticipantUpdate) (*Snapshot, error) {
	setClauses := []string{}
	args := []any{}

	appendSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if updates.Voted != nil {
		appendSet("voted", *updates.Voted)
	}
	if updates.ClearVote {
		setClauses = append(setClauses, "vote = NULL")
	} else if updates.Vote != nil {
		appendSet("vote", *updates.Vote)
	}
	if updates.IsObserver != nil {
		appendSet("is_observer", *updates.IsObserver)
	}
	if updates.LastSeen != nil {
		appendSet("last_seen", *updates.LastSeen)
	} else {
		setClauses = append(setClauses, "last_seen = NOW()")
	}

	args = append(args, sessionCode)
	codeIdx := len(args)
	args = append(args, name)
	nameIdx := len(args)

	query := fmt.Sprintf(`UPDATE participants SET %s WHERE session_code = $%d AND name = $%d`,
		strings.Join(setClauses, ", "), codeIdx, nameIdx)

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update participant %s/%s: %w", sessionCode, name, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrParticipantNotFound
	}

	return db.GetSession(ctx, sessionCode)
}

// RemoveParticipant deletes a participant from a session.
func (db *DatabaseConnection) RemoveParticipant(ctx context.Context, sessionCode, name string) (*Snapshot, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM participants WHERE session_code = $1 AND name = $2`,
		sessionCode, name)
	if err != nil {
		return nil, fmt.Errorf("remove participant %s/%s: %w", sessionCode, name, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrParticipantNotFound
	}
	return db.GetSession(ctx, sessionCode)
}

// IsOriginalHost reports whether the given user created the session under
// the given participant name.
func (db *DatabaseConnection) IsOriginalHost(ctx context.Context, sessionCode, userID, name string) (bool, error) {
	var isHost bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM participants
		   WHERE session_code = $1 AND user_id = $2 AND name = $3 AND is_host = TRUE
		 )`, sessionCode, userID, name).Scan(&isHost)
	if err != nil {
		return false, fmt.Errorf("verify host %s: %w", sessionCode, err)
	}
	return isHost, nil
}
