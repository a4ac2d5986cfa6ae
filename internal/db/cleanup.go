package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	// ParticipantStaleAfter is how long a participant may go without any
	// activity (REST heartbeat or SSE-driven last_seen touch) before the
	// sweep removes them from their session.
	ParticipantStaleAfter = 10 * time.Minute

	// SessionIdleAfter is how long a session may go without any update
	// before the sweep removes it entirely.
	SessionIdleAfter = 24 * time.Hour

	// cleanupInterval spaces out lazy sweeps triggered from request handlers.
	cleanupInterval = 5 * time.Minute
)

// Cleanup removes stale participants and idle sessions. Safe to call at any
// time; relies only on last_seen / updated_at timestamps.
func (db *DatabaseConnection) Cleanup(ctx context.Context) error {
	participants, err := db.Pool.Exec(ctx,
		`DELETE FROM participants WHERE last_seen < NOW() - $1::interval`,
		ParticipantStaleAfter.String())
	if err != nil {
		return fmt.Errorf("cleanup participants: %w", err)
	}

	sessions, err := db.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE updated_at < NOW() - $1::interval`,
		SessionIdleAfter.String())
	if err != nil {
		return fmt.Errorf("cleanup sessions: %w", err)
	}

	if participants.RowsAffected() > 0 || sessions.RowsAffected() > 0 {
		slog.Info("database cleanup",
			"stale_participants", participants.RowsAffected(),
			"idle_sessions", sessions.RowsAffected())
	}
	return nil
}

// LazyCleaner runs Cleanup at most once per interval, triggered
// opportunistically from mutating request handlers. Cheap to call on every
// request; concurrent callers race on an atomic timestamp so only one wins.
type LazyCleaner struct {
	dbc     *DatabaseConnection
	lastRun atomic.Int64 // unix nanos
}

func NewLazyCleaner(dbc *DatabaseConnection) *LazyCleaner {
	return &LazyCleaner{dbc: dbc}
}

// MaybeCleanup runs a sweep if one hasn't run within the interval.
// Failures are logged and retried after the next interval elapses.
func (lc *LazyCleaner) MaybeCleanup(ctx context.Context) {
	now := time.Now().UnixNano()
	last := lc.lastRun.Load()
	if now-last < int64(cleanupInterval) {
		return
	}
	if !lc.lastRun.CompareAndSwap(last, now) {
		// Another request claimed this interval.
		return
	}

	if err := lc.dbc.Cleanup(ctx); err != nil {
		slog.Error("lazy cleanup failed", "error", err)
		// Allow a retry on the next trigger.
		lc.lastRun.Store(now - int64(cleanupInterval))
	}
}
