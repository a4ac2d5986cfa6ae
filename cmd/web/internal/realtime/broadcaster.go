package realtime

import (
	"context"
	"errors"
	"log/slog"

	"thirdcoast.systems/pointdeck/internal/db"
)

// SnapshotSource is the persistence collaborator the broadcaster reads
// authoritative session state from. *db.DatabaseConnection satisfies it.
type SnapshotSource interface {
	GetSession(ctx context.Context, sessionCode string) (*db.Snapshot, error)
}

// Broadcaster fans the current session snapshot out to every subscribed
// channel. It is fire-and-forget relative to the write path: no failure here
// ever surfaces to the request that triggered it.
type Broadcaster struct {
	registry *Registry
	source   SnapshotSource
}

// NewBroadcaster creates a broadcaster over a registry and snapshot source.
func NewBroadcaster(registry *Registry, source SnapshotSource) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		source:   source,
	}
}

// Broadcast delivers the current snapshot for a session to all of its
// subscribers and prunes channels that fail to accept the write. With zero
// subscribers it returns before touching the persistence layer.
func (b *Broadcaster) Broadcast(ctx context.Context, sessionCode string) {
	if !b.registry.HasSubscribers(sessionCode) {
		return
	}

	payload, err := b.SnapshotPayload(ctx, sessionCode)
	if err != nil {
		// Abandon this pass; the next trigger retries from scratch.
		if errors.Is(err, db.ErrSessionNotFound) {
			slog.Debug("broadcast skipped, session gone", "session_code", sessionCode)
		} else {
			slog.Warn("broadcast snapshot fetch failed", "session_code", sessionCode, "error", err)
		}
		return
	}

	// The registry does the sends under its lock; a subscriber that
	// unsubscribed between the check above and here just isn't in the set
	// anymore.
	_, pruned := b.registry.Publish(sessionCode, payload)
	if pruned > 0 {
		slog.Info("pruned dead subscribers", "session_code", sessionCode, "count", pruned)
	}
}

// SnapshotPayload fetches the authoritative snapshot and serializes the
// connectivity-augmented envelope. Also used by the events endpoint for the
// initial unicast paint.
func (b *Broadcaster) SnapshotPayload(ctx context.Context, sessionCode string) ([]byte, error) {
	snap, err := b.source.GetSession(ctx, sessionCode)
	if err != nil {
		return nil, err
	}
	update := NewSessionUpdate(snap, func(name string) bool {
		return b.registry.IsConnected(sessionCode, name)
	})
	return update.Marshal()
}
