package realtime

import (
	"encoding/json"
	"time"

	"thirdcoast.systems/pointdeck/internal/db"
)

// Event type discriminators on the SSE wire.
const (
	EventSessionUpdate = "session-update"
	EventHeartbeat     = "heartbeat"
)

// Heartbeat is the pre-serialized keep-alive event. Clients may ignore it
// but must not treat it as an error.
var Heartbeat = []byte(`{"type":"heartbeat"}`)

// ParticipantView is a participant as serialized to clients, augmented with
// the derived connectivity flag.
type ParticipantView struct {
	Name       string  `json:"name"`
	Voted      bool    `json:"voted"`
	Vote       *string `json:"vote,omitempty"`
	IsHost     bool    `json:"isHost"`
	IsObserver bool    `json:"isObserver"`
	LastSeen   int64   `json:"lastSeen,omitempty"`
	Connected  bool    `json:"connected"`
}

// SessionUpdate is the envelope broadcast to every subscriber of a session.
// The payload is session-wide: identical bytes go to all recipients.
type SessionUpdate struct {
	Type            string            `json:"type"`
	SessionCode     string            `json:"sessionCode"`
	Title           string            `json:"title"`
	Participants    []ParticipantView `json:"participants"`
	VotingState     db.VotingState    `json:"votingState"`
	StoryPointScale []string          `json:"storyPointScale"`
	LastUpdated     time.Time         `json:"lastUpdated"`
}

// NewSessionUpdate builds the broadcast envelope from a snapshot. The
// connected callback derives per-participant connectivity; hosts are always
// reported connected so the room never appears to lose its owner.
func NewSessionUpdate(snap *db.Snapshot, connected func(name string) bool) SessionUpdate {
	participants := make([]ParticipantView, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		view := ParticipantView{
			Name:       p.Name,
			Voted:      p.Voted,
			Vote:       p.Vote,
			IsHost:     p.IsHost,
			IsObserver: p.IsObserver,
			Connected:  p.IsHost || connected(p.Name),
		}
		if p.LastSeen != nil {
			view.LastSeen = p.LastSeen.UnixMilli()
		}
		participants = append(participants, view)
	}

	return SessionUpdate{
		Type:            EventSessionUpdate,
		SessionCode:     snap.SessionCode,
		Title:           snap.Title,
		Participants:    participants,
		VotingState:     snap.VotingState,
		StoryPointScale: snap.StoryPointScale,
		LastUpdated:     snap.LastUpdated,
	}
}

// Marshal serializes the envelope for the wire.
func (u SessionUpdate) Marshal() ([]byte, error) {
	return json.Marshal(u)
}
