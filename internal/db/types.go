package db

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session code does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrParticipantNotFound is returned when a participant name is not part of a session.
var ErrParticipantNotFound = errors.New("participant not found")

// DefaultStoryPointScale is applied when a session is created without an explicit scale.
var DefaultStoryPointScale = []string{"0", "1", "2", "3", "5", "8", "?"}

const DefaultSessionTitle = "Sprint Planning Session"

// Participant is one named member of a session.
type Participant struct {
	Name       string     `json:"name"`
	UserID     string     `json:"userId,omitempty"`
	Voted      bool       `json:"voted"`
	Vote       *string    `json:"vote,omitempty"`
	IsHost     bool       `json:"isHost"`
	IsObserver bool       `json:"isObserver"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
}

// VotingState is the per-session voting machinery state.
type VotingState struct {
	VotingInProgress        bool   `json:"votingInProgress"`
	VotesRevealed           bool   `json:"votesRevealed"`
	VoteAverage             string `json:"voteAverage"`
	FinalEstimate           string `json:"finalEstimate"`
	CurrentRound            int    `json:"currentRound"`
	CurrentRoundDescription string `json:"currentRoundDescription"`
}

// Snapshot is the authoritative representation of a session at a point in
// time. It is the payload unit broadcast to SSE subscribers.
type Snapshot struct {
	SessionCode     string        `json:"sessionCode"`
	Title           string        `json:"title"`
	Participants    []Participant `json:"participants"`
	VotingState     VotingState   `json:"votingState"`
	StoryPointScale []string      `json:"storyPointScale"`
	CreatedAt       time.Time     `json:"createdAt"`
	LastUpdated     time.Time     `json:"lastUpdated"`
}

// HostName returns the name of the first host participant, or "".
func (s *Snapshot) HostName() string {
	for _, p := range s.Participants {
		if p.IsHost {
			return p.Name
		}
	}
	return ""
}

// ParticipantUpdate carries a partial participant mutation. Nil fields are
// left untouched; ClearVote nulls the stored vote.
type ParticipantUpdate struct {
	Voted      *bool
	Vote       *string
	ClearVote  bool
	IsObserver *bool
	LastSeen   *time.Time
}

// VotingStateUpdate carries a partial voting-state mutation. Nil fields are
// left untouched.
type VotingStateUpdate struct {
	VotingInProgress        *bool
	VotesRevealed           *bool
	VoteAverage             *string
	FinalEstimate           *string
	CurrentRound            *int
	CurrentRoundDescription *string
}

// Round is one completed voting round with its recorded votes.
type Round struct {
	RoundNumber   int               `json:"roundNumber"`
	Description   string            `json:"description"`
	Votes         map[string]string `json:"votes"`
	VoteAverage   string            `json:"voteAverage"`
	FinalEstimate string            `json:"finalEstimate"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
