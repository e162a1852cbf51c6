package models

import "time"

// SessionStatus is the party session's top-level lifecycle, independent
// of phase progression.
type SessionStatus string

const (
	SessionOpen       SessionStatus = "OPEN"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionAbandoned  SessionStatus = "ABANDONED"
)

// Phase is the strict linear state machine a session's content walks
// through once started (spec.md §4.7). Phase monotonicity is an
// invariant: once a session leaves a phase it never returns to it.
type Phase string

const (
	PhaseLobby     Phase = "LOBBY"
	PhasePrompt    Phase = "PROMPT"
	PhaseCopy      Phase = "COPY"
	PhaseVote      Phase = "VOTE"
	PhaseResults   Phase = "RESULTS"
	PhaseCompleted Phase = "COMPLETED"
)

// phaseOrder gives every Phase a monotonic index so callers can assert
// "never returns to a prior phase" without hardcoding comparisons.
var phaseOrder = map[Phase]int{
	PhaseLobby: 0, PhasePrompt: 1, PhaseCopy: 2, PhaseVote: 3,
	PhaseResults: 4, PhaseCompleted: 5,
}

// Index returns the phase's position in the linear progression.
func (p Phase) Index() int { return phaseOrder[p] }

// Next returns the phase immediately following p, or PhaseCompleted if p
// is already terminal.
func (p Phase) Next() Phase {
	switch p {
	case PhaseLobby:
		return PhasePrompt
	case PhasePrompt:
		return PhaseCopy
	case PhaseCopy:
		return PhaseVote
	case PhaseVote:
		return PhaseResults
	case PhaseResults:
		return PhaseCompleted
	default:
		return PhaseCompleted
	}
}

// SessionConfig holds the per-party tunables the host picks at creation.
type SessionConfig struct {
	MinPlayers       int `json:"minPlayers"`
	MaxPlayers       int `json:"maxPlayers"`
	PromptsPerPlayer int `json:"promptsPerPlayer"`
	CopiesPerPlayer  int `json:"copiesPerPlayer"`
	VotesPerPlayer   int `json:"votesPerPlayer"`
}

// PartySession is a synchronized multi-player match composed of QF rounds.
type PartySession struct {
	ID            string        `json:"id"`
	Code          string        `json:"code"` // 8-char uppercase alnum, ambiguous chars excluded
	HostPlayerID  string        `json:"hostPlayerId"`
	Config        SessionConfig `json:"config"`
	Status        SessionStatus `json:"status"`
	CurrentPhase  Phase         `json:"currentPhase"`
	PhaseStartedAt time.Time    `json:"phaseStartedAt"`
	PhaseExpiresAt *time.Time   `json:"phaseExpiresAt,omitempty"`
	LockedAt      *time.Time    `json:"lockedAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
}

// ParticipantStatus tracks one player's connection/engagement state
// within a session.
type ParticipantStatus string

const (
	ParticipantJoined       ParticipantStatus = "JOINED"
	ParticipantReady        ParticipantStatus = "READY"
	ParticipantActive       ParticipantStatus = "ACTIVE"
	ParticipantCompleted    ParticipantStatus = "COMPLETED"
	ParticipantDisconnected ParticipantStatus = "DISCONNECTED"
)

// PartyParticipant is a session+player pair with per-phase progress
// counters. Invariant: each counter <= the session's corresponding
// X_per_player config value.
type PartyParticipant struct {
	ID              string            `json:"id"`
	SessionID       string            `json:"sessionId"`
	PlayerID        string            `json:"playerId"`
	Status          ParticipantStatus `json:"status"`
	IsHost          bool              `json:"isHost"`
	PromptsSubmitted int              `json:"promptsSubmitted"`
	CopiesSubmitted  int              `json:"copiesSubmitted"`
	VotesSubmitted   int              `json:"votesSubmitted"`
	JoinedAt        time.Time         `json:"joinedAt"`
	IsAI            bool              `json:"isAi"`
}

// ResultView records that a participant has seen a finalized outcome;
// created at most once per (participant, set/phraseset) and idempotent
// on re-read (it carries the payout amount computed at creation time).
type ResultView struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	PhrasesetID   *string `json:"phrasesetId,omitempty"`
	SetID         *string `json:"setId,omitempty"`
	PayoutAmount  int64  `json:"payoutAmount"`
}

// ParticipantAward enumerates the named RESULTS-phase awards.
type ParticipantAward string

const (
	AwardBestWriter    ParticipantAward = "best_writer"
	AwardTopImpostor   ParticipantAward = "top_impostor"
	AwardSharpestVoter ParticipantAward = "sharpest_voter"
)

// ParticipantResult is one participant's computed RESULTS-phase summary.
type ParticipantResult struct {
	ParticipantID   string             `json:"participantId"`
	Spent           int64              `json:"spent"`
	Earned          int64              `json:"earned"`
	Net             int64              `json:"net"`
	Rank            int                `json:"rank"`
	VotesOnOriginals int               `json:"votesOnOriginals"`
	VotesFooled      int               `json:"votesFooled"`
	VoteAccuracy     float64           `json:"voteAccuracy"`
	Awards          []ParticipantAward `json:"awards,omitempty"`
}
