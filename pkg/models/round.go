package models

import "time"

// RoundType enumerates the billable activity kinds a Round can represent.
type RoundType string

const (
	RoundPrompt RoundType = "prompt"
	RoundCopy   RoundType = "copy"
	RoundVote   RoundType = "vote"
	RoundGuess  RoundType = "guess" // TL only
)

// RoundStatus is a tagged status field with an exhaustive, monotonic
// transition set: active -> {submitted, expired, abandoned}; submitted
// may later roll into completed once its owning aggregate finalizes.
type RoundStatus string

const (
	RoundActive    RoundStatus = "active"
	RoundSubmitted RoundStatus = "submitted"
	RoundExpired   RoundStatus = "expired"
	RoundAbandoned RoundStatus = "abandoned"
	RoundCompleted RoundStatus = "completed"
)

// Round is the unit of billable player activity for QF, IR, and TL alike.
// Exactly one active round may exist per (player, game) at a time —
// enforced by the per-player lock in the Round Engine (C5), not by this
// struct.
type Round struct {
	ID              string      `json:"id"`
	PlayerID        string      `json:"playerId"`
	Game            GameType    `json:"game"`
	RoundType       RoundType   `json:"roundType"`
	Status          RoundStatus `json:"status"`
	Cost            int64       `json:"cost"`
	CreatedAt       time.Time   `json:"createdAt"`
	ExpiresAt       time.Time   `json:"expiresAt"`
	SubmittedAt     *time.Time  `json:"submittedAt,omitempty"`

	PromptText      string  `json:"promptText,omitempty"`
	SubmittedPhrase *string `json:"submittedPhrase,omitempty"`
	CopyPhrase      *string `json:"copyPhrase,omitempty"`
	ChosenEntryID   *string `json:"chosenEntryId,omitempty"`

	// Work-item linkage: which prompt round this copy/vote consumes, or
	// which backronym set this entry/vote belongs to (C6 Work Matcher).
	SourcePromptRoundID *string `json:"sourcePromptRoundId,omitempty"`
	SourceSetID         *string `json:"sourceSetId,omitempty"`

	// Party linkage, nil for solo play.
	PartySessionID     *string `json:"partySessionId,omitempty"`
	PartyParticipantID *string `json:"partyParticipantId,omitempty"`

	// TL-specific fields. A guess round stays active across many
	// SubmitGuess calls (unlike the single-shot prompt/copy/vote
	// submit); these accumulate state across that sequence.
	SnapshotAnswerIDs []string    `json:"snapshotAnswerIds,omitempty"`
	MatchedClusters   []string    `json:"matchedClusters,omitempty"`
	Strikes           int         `json:"strikes,omitempty"`
	FinalCoverage     float64     `json:"finalCoverage,omitempty"`
	GrossPayout       int64       `json:"grossPayout,omitempty"`
	GuessEmbeddings   [][]float64 `json:"guessEmbeddings,omitempty"` // prior guesses this round, for self-similarity rejection

	// Anti-collusion bookkeeping: set when this round is abandoned. The
	// Work Matcher then excludes the source prompt from this player, with
	// no expiry (abandoned_prompt_cooldown_hours is not applied).
	AbandonedAt *time.Time `json:"abandonedAt,omitempty"`
}

// IsActive reports whether the round can still be submitted to.
func (r *Round) IsActive() bool {
	return r.Status == RoundActive
}
