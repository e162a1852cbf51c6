package models

import "time"

// PhrasesetStatus is QF's work-item lifecycle. Unlike IR's SetStatus,
// QF keeps an intermediate "closing" state between voting and finalized
// (spec.md §9 — the asymmetry between QF and IR is intentional, not a bug).
type PhrasesetStatus string

const (
	PhrasesetOpen      PhrasesetStatus = "open"
	PhrasesetVoting    PhrasesetStatus = "voting"
	PhrasesetClosing   PhrasesetStatus = "closing"
	PhrasesetFinalized PhrasesetStatus = "finalized"
)

// Phraseset is one prompt plus its two copy phrases, available for voting
// once both copies are in.
type Phraseset struct {
	ID        string          `json:"id"`
	PromptRoundID string      `json:"promptRoundId"`
	AuthorID  string          `json:"authorId"`
	PromptText string         `json:"promptText"`

	Copy1RoundID string  `json:"copy1RoundId"`
	Copy1PlayerID string `json:"copy1PlayerId"`
	Copy1Phrase  string  `json:"copy1Phrase"`
	Copy2RoundID *string `json:"copy2RoundId,omitempty"`
	Copy2PlayerID *string `json:"copy2PlayerId,omitempty"`
	Copy2Phrase  *string `json:"copy2Phrase,omitempty"`

	Status PhrasesetStatus `json:"status"`

	VotesOriginal int `json:"votesOriginal"`
	VotesCopy1    int `json:"votesCopy1"`
	VotesCopy2    int `json:"votesCopy2"`
	VoteCount     int `json:"voteCount"`

	AvailableForVoting bool `json:"availableForVoting"`

	PrizePool int64 `json:"prizePool"`

	CreatedAt        time.Time  `json:"createdAt"`
	VotingStartedAt   *time.Time `json:"votingStartedAt,omitempty"`
	ClosingStartedAt  *time.Time `json:"closingStartedAt,omitempty"`
	MinimumEligibleAt *time.Time `json:"minimumEligibleAt,omitempty"`
	FinalizedAt       *time.Time `json:"finalizedAt,omitempty"`

	// Party linkage, nil for global (non-party) phrasesets.
	PartySessionID *string `json:"partySessionId,omitempty"`
}

// HasBothCopies reports whether the phraseset is ready to transition to
// voting (both copy slots filled).
func (p *Phraseset) HasBothCopies() bool {
	return p.Copy2RoundID != nil
}

// PhrasesetVote records one player's vote on a phraseset. A participant
// (the author or either copier) votes for free and does not contribute
// to the pool; a non-participant pays vote_cost and does contribute
// (spec.md §9 open-question decision).
type PhrasesetVote struct {
	ID          string    `json:"id"`
	PhrasesetID string    `json:"phrasesetId"`
	VoterID     string    `json:"voterId"`
	ChoiceSlot  VoteSlot  `json:"choiceSlot"`
	IsParticipant bool    `json:"isParticipant"`
	RoundID     string    `json:"roundId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// VoteSlot identifies which of the three displayed phrases a voter chose.
type VoteSlot string

const (
	VoteOriginal VoteSlot = "original"
	VoteCopy1    VoteSlot = "copy1"
	VoteCopy2    VoteSlot = "copy2"
)
