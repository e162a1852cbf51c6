package models

import "time"

// BackronymMode selects IR's two pacing variants; each has its own timer
// configuration (ir_rapid_entry_timer_minutes vs ir_standard_voting_timer_minutes).
type BackronymMode string

const (
	ModeStandard BackronymMode = "standard"
	ModeRapid    BackronymMode = "rapid"
)

// SetStatus is IR's work-item lifecycle. Unlike QF's PhrasesetStatus, IR
// has no "closing" intermediate state — timer-driven finalization goes
// straight from voting to finalized (spec.md §9, preserved asymmetry).
type SetStatus string

const (
	SetOpen      SetStatus = "open"
	SetVoting    SetStatus = "voting"
	SetFinalized SetStatus = "finalized"
)

// BackronymSet is a 5-entry race for a random 3-5 letter word, followed
// by voting from both participants and non-participants.
type BackronymSet struct {
	ID    string        `json:"id"`
	Word  string        `json:"word"` // 3-5 letters
	Mode  BackronymMode `json:"mode"`
	Status SetStatus    `json:"status"`

	Entries []BackronymEntry `json:"entries"` // max 5
	Votes   []BackronymVote  `json:"votes"`   // max 5 participant + max 5 non-participant

	PrizePool int64 `json:"prizePool"`

	CreatedAt               time.Time  `json:"createdAt"`
	TransitionsToVotingAt   time.Time  `json:"transitionsToVotingAt"`
	VotingFinalizedAt       time.Time  `json:"votingFinalizedAt"`
	FinalizedAt             *time.Time `json:"finalizedAt,omitempty"`
}

// EntryCount reports the number of backronym entries submitted so far.
func (s *BackronymSet) EntryCount() int { return len(s.Entries) }

// BackronymEntry is one player's 3-5 word phrase matching the set's word.
type BackronymEntry struct {
	ID       string    `json:"id"`
	SetID    string    `json:"setId"`
	PlayerID string    `json:"playerId"`
	RoundID  string    `json:"roundId"`
	Words    []string  `json:"words"` // backronym_text: list[str]
	CreatedAt time.Time `json:"createdAt"`
}

// BackronymVote records a vote for one entry in a set. Only non-participant
// votes pay ir_vote_cost and contribute to the prize pool (spec.md §9).
type BackronymVote struct {
	ID            string    `json:"id"`
	SetID         string    `json:"setId"`
	VoterID       string    `json:"voterId"`
	EntryID       string    `json:"entryId"`
	IsParticipant bool      `json:"isParticipant"`
	RoundID       *string   `json:"roundId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
