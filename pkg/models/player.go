package models

import "time"

// GameType identifies which of the three round-based games a record
// belongs to. Party sessions compose QF rounds only.
type GameType string

const (
	GameQF GameType = "qf" // QuipFlip: prompt/copy/vote
	GameIR GameType = "ir" // Initial Response: backronym race
	GameTL GameType = "tl" // Topic Link: clustering guess game
)

// Player is the account record shared across all three games. Per-game
// economy state lives in PlayerGameData rather than on Player directly,
// mirroring the teacher's habit of keeping one identity record plus
// separate per-concern sub-records (cf. pkg/models.Transaction vs.
// PrivacyAnalysisResult in the teacher's forensics domain).
type Player struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"displayName"`
	CanonicalName    string    `json:"canonicalName"` // lower-cased, unique
	Email            *string   `json:"email,omitempty"`
	IsGuest          bool      `json:"isGuest"`
	IsAI             bool      `json:"isAi"`
	AIRole           AIRole    `json:"aiRole,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	AnonymizedAt     *time.Time `json:"anonymizedAt,omitempty"`
}

// PlayerGameData is the per-(player, game) economy and anti-abuse subrecord.
type PlayerGameData struct {
	PlayerID                 string    `json:"playerId"`
	Game                     GameType  `json:"game"`
	Wallet                   int64     `json:"wallet"` // invariant: >= 0
	Vault                    int64     `json:"vault"`  // invariant: >= 0
	TutorialProgress         int       `json:"tutorialProgress"`
	ConsecutiveIncorrectVote int       `json:"consecutiveIncorrectVote"`
	VoteLockoutUntil         *time.Time `json:"voteLockoutUntil,omitempty"`
	LastDailyBonusAt         *time.Time `json:"lastDailyBonusAt,omitempty"`
}

// AIRole identifies which pool of AI backup accounts an AI player belongs
// to (C8 AI Orchestrator, spec.md §4.8).
type AIRole string

const (
	AIRoleQFQuip     AIRole = "QF_QUIP"
	AIRoleQFImpostor AIRole = "QF_IMPOSTOR"
	AIRoleQFVoter    AIRole = "QF_VOTER"
	AIRoleQFParty    AIRole = "QF_PARTY"
	AIRoleIRPlayer   AIRole = "IR_PLAYER"
)
