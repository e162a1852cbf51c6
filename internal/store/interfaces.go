// Package store defines the persistence contract the Round & Session
// Coordinator depends on (spec.md §6: "any store supporting per-row
// locking, transactions, JSON columns... the design must not assume
// implementation"). Two implementations satisfy it: postgres (the
// production store, pgx-backed, grounded on the teacher's
// internal/db/postgres.go) and memstore (an in-memory transactional
// store used by tests, grounded on the same commit/rollback contract).
package store

import (
	"context"
	"time"

	"github.com/sheegaon/quipengine/pkg/models"
)

// Tx is one unit of work. Every mutation made through a Tx is invisible
// to other callers until Commit, and discarded entirely on Rollback —
// the "whole triple succeeds or none of it does" guarantee from spec.md §5.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the full persistence surface. Begin starts a unit of work;
// every other method takes the Tx it should run inside (or nil to use
// an implicit single-statement transaction, mirroring the teacher's
// pool.Exec calls outside of explicit transactions for single-row writes).
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	Players
	Rounds
	Ledger
	Phrasesets
	BackronymSets
	TL
	Party
	Cache
	Embeddings
}

// Players covers player identity and per-game economy subrecords.
type Players interface {
	CreatePlayer(ctx context.Context, tx Tx, p *models.Player, data *models.PlayerGameData) error
	GetPlayer(ctx context.Context, tx Tx, id string) (*models.Player, error)
	GetPlayerByCanonicalName(ctx context.Context, tx Tx, canonicalName string) (*models.Player, error)
	GetPlayerGameData(ctx context.Context, tx Tx, playerID string, game models.GameType) (*models.PlayerGameData, error)
	UpdatePlayerGameData(ctx context.Context, tx Tx, data *models.PlayerGameData) error
	AnonymizePlayer(ctx context.Context, tx Tx, id string, at time.Time) error
	ListInactiveGuests(ctx context.Context, tx Tx, olderThan time.Time) ([]models.Player, error)

	// AI account pool (C8).
	ListAIPool(ctx context.Context, tx Tx, role models.AIRole) ([]models.Player, error)
	UsernameExists(ctx context.Context, tx Tx, canonicalName string) (bool, error)
}

// Rounds covers the billable round state machine (C5) shared by QF/IR/TL.
type Rounds interface {
	CreateRound(ctx context.Context, tx Tx, r *models.Round) error
	GetRound(ctx context.Context, tx Tx, id string) (*models.Round, error)
	GetActiveRound(ctx context.Context, tx Tx, playerID string, game models.GameType) (*models.Round, error)
	UpdateRound(ctx context.Context, tx Tx, r *models.Round) error
	ListExpiredActive(ctx context.Context, tx Tx, game models.GameType, cutoff time.Time) ([]models.Round, error)
	ListRoundsByPartySession(ctx context.Context, tx Tx, sessionID string, roundType models.RoundType) ([]models.Round, error)
	ListRoundsByPlayerAndParty(ctx context.Context, tx Tx, sessionID, playerID string) ([]models.Round, error)
	// GetAbandonCooldown returns when playerID last abandoned a round
	// sourced from promptRoundID, if any. The Work Matcher excludes the
	// prompt whenever this is non-nil; abandoned_prompt_cooldown_hours is
	// not applied, so the exclusion does not expire.
	GetAbandonCooldown(ctx context.Context, tx Tx, playerID, promptRoundID string) (*time.Time, error)
}

// Ledger covers the append-only transaction log (C1).
type Ledger interface {
	AppendTransaction(ctx context.Context, tx Tx, t *models.Transaction) error
	SumTransactions(ctx context.Context, tx Tx, playerID string, game models.GameType, account models.AccountKind) (int64, error)
	ListTransactions(ctx context.Context, tx Tx, playerID string) ([]models.Transaction, error)
}

// Phrasesets covers QF's prompt/copy/vote work item.
type Phrasesets interface {
	CreatePhraseset(ctx context.Context, tx Tx, p *models.Phraseset) error
	GetPhraseset(ctx context.Context, tx Tx, id string) (*models.Phraseset, error)
	GetPhrasesetByPromptRound(ctx context.Context, tx Tx, promptRoundID string) (*models.Phraseset, error)
	UpdatePhraseset(ctx context.Context, tx Tx, p *models.Phraseset) error
	ListPhrasesetsByStatus(ctx context.Context, tx Tx, status models.PhrasesetStatus) ([]models.Phraseset, error)
	// CountOutstandingByAuthor counts an author's phrasesets still short of
	// finalized, for the anti-abuse outstanding-quip cap.
	CountOutstandingByAuthor(ctx context.Context, tx Tx, authorID string) (int, error)
	AddPhrasesetVote(ctx context.Context, tx Tx, v *models.PhrasesetVote) error
	ListPhrasesetVotes(ctx context.Context, tx Tx, phrasesetID string) ([]models.PhrasesetVote, error)
	HasVoted(ctx context.Context, tx Tx, phrasesetID, voterID string) (bool, error)
}

// BackronymSets covers IR's 5-entry race work item.
type BackronymSets interface {
	CreateBackronymSet(ctx context.Context, tx Tx, s *models.BackronymSet) error
	GetBackronymSet(ctx context.Context, tx Tx, id string) (*models.BackronymSet, error)
	UpdateBackronymSet(ctx context.Context, tx Tx, s *models.BackronymSet) error
	ListBackronymSetsByStatus(ctx context.Context, tx Tx, status models.SetStatus) ([]models.BackronymSet, error)
	// ListMostRecentOpenNotEntered returns open sets the player has not
	// entered, newest first (spec.md §4.6 tie-break: prefer most recent).
	ListMostRecentOpenNotEntered(ctx context.Context, tx Tx, playerID string) ([]models.BackronymSet, error)
	WordUsedWithin(ctx context.Context, tx Tx, word string, after time.Time) (bool, error)
}

// TL covers clusters and the active answer corpus (C4).
type TL interface {
	CreateCluster(ctx context.Context, tx Tx, c *models.Cluster) error
	GetCluster(ctx context.Context, tx Tx, id string) (*models.Cluster, error)
	UpdateCluster(ctx context.Context, tx Tx, c *models.Cluster) error
	ListClustersByPrompt(ctx context.Context, tx Tx, promptID string) ([]models.Cluster, error)

	CreateAnswer(ctx context.Context, tx Tx, a *models.TLAnswer) error
	GetAnswer(ctx context.Context, tx Tx, id string) (*models.TLAnswer, error)
	ListActiveAnswersByPrompt(ctx context.Context, tx Tx, promptID string) ([]models.TLAnswer, error)
	UpdateAnswer(ctx context.Context, tx Tx, a *models.TLAnswer) error
	CountActiveAnswers(ctx context.Context, tx Tx, promptID string) (int, error)
}

// Party covers session/participant/result-view records (C7).
type Party interface {
	CreateSession(ctx context.Context, tx Tx, s *models.PartySession) error
	GetSession(ctx context.Context, tx Tx, id string) (*models.PartySession, error)
	GetSessionByCode(ctx context.Context, tx Tx, code string) (*models.PartySession, error)
	UpdateSession(ctx context.Context, tx Tx, s *models.PartySession) error
	DeleteSession(ctx context.Context, tx Tx, id string) error // cascades participants/rounds/phrasesets
	GetActiveSessionForPlayer(ctx context.Context, tx Tx, playerID string) (*models.PartySession, error)

	CreateParticipant(ctx context.Context, tx Tx, p *models.PartyParticipant) error
	GetParticipant(ctx context.Context, tx Tx, id string) (*models.PartyParticipant, error)
	GetParticipantByPlayer(ctx context.Context, tx Tx, sessionID, playerID string) (*models.PartyParticipant, error)
	ListParticipants(ctx context.Context, tx Tx, sessionID string) ([]models.PartyParticipant, error)
	UpdateParticipant(ctx context.Context, tx Tx, p *models.PartyParticipant) error
	DeleteParticipant(ctx context.Context, tx Tx, id string) error

	CreateResultView(ctx context.Context, tx Tx, v *models.ResultView) error
	GetResultView(ctx context.Context, tx Tx, participantID, contentID string) (*models.ResultView, bool, error)
}

// Cache covers the phrase cache (C3).
type Cache interface {
	GetCache(ctx context.Context, tx Tx, promptKey string) (*models.PhraseCacheEntry, bool, error)
	PutCache(ctx context.Context, tx Tx, e *models.PhraseCacheEntry) error
	DeleteCache(ctx context.Context, tx Tx, promptKey string) error
	// ListUsedPhrases returns the phrases cached under the key equal to
	// normalizedPrompt, for exact-text-reuse filtering. Entries cached
	// under other keys (such as a prompt-round ID) are not included.
	ListUsedPhrases(ctx context.Context, tx Tx, normalizedPrompt string) ([]string, error)
}

// Embeddings covers the persistent (second) tier of the two-tier
// embedding cache (C4).
type Embeddings interface {
	GetEmbedding(ctx context.Context, tx Tx, phrase, model, provider string) (*models.EmbeddingCacheEntry, bool, error)
	PutEmbedding(ctx context.Context, tx Tx, e *models.EmbeddingCacheEntry) error
}
