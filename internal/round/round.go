// Package round implements C5, the Round Engine state machine shared
// by QF/IR/TL: start, submit, abandon, expire. Game-specific aggregate
// completion (phraseset/backronym-set rollup, TL guess scoring) lives
// in qf.go, ir.go, tl.go so the state machine itself stays generic —
// the "game descriptor" redesign spec.md §9 calls for, rather than
// three parallel copies of the same transitions.
package round

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/broadcaster"
	"github.com/sheegaon/quipengine/internal/collaborators"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/lockqueue"
	"github.com/sheegaon/quipengine/internal/logging"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

var log = logging.New("RoundEngine")

// Engine drives the common Round state machine. It depends on the
// Ledger for money movement, the Lock Service for per-player
// serialization, and a PhraseValidator for submission checks.
type Engine struct {
	store     store.Store
	ledger    *ledger.Service
	locks     lockqueue.LockService
	validator collaborators.PhraseValidator
	clock     coordinator.Clock
	cfg       config.Config
	broadcast *broadcaster.Hub
}

func New(st store.Store, ldg *ledger.Service, locks lockqueue.LockService, validator collaborators.PhraseValidator, clock coordinator.Clock, cfg config.Config, hub *broadcaster.Hub) *Engine {
	return &Engine{store: st, ledger: ldg, locks: locks, validator: validator, clock: clock, cfg: cfg, broadcast: hub}
}

// ttlFor returns the configured time-to-live for roundType.
func (e *Engine) ttlFor(roundType models.RoundType) time.Duration {
	switch roundType {
	case models.RoundPrompt:
		return e.cfg.PromptRoundTTL()
	case models.RoundCopy:
		return e.cfg.CopyRoundTTL()
	case models.RoundVote, models.RoundGuess:
		return e.cfg.VoteRoundTTL()
	default:
		return e.cfg.PromptRoundTTL()
	}
}

// StartRound opens a new active round for player, charging cost and
// registering the round's work-item linkage. Fails with
// AlreadyInRound if the player already has an active round for game.
func (e *Engine) StartRound(ctx context.Context, playerID string, game models.GameType, roundType models.RoundType, cost int64, promptText string, sourcePromptRoundID, sourceSetID, partySessionID, partyParticipantID *string) (*models.Round, error) {
	var created *models.Round
	err := lockqueue.WithLock(ctx, e.locks, lockqueue.LockClassPlayer, playerID, e.cfg.RoundLockTimeout(), func() error {
		tx, err := e.store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		existing, err := e.store.GetActiveRound(ctx, tx, playerID, game)
		if err != nil {
			return err
		}
		if existing != nil {
			return coordinator.Newf(coordinator.KindAlreadyInRound, "player %s already has an active %s round", playerID, game)
		}

		if _, err := e.ledger.DebitWallet(ctx, tx, playerID, game, cost, models.TxKindRoundDebit, nil); err != nil {
			return err
		}

		now := e.clock.Now()
		r := &models.Round{
			ID:                  uuid.NewString(),
			PlayerID:            playerID,
			Game:                game,
			RoundType:           roundType,
			Status:              models.RoundActive,
			Cost:                cost,
			CreatedAt:           now,
			ExpiresAt:           now.Add(e.ttlFor(roundType)),
			PromptText:          promptText,
			SourcePromptRoundID: sourcePromptRoundID,
			SourceSetID:         sourceSetID,
			PartySessionID:      partySessionID,
			PartyParticipantID:  partyParticipantID,
		}
		if err := e.store.CreateRound(ctx, tx, r); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("started round=%s player=%s game=%s type=%s cost=%d", created.ID, playerID, game, roundType, cost)
	return created, nil
}

// graceDeadline returns the latest instant at which r is still
// submittable (expires_at plus the configured grace period).
func (e *Engine) graceDeadline(r *models.Round) time.Time {
	return r.ExpiresAt.Add(e.cfg.GracePeriod())
}

// SubmitResult carries the updated round plus whatever aggregate
// completion happened as a side effect (nil when none applies).
type SubmitResult struct {
	Round *models.Round
}

// Submit validates and attaches phrase to round, transitioning
// active -> submitted. validated is left to the caller's
// game-specific wrapper (qf.go/ir.go/tl.go) which also rolls the
// submission into its owning aggregate within the same transaction.
func (e *Engine) Submit(ctx context.Context, playerID, roundID string, apply func(ctx context.Context, tx store.Tx, r *models.Round) error) (*SubmitResult, error) {
	var result *SubmitResult
	err := lockqueue.WithLock(ctx, e.locks, lockqueue.LockClassPlayer, playerID, e.cfg.RoundLockTimeout(), func() error {
		tx, err := e.store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		r, err := e.store.GetRound(ctx, tx, roundID)
		if err != nil {
			return err
		}
		if r.PlayerID != playerID {
			return coordinator.New(coordinator.KindNotFound, "round does not belong to player")
		}
		if r.Status == models.RoundSubmitted {
			// Retry-safety: a second submit on an already-submitted round
			// returns the existing record unchanged rather than erroring,
			// so a client retrying after a dropped response doesn't double
			// apply the submission.
			result = &SubmitResult{Round: r}
			return nil
		}
		if !r.IsActive() {
			return coordinator.Newf(coordinator.KindRoundExpired, "round %s is not active", roundID)
		}
		if e.clock.Now().After(e.graceDeadline(r)) {
			return coordinator.Newf(coordinator.KindRoundExpired, "round %s is past its grace deadline", roundID)
		}

		if err := apply(ctx, tx, r); err != nil {
			return err
		}
		now := e.clock.Now()
		r.Status = models.RoundSubmitted
		r.SubmittedAt = &now
		if err := e.store.UpdateRound(ctx, tx, r); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		result = &SubmitResult{Round: r}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Round.PartySessionID != nil && e.broadcast != nil {
		e.broadcast.Broadcast(*result.Round.PartySessionID, broadcaster.Message{
			Type: "progress_update",
			Payload: map[string]any{
				"playerId":  playerID,
				"roundId":   result.Round.ID,
				"roundType": result.Round.RoundType,
			},
		}, "")
	}
	return result, nil
}

// Abandon transitions an active round to abandoned and refunds
// cost-penalty, per spec.md §4.5. Rejects TL rounds that already have
// a submitted guess (represented here as any matched clusters or
// strikes recorded).
func (e *Engine) Abandon(ctx context.Context, playerID, roundID string, penalty int64) (*models.Round, error) {
	var updated *models.Round
	err := lockqueue.WithLock(ctx, e.locks, lockqueue.LockClassPlayer, playerID, e.cfg.RoundLockTimeout(), func() error {
		tx, err := e.store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		r, err := e.store.GetRound(ctx, tx, roundID)
		if err != nil {
			return err
		}
		if r.PlayerID != playerID {
			return coordinator.New(coordinator.KindNotFound, "round does not belong to player")
		}
		if !r.IsActive() {
			return coordinator.Newf(coordinator.KindRoundExpired, "round %s is not active", roundID)
		}
		if r.RoundType == models.RoundGuess && (len(r.MatchedClusters) > 0 || r.Strikes > 0) {
			return coordinator.New(coordinator.KindWrongPhase, "cannot abandon a guess round with submitted guesses")
		}

		now := e.clock.Now()
		r.Status = models.RoundAbandoned
		r.AbandonedAt = &now
		if err := e.store.UpdateRound(ctx, tx, r); err != nil {
			return err
		}
		refund := r.Cost - penalty
		if refund < 0 {
			refund = 0
		}
		if refund > 0 {
			if _, err := e.ledger.CreditWallet(ctx, tx, playerID, r.Game, refund, models.TxKindRoundRefund, &r.ID); err != nil {
				return err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("abandoned round=%s player=%s refund=%d", updated.ID, playerID, updated.Cost-penalty)
	return updated, nil
}

// ExpirePolicy decides the refund (if any) owed when a round expires
// without a submission, per round type.
type ExpirePolicy func(r *models.Round) int64

// NoRefund never refunds expired rounds (used for QF prompts, whose
// content may still be completed by the AI Orchestrator).
func NoRefund(*models.Round) int64 { return 0 }

// PartialRefund refunds a fixed fraction of cost, rounded down.
func PartialRefund(fraction float64) ExpirePolicy {
	return func(r *models.Round) int64 {
		return int64(float64(r.Cost) * fraction)
	}
}

// ExpireRound transitions an active, past-grace round to expired and
// refunds per policy. Idempotent: a round that is no longer active is
// left untouched and returns (nil, nil).
func (e *Engine) ExpireRound(ctx context.Context, roundID string, policy ExpirePolicy) (*models.Round, error) {
	var updated *models.Round
	r0, err := e.store.GetRound(ctx, nil, roundID)
	if err != nil {
		return nil, err
	}
	err = lockqueue.WithLock(ctx, e.locks, lockqueue.LockClassPlayer, r0.PlayerID, e.cfg.RoundLockTimeout(), func() error {
		tx, err := e.store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		r, err := e.store.GetRound(ctx, tx, roundID)
		if err != nil {
			return err
		}
		if !r.IsActive() {
			return nil // already transitioned by a concurrent sweep
		}
		if !e.clock.Now().After(e.graceDeadline(r)) {
			return coordinator.New(coordinator.KindWrongPhase, "round is not yet past its grace deadline")
		}
		r.Status = models.RoundExpired
		if err := e.store.UpdateRound(ctx, tx, r); err != nil {
			return err
		}
		refund := policy(r)
		if refund > 0 {
			if _, err := e.ledger.CreditWallet(ctx, tx, r.PlayerID, r.Game, refund, models.TxKindRoundRefund, &r.ID); err != nil {
				return err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		log.Printf("expired round=%s player=%s", updated.ID, updated.PlayerID)
	}
	return updated, nil
}

// GetRound is a thin passthrough for callers (API handlers, tests)
// that need to read a round outside of a unit of work.
func (e *Engine) GetRound(ctx context.Context, id string) (*models.Round, error) {
	return e.store.GetRound(ctx, nil, id)
}

// RecordResultView records that participantID has seen a finalized
// QF phraseset or IR set's outcome, created at most once: a second call
// for the same (participant, content) pair returns the original view
// rather than recomputing or erroring, matching the idempotent-re-read
// contract of the original result view service.
func (e *Engine) RecordResultView(ctx context.Context, participantID string, phrasesetID, setID *string, payoutAmount int64) (*models.ResultView, error) {
	contentID := ""
	if phrasesetID != nil {
		contentID = *phrasesetID
	} else if setID != nil {
		contentID = *setID
	}
	if existing, found, err := e.store.GetResultView(ctx, nil, participantID, contentID); err != nil {
		return nil, err
	} else if found {
		return existing, nil
	}

	v := &models.ResultView{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		PhrasesetID:   phrasesetID,
		SetID:         setID,
		PayoutAmount:  payoutAmount,
	}
	if err := e.store.CreateResultView(ctx, nil, v); err != nil {
		return nil, err
	}
	return v, nil
}
