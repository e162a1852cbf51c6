package round

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/cache"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/lockqueue"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

// PromptQueueName and PhrasesetQueueName are the global FIFO queues the
// Work Matcher (C6) pops from. QFService pushes onto them as work items
// become eligible; it never pops, keeping queue consumption a Work
// Matcher-only concern.
const (
	PromptQueueName    = "qf:prompt_queue"
	PhrasesetQueueName = "qf:phraseset_queue"
)

// QFService layers QF's prompt/copy/vote aggregate (the Phraseset)
// on top of the generic Engine.
type QFService struct {
	engine *Engine
	store  store.Store
	ledger *ledger.Service
	queue  lockqueue.QueueService
	cache  *cache.Service // optional: reverifies the impostor cache on the first human copy (spec.md §4.3)
}

func NewQFService(engine *Engine, st store.Store, ldg *ledger.Service, q lockqueue.QueueService, contentCache *cache.Service) *QFService {
	return &QFService{engine: engine, store: st, ledger: ldg, queue: q, cache: contentCache}
}

// StartPrompt opens a prompt round; promptText is supplied by the
// caller (a fixed/random prompt bank, out of this service's scope).
// Rejects the round if playerID already has too many phrasesets open
// (not yet finalized), per the anti-abuse outstanding-quip cap — guests
// get a lower cap than registered players.
func (s *QFService) StartPrompt(ctx context.Context, playerID string, cost int64, promptText string, partySessionID, partyParticipantID *string) (*models.Round, error) {
	if err := s.checkOutstandingCap(ctx, playerID); err != nil {
		return nil, err
	}
	return s.engine.StartRound(ctx, playerID, models.GameQF, models.RoundPrompt, cost, promptText, nil, nil, partySessionID, partyParticipantID)
}

func (s *QFService) checkOutstandingCap(ctx context.Context, playerID string) error {
	player, err := s.store.GetPlayer(ctx, nil, playerID)
	if err != nil {
		return err
	}
	limit := s.engine.cfg.AntiAbuse.MaxOutstandingQuips
	if player.IsGuest {
		limit = s.engine.cfg.AntiAbuse.GuestMaxOutstandingQuips
	}
	if limit <= 0 {
		return nil
	}
	outstanding, err := s.store.CountOutstandingByAuthor(ctx, nil, playerID)
	if err != nil {
		return err
	}
	if outstanding >= limit {
		return coordinator.Newf(coordinator.KindOutstandingCapReached, "player %s already has %d outstanding prompt(s), limit is %d", playerID, outstanding, limit)
	}
	return nil
}

// SubmitPrompt validates phrase and creates the phraseset the copy/vote
// rounds will later attach to.
func (s *QFService) SubmitPrompt(ctx context.Context, playerID, roundID, phrase string) (*models.Phraseset, error) {
	var created *models.Phraseset
	_, err := s.engine.Submit(ctx, playerID, roundID, func(ctx context.Context, tx store.Tx, r *models.Round) error {
		ok, reason, err := s.engine.validator.ValidatePromptPhrase(ctx, phrase, r.PromptText)
		if err != nil {
			return fmt.Errorf("validate prompt phrase: %w", err)
		}
		if !ok {
			return coordinator.New(coordinator.KindInvalidPhrase, reason)
		}
		r.SubmittedPhrase = &phrase

		ps := &models.Phraseset{
			ID:             uuid.NewString(),
			PromptRoundID:  r.ID,
			AuthorID:       playerID,
			PromptText:     r.PromptText,
			Status:         models.PhrasesetOpen,
			CreatedAt:      s.engine.clock.Now(),
			PartySessionID: r.PartySessionID,
			PrizePool:      s.engine.cfg.Payouts.PrizePoolBase + r.Cost,
		}
		if err := s.store.CreatePhraseset(ctx, tx, ps); err != nil {
			return err
		}
		created = ps
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created.PartySessionID == nil && s.queue != nil {
		if err := s.queue.Push(ctx, PromptQueueName, lockqueue.QueueItem{"promptRoundId": created.PromptRoundID}); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// StartCopy opens a copy round consuming promptRoundID's work item.
func (s *QFService) StartCopy(ctx context.Context, playerID string, cost int64, promptRoundID, promptText string, partySessionID, partyParticipantID *string) (*models.Round, error) {
	return s.engine.StartRound(ctx, playerID, models.GameQF, models.RoundCopy, cost, promptText, &promptRoundID, nil, partySessionID, partyParticipantID)
}

// SubmitCopy validates a copy phrase against the original and the
// other copy (if present), attaches it to the phraseset, and — for
// solo (non-party) phrasesets — opens the set for voting once both
// copies are in. Party phrasesets wait for the Party Session
// Controller to flip available_for_voting on phase entry (C7).
func (s *QFService) SubmitCopy(ctx context.Context, playerID, roundID, phrase string) (*models.Phraseset, error) {
	var updated *models.Phraseset
	var isFirstCopy bool
	var promptRoundID string
	_, err := s.engine.Submit(ctx, playerID, roundID, func(ctx context.Context, tx store.Tx, r *models.Round) error {
		if r.SourcePromptRoundID == nil {
			return coordinator.New(coordinator.KindWrongPhase, "copy round has no source prompt")
		}
		ps, err := s.store.GetPhrasesetByPromptRound(ctx, tx, *r.SourcePromptRoundID)
		if err != nil {
			return err
		}
		if ps == nil {
			return coordinator.New(coordinator.KindNotFound, "phraseset for prompt round not found")
		}

		var otherCopy *string
		if ps.HasBothCopies() {
			return coordinator.New(coordinator.KindWrongPhase, "phraseset already has both copies")
		}
		if ps.Copy1RoundID != "" {
			otherCopy = &ps.Copy1Phrase
		}
		pr, err := s.store.GetRound(ctx, tx, *r.SourcePromptRoundID)
		if err != nil {
			return err
		}
		original := ps.PromptText
		if pr.SubmittedPhrase != nil {
			original = *pr.SubmittedPhrase
		}
		ok, reason, err := s.engine.validator.ValidateCopy(ctx, phrase, original, otherCopy, &ps.PromptText)
		if err != nil {
			return fmt.Errorf("validate copy: %w", err)
		}
		if !ok {
			return coordinator.New(coordinator.KindInvalidPhrase, reason)
		}
		r.SubmittedPhrase = &phrase
		r.SourceSetID = nil

		ps.PrizePool += r.Cost

		if ps.Copy1RoundID == "" {
			isFirstCopy = true
			promptRoundID = *r.SourcePromptRoundID
			ps.Copy1RoundID = r.ID
			ps.Copy1PlayerID = playerID
			ps.Copy1Phrase = phrase
		} else {
			ps.Copy2RoundID = &r.ID
			ps.Copy2PlayerID = &playerID
			ps.Copy2Phrase = &phrase
			if ps.PartySessionID == nil {
				ps.Status = models.PhrasesetVoting
				ps.AvailableForVoting = true
				now := s.engine.clock.Now()
				ps.VotingStartedAt = &now
			}
		}
		if err := s.store.UpdatePhraseset(ctx, tx, ps); err != nil {
			return err
		}
		updated = ps
		return nil
	})
	if err != nil {
		return nil, err
	}
	if isFirstCopy && s.cache != nil {
		if rerr := s.cache.ReverifyOnFirstCopy(ctx, promptRoundID, phrase, updated.PromptText); rerr != nil {
			return nil, rerr
		}
	}
	if updated.Status == models.PhrasesetVoting && updated.Copy2RoundID != nil && updated.PartySessionID == nil && s.queue != nil {
		if err := s.queue.Push(ctx, PhrasesetQueueName, lockqueue.QueueItem{"phrasesetId": updated.ID}); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// StartVote opens a vote round consuming phrasesetID's work item.
func (s *QFService) StartVote(ctx context.Context, playerID string, cost int64, phrasesetID, promptText string, partySessionID, partyParticipantID *string) (*models.Round, error) {
	return s.engine.StartRound(ctx, playerID, models.GameQF, models.RoundVote, cost, promptText, nil, &phrasesetID, partySessionID, partyParticipantID)
}

// SubmitVote records playerID's vote for slot on the phraseset linked
// to roundID. Non-participants pay vote_cost, which is added to the
// phraseset's prize pool; participants (the author or either copier)
// vote for free and do not contribute.
func (s *QFService) SubmitVote(ctx context.Context, playerID, roundID string, slot models.VoteSlot, voteCost int64) (*models.Phraseset, error) {
	var updated *models.Phraseset
	_, err := s.engine.Submit(ctx, playerID, roundID, func(ctx context.Context, tx store.Tx, r *models.Round) error {
		if r.SourceSetID == nil {
			return coordinator.New(coordinator.KindWrongPhase, "vote round has no source phraseset")
		}
		ps, err := s.store.GetPhraseset(ctx, tx, *r.SourceSetID)
		if err != nil {
			return err
		}
		if ps.Status != models.PhrasesetVoting && ps.Status != models.PhrasesetClosing {
			return coordinator.New(coordinator.KindWrongPhase, "phraseset is not open for voting")
		}
		already, err := s.store.HasVoted(ctx, tx, ps.ID, playerID)
		if err != nil {
			return err
		}
		if already {
			return coordinator.New(coordinator.KindAlreadyVoted, "player already voted on this phraseset")
		}

		isParticipant := playerID == ps.AuthorID || playerID == ps.Copy1PlayerID ||
			(ps.Copy2PlayerID != nil && playerID == *ps.Copy2PlayerID)

		if !isParticipant {
			if _, err := s.ledger.DebitWallet(ctx, tx, playerID, models.GameQF, voteCost, models.TxKindVoteCost, &r.ID); err != nil {
				return err
			}
			ps.PrizePool += voteCost
		}

		vote := &models.PhrasesetVote{
			ID: uuid.NewString(), PhrasesetID: ps.ID, VoterID: playerID,
			ChoiceSlot: slot, IsParticipant: isParticipant, RoundID: r.ID,
			CreatedAt: s.engine.clock.Now(),
		}
		if err := s.store.AddPhrasesetVote(ctx, tx, vote); err != nil {
			return err
		}

		switch slot {
		case models.VoteOriginal:
			ps.VotesOriginal++
		case models.VoteCopy1:
			ps.VotesCopy1++
		case models.VoteCopy2:
			ps.VotesCopy2++
		}
		ps.VoteCount++
		if err := s.store.UpdatePhraseset(ctx, tx, ps); err != nil {
			return err
		}
		updated = ps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EnterClosing transitions a Voting phraseset into Closing and stamps
// when its closing window started, once vote_count has crossed
// vote_closing_threshold (spec.md §4.10's vote finalization pass).
// Idempotent against a set already in Closing or beyond.
func (s *QFService) EnterClosing(ctx context.Context, phrasesetID string) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ps, err := s.store.GetPhraseset(ctx, tx, phrasesetID)
	if err != nil {
		return err
	}
	if ps.Status != models.PhrasesetVoting {
		return nil
	}
	now := s.engine.clock.Now()
	ps.Status = models.PhrasesetClosing
	ps.ClosingStartedAt = &now
	if err := s.store.UpdatePhraseset(ctx, tx, ps); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// StampMinimumEligible records when a Voting phraseset first crosses
// vote_minimum_threshold, so the Timer Sweeper can later compare against
// vote_minimum_window_minutes without recomputing it every tick.
// Idempotent: a set that already has a stamp keeps its original one.
func (s *QFService) StampMinimumEligible(ctx context.Context, phrasesetID string, eligibleAt time.Time) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ps, err := s.store.GetPhraseset(ctx, tx, phrasesetID)
	if err != nil {
		return err
	}
	if ps.Status != models.PhrasesetVoting || ps.MinimumEligibleAt != nil {
		return nil
	}
	ps.MinimumEligibleAt = &eligibleAt
	if err := s.store.UpdatePhraseset(ctx, tx, ps); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FinalizeVotes computes each content provider's payout from ps's
// accumulated prize pool: a flat vault rake off the whole pool, then
// the remaining "creator pool" split among author/copy1/copy2
// proportional to votes received, floor-divided. Any player who
// received zero votes gets nothing; rounding residue stays in the
// vault alongside the rake. Called by the Timer Sweeper (C10) once a
// vote-finalization threshold trips (spec.md §4.4); idempotent
// against an already-finalized set.
func (s *QFService) FinalizeVotes(ctx context.Context, phrasesetID string, rakePercent float64) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ps, err := s.store.GetPhraseset(ctx, tx, phrasesetID)
	if err != nil {
		return err
	}
	if ps.Status == models.PhrasesetFinalized {
		return nil
	}

	type share struct {
		playerID string
		votes    int
	}
	shares := []share{{ps.AuthorID, ps.VotesOriginal}, {ps.Copy1PlayerID, ps.VotesCopy1}}
	if ps.Copy2PlayerID != nil {
		shares = append(shares, share{*ps.Copy2PlayerID, ps.VotesCopy2})
	}

	pool := ps.PrizePool
	vaultRake := int64(float64(pool) * rakePercent)
	creatorPool := pool - vaultRake

	distributed := int64(0)
	for _, sh := range shares {
		if sh.votes == 0 || ps.VoteCount == 0 {
			continue
		}
		payout := int64(float64(creatorPool) * float64(sh.votes) / float64(ps.VoteCount))
		if payout <= 0 {
			continue
		}
		if _, err := s.ledger.CreditWallet(ctx, tx, sh.playerID, models.GameQF, payout, models.TxKindPayout, &ps.PromptRoundID); err != nil {
			return err
		}
		distributed += payout
	}
	vaultAmount := pool - distributed
	if vaultAmount > 0 {
		if _, err := s.ledger.CreditVault(ctx, tx, ps.AuthorID, models.GameQF, vaultAmount, models.TxKindVaultRake, &ps.PromptRoundID); err != nil {
			return err
		}
	}

	ps.Status = models.PhrasesetFinalized
	now := s.engine.clock.Now()
	ps.FinalizedAt = &now
	if err := s.store.UpdatePhraseset(ctx, tx, ps); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
