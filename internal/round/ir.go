package round

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

// IRService layers IR's backronym entry/vote/finalize semantics on top
// of the generic Engine. Unlike QF and TL, the work item (the
// BackronymSet) carries no dedicated "prompt round" — a fresh
// ir_backronym_entry_cost round both opens and attaches straight to
// the set picked by the Work Matcher (C6).
type IRService struct {
	engine *Engine
	store  store.Store
	ledger *ledger.Service
}

func NewIRService(engine *Engine, st store.Store, ldg *ledger.Service) *IRService {
	return &IRService{engine: engine, store: st, ledger: ldg}
}

// StartEntry opens an entry round against an already-selected set
// (the Work Matcher's pick_backronym_set_for_entry result).
func (s *IRService) StartEntry(ctx context.Context, playerID string, cost int64, setID, word string) (*models.Round, error) {
	return s.engine.StartRound(ctx, playerID, models.GameIR, models.RoundPrompt, cost, word, nil, &setID, nil, nil)
}

// SubmitEntry validates the backronym's words against the set's word
// and appends the entry, growing the set's prize pool by the round's
// cost. Rejects a sixth entry (spec.md's 5-entry cap).
func (s *IRService) SubmitEntry(ctx context.Context, playerID, roundID string, words []string) (*models.BackronymSet, error) {
	var updated *models.BackronymSet
	_, err := s.engine.Submit(ctx, playerID, roundID, func(ctx context.Context, tx store.Tx, r *models.Round) error {
		if r.SourceSetID == nil {
			return coordinator.New(coordinator.KindWrongPhase, "entry round has no source set")
		}
		set, err := s.store.GetBackronymSet(ctx, tx, *r.SourceSetID)
		if err != nil {
			return err
		}
		if set.Status != models.SetOpen {
			return coordinator.New(coordinator.KindWrongPhase, "set is not open for entries")
		}
		if set.EntryCount() >= 5 {
			return coordinator.New(coordinator.KindWrongPhase, "set already has five entries")
		}

		expectedLetters := []byte(set.Word)
		ok, reason, err := s.engine.validator.ValidateBackronymWords(ctx, words, expectedLetters)
		if err != nil {
			return fmt.Errorf("validate backronym words: %w", err)
		}
		if !ok {
			return coordinator.New(coordinator.KindInvalidPhrase, reason)
		}

		set.Entries = append(set.Entries, models.BackronymEntry{
			ID: uuid.NewString(), SetID: set.ID, PlayerID: playerID,
			RoundID: r.ID, Words: words, CreatedAt: s.engine.clock.Now(),
		})
		set.PrizePool += r.Cost
		if set.EntryCount() >= 5 {
			set.Status = models.SetVoting
			set.VotingFinalizedAt = s.engine.clock.Now().Add(votingWindowFor(set.Mode, s.engine.cfg))
		}
		if err := s.store.UpdateBackronymSet(ctx, tx, set); err != nil {
			return err
		}
		updated = set
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// StartVote opens a vote round against setID.
func (s *IRService) StartVote(ctx context.Context, playerID string, cost int64, setID, word string) (*models.Round, error) {
	return s.engine.StartRound(ctx, playerID, models.GameIR, models.RoundVote, cost, word, nil, &setID, nil, nil)
}

// SubmitVote records a vote for entryID. Only non-participants (players
// with no entry of their own in this set) pay ir_vote_cost and
// contribute it to the prize pool — entrants vote for free, per
// spec.md §9's resolved "vote_contributions" open question.
func (s *IRService) SubmitVote(ctx context.Context, playerID, roundID, entryID string, voteCost int64) (*models.BackronymSet, error) {
	var updated *models.BackronymSet
	_, err := s.engine.Submit(ctx, playerID, roundID, func(ctx context.Context, tx store.Tx, r *models.Round) error {
		gameData, err := s.store.GetPlayerGameData(ctx, tx, playerID, models.GameIR)
		if err != nil {
			return err
		}
		if gameData.VoteLockoutUntil != nil && s.engine.clock.Now().Before(*gameData.VoteLockoutUntil) {
			return coordinator.Newf(coordinator.KindVoteLockout, "player %s is locked out of voting until %s", playerID, gameData.VoteLockoutUntil.Format(time.RFC3339))
		}
		if r.SourceSetID == nil {
			return coordinator.New(coordinator.KindWrongPhase, "vote round has no source set")
		}
		set, err := s.store.GetBackronymSet(ctx, tx, *r.SourceSetID)
		if err != nil {
			return err
		}
		if set.Status != models.SetVoting {
			return coordinator.New(coordinator.KindWrongPhase, "set is not open for voting")
		}
		found := false
		for _, e := range set.Entries {
			if e.ID == entryID {
				found = true
				break
			}
		}
		if !found {
			return coordinator.New(coordinator.KindNotFound, "entry not found in set")
		}
		for _, v := range set.Votes {
			if v.VoterID == playerID {
				return coordinator.New(coordinator.KindAlreadyVoted, "player already voted on this set")
			}
		}

		isParticipant := false
		for _, e := range set.Entries {
			if e.PlayerID == playerID {
				isParticipant = true
				break
			}
		}
		if !isParticipant {
			if _, err := s.ledger.DebitWallet(ctx, tx, playerID, models.GameIR, voteCost, models.TxKindVoteCost, &r.ID); err != nil {
				return err
			}
			set.PrizePool += voteCost
		}

		set.Votes = append(set.Votes, models.BackronymVote{
			ID: uuid.NewString(), SetID: set.ID, VoterID: playerID, EntryID: entryID,
			IsParticipant: isParticipant, RoundID: &r.ID, CreatedAt: s.engine.clock.Now(),
		})
		if err := s.store.UpdateBackronymSet(ctx, tx, set); err != nil {
			return err
		}
		updated = set
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdvanceToVoting transitions an open set to voting once its entry
// timer elapses (`transitions_to_voting_at`), regardless of whether all
// five entries filled — called by the Timer Sweeper (C10), not by
// SubmitEntry, since the five-entries-reached case already transitions
// on its own. Idempotent against a set that already left `open`.
func (s *IRService) AdvanceToVoting(ctx context.Context, setID string) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	set, err := s.store.GetBackronymSet(ctx, tx, setID)
	if err != nil {
		return err
	}
	if set.Status != models.SetOpen {
		return nil
	}
	set.Status = models.SetVoting
	set.VotingFinalizedAt = s.engine.clock.Now().Add(votingWindowFor(set.Mode, s.engine.cfg))
	if err := s.store.UpdateBackronymSet(ctx, tx, set); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// votingWindowFor picks IR's rapid or standard voting duration by mode.
func votingWindowFor(mode models.BackronymMode, cfg config.Config) time.Duration {
	if mode == models.ModeRapid {
		return time.Duration(cfg.Timing.IRRapidVotingTimerMinutes) * time.Minute
	}
	return time.Duration(cfg.Timing.IRStandardVotingTimerMinutes) * time.Minute
}

// Finalize implements the verified worked example: total_pool is
// already accumulated on set.PrizePool (entry costs plus
// non-participant vote costs); a flat vault rake takes rakePercent of
// the whole pool; non-participant voters who picked the winning entry
// (the entry with the most votes) each receive voteRewardCorrect; the
// remainder ("creator pool") splits among entrants proportional to
// votes received on their entry, floor-divided. An entrant who cast no
// vote still collects their entry's share — only the "no vote cast by
// a winning entrant" shortfall is the rounding residue the vault
// absorbs, not a separate forfeiture rule. Idempotent against an
// already-finalized set.
func (s *IRService) Finalize(ctx context.Context, setID string, rakePercent float64, voteRewardCorrect int64) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	set, err := s.store.GetBackronymSet(ctx, tx, setID)
	if err != nil {
		return err
	}
	if set.Status == models.SetFinalized {
		return nil
	}

	// Only participant (entrant) votes decide the winner and the
	// creator-pool split ratio — the worked example's "winner (3/5
	// shares)" is three of the five entrants' votes, not a mix with the
	// non-participant tally, which instead funds vote rewards below.
	participantVotesByEntry := make(map[string]int)
	totalParticipantVotes := 0
	for _, v := range set.Votes {
		if !v.IsParticipant {
			continue
		}
		participantVotesByEntry[v.EntryID]++
		totalParticipantVotes++
	}
	winningEntry := ""
	winningVotes := -1
	for _, e := range set.Entries {
		if participantVotesByEntry[e.ID] > winningVotes {
			winningVotes = participantVotesByEntry[e.ID]
			winningEntry = e.ID
		}
	}

	pool := set.PrizePool
	vaultRake := int64(float64(pool) * rakePercent)

	rewardTotal := int64(0)
	for _, v := range set.Votes {
		if v.IsParticipant {
			continue
		}
		if v.EntryID == winningEntry {
			if _, err := s.ledger.CreditWallet(ctx, tx, v.VoterID, models.GameIR, voteRewardCorrect, models.TxKindPayout, nil); err != nil {
				return err
			}
			rewardTotal += voteRewardCorrect
		}
		if err := s.recordVoteOutcome(ctx, tx, v.VoterID, v.EntryID == winningEntry); err != nil {
			return err
		}
	}

	creatorPool := pool - vaultRake - rewardTotal

	distributed := int64(0)
	for _, e := range set.Entries {
		votes := participantVotesByEntry[e.ID]
		if votes == 0 || totalParticipantVotes == 0 {
			continue
		}
		share := int64(float64(creatorPool) * float64(votes) / float64(totalParticipantVotes))
		if share <= 0 {
			continue
		}
		if _, err := s.ledger.CreditWallet(ctx, tx, e.PlayerID, models.GameIR, share, models.TxKindPayout, nil); err != nil {
			return err
		}
		distributed += share
	}

	vaultAmount := pool - rewardTotal - distributed
	if vaultAmount > 0 && len(set.Entries) > 0 {
		if _, err := s.ledger.CreditVault(ctx, tx, set.Entries[0].PlayerID, models.GameIR, vaultAmount, models.TxKindVaultRake, nil); err != nil {
			return err
		}
	}

	set.Status = models.SetFinalized
	now := s.engine.clock.Now()
	set.FinalizedAt = &now
	if err := s.store.UpdateBackronymSet(ctx, tx, set); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// recordVoteOutcome maintains a guest's consecutive-incorrect-vote
// streak and lockout per spec.md's guest vote lockout rule. Registered
// players are exempt; a correct vote always resets the streak.
func (s *IRService) recordVoteOutcome(ctx context.Context, tx store.Tx, voterID string, correct bool) error {
	player, err := s.store.GetPlayer(ctx, tx, voterID)
	if err != nil {
		return err
	}
	if !player.IsGuest {
		return nil
	}
	gameData, err := s.store.GetPlayerGameData(ctx, tx, voterID, models.GameIR)
	if err != nil {
		return err
	}
	if correct {
		gameData.ConsecutiveIncorrectVote = 0
		gameData.VoteLockoutUntil = nil
	} else {
		gameData.ConsecutiveIncorrectVote++
		if gameData.ConsecutiveIncorrectVote >= s.engine.cfg.AntiAbuse.GuestVoteLockoutThreshold {
			until := s.engine.clock.Now().Add(time.Duration(s.engine.cfg.AntiAbuse.GuestVoteLockoutHours) * time.Hour)
			gameData.VoteLockoutUntil = &until
		}
	}
	return s.store.UpdatePlayerGameData(ctx, tx, gameData)
}
