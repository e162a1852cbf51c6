// Package sweeper implements C10, the Timer/Expiry Sweeper: the single
// cooperative loop per process that drives round expiry, QF vote
// finalization, IR set finalization, and AI Orchestrator stall checks
// (spec.md §4.10), grounded on the teacher's own ticker-driven
// internal/mempool.Poller loop.
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sheegaon/quipengine/internal/ai"
	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/logging"
	"github.com/sheegaon/quipengine/internal/round"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

var log = logging.New("Sweeper")

// partialRefundFraction is the fraction of cost refunded when a copy or
// vote round expires unsubmitted. spec.md says only "partial refund" for
// these round types without a number; half back, half forfeit, is the
// simplest split that keeps the incentive to start a round worth
// something without fully rewarding leaving it unfinished.
const partialRefundFraction = 0.5

// Sweeper runs expiry, finalization, and AI stall-check passes on a
// fixed interval, plus daily housekeeping jobs on a cron schedule.
type Sweeper struct {
	store  store.Store
	engine *round.Engine
	qf     *round.QFService
	ir     *round.IRService
	ai     *ai.Orchestrator
	clock  coordinator.Clock
	cfg    config.Config
	cron   *cron.Cron
}

func New(st store.Store, engine *round.Engine, qf *round.QFService, ir *round.IRService, orchestrator *ai.Orchestrator, clock coordinator.Clock, cfg config.Config) *Sweeper {
	return &Sweeper{
		store: st, engine: engine, qf: qf, ir: ir, ai: orchestrator, clock: clock, cfg: cfg,
		cron: cron.New(),
	}
}

// RegisterDailyJob adds a cron-scheduled housekeeping task alongside the
// tick loop (cmd/coordinator registers the daily inactive-guest sweep).
// spec is a standard 5-field cron expression or a descriptor such as
// "@daily".
func (s *Sweeper) RegisterDailyJob(spec string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(context.Background()); err != nil {
			log.Printf("cron job failed: %v", err)
		}
	})
	return err
}

// Run blocks, ticking every sweep_interval_seconds until ctx is
// cancelled. Each pass logs and continues past its own error so one
// game's bug can't stall the others' finalization.
func (s *Sweeper) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.Timing.SweepIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.cron.Start()
	defer s.cron.Stop()

	log.Printf("starting sweep loop every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping sweep loop")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// RunOnce runs a single expiry/finalization pass and returns, for the
// "-cleanup-orphans" one-shot admin mode rather than the long-running
// ticker loop.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.tick(ctx)
}

func (s *Sweeper) tick(ctx context.Context) {
	now := s.clock.Now()

	if err := s.expireRounds(ctx, now); err != nil {
		log.Printf("round expiry pass: %v", err)
	}
	if err := s.finalizeQFVotes(ctx, now); err != nil {
		log.Printf("qf vote finalization pass: %v", err)
	}
	if err := s.finalizeIRSets(ctx, now); err != nil {
		log.Printf("ir set finalization pass: %v", err)
	}
	if s.ai != nil {
		if err := s.ai.RunStallSweep(ctx, now); err != nil {
			log.Printf("ai stall sweep: %v", err)
		}
	}
}

// expireRounds drives every active-but-past-grace round through
// expiry, per round type's refund policy: QF prompts keep their cost
// (the AI Orchestrator may still complete them later); every other
// round, including IR entry rounds (stored with the prompt round type),
// gets a partial refund.
func (s *Sweeper) expireRounds(ctx context.Context, now time.Time) error {
	for _, game := range []models.GameType{models.GameQF, models.GameIR, models.GameTL} {
		cutoff := now.Add(-s.cfg.GracePeriod())
		expired, err := s.store.ListExpiredActive(ctx, nil, game, cutoff)
		if err != nil {
			return err
		}
		for _, r := range expired {
			policy := round.PartialRefund(partialRefundFraction)
			if r.RoundType == models.RoundPrompt && r.Game != models.GameIR {
				policy = round.NoRefund
			}
			if _, err := s.engine.ExpireRound(ctx, r.ID, policy); err != nil {
				log.Printf("expire round %s: %v", r.ID, err)
			}
		}
	}
	return nil
}

// finalizeQFVotes implements spec.md §4.10's three-threshold cascade:
// vote_max_votes finalizes immediately; vote_closing_threshold enters a
// closing window before finalizing; vote_minimum_threshold becomes
// eligible to finalize only once its window elapses. Voting and Closing
// sets are each swept every tick so a set can walk through more than one
// threshold across ticks without waiting for a separate pass.
func (s *Sweeper) finalizeQFVotes(ctx context.Context, now time.Time) error {
	vf := s.cfg.VoteFinalization
	rake := s.cfg.Payouts.QFVaultRakePercent

	voting, err := s.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetVoting)
	if err != nil {
		return err
	}
	for _, ps := range voting {
		switch {
		case ps.VoteCount >= vf.VoteMaxVotes:
			if err := s.qf.FinalizeVotes(ctx, ps.ID, rake); err != nil {
				log.Printf("finalize phraseset %s at max votes: %v", ps.ID, err)
			}
		case ps.VoteCount >= vf.VoteClosingThreshold:
			if err := s.qf.EnterClosing(ctx, ps.ID); err != nil {
				log.Printf("enter closing for phraseset %s: %v", ps.ID, err)
			}
		case ps.VoteCount >= vf.VoteMinimumThreshold:
			started := ps.CreatedAt
			if ps.VotingStartedAt != nil {
				started = *ps.VotingStartedAt
			}
			eligibleAt := started.Add(time.Duration(vf.VoteMinimumWindowMinutes) * time.Minute)
			if ps.MinimumEligibleAt == nil {
				if err := s.qf.StampMinimumEligible(ctx, ps.ID, eligibleAt); err != nil {
					log.Printf("stamp minimum-eligible for phraseset %s: %v", ps.ID, err)
				}
			} else if now.After(*ps.MinimumEligibleAt) {
				if err := s.qf.FinalizeVotes(ctx, ps.ID, rake); err != nil {
					log.Printf("finalize phraseset %s at minimum window: %v", ps.ID, err)
				}
			}
		}
	}

	closing, err := s.store.ListPhrasesetsByStatus(ctx, nil, models.PhrasesetClosing)
	if err != nil {
		return err
	}
	for _, ps := range closing {
		if ps.ClosingStartedAt == nil {
			continue
		}
		deadline := ps.ClosingStartedAt.Add(time.Duration(vf.VoteClosingWindowMinutes) * time.Minute)
		if ps.VoteCount >= vf.VoteMaxVotes || now.After(deadline) {
			if err := s.qf.FinalizeVotes(ctx, ps.ID, rake); err != nil {
				log.Printf("finalize phraseset %s at closing deadline: %v", ps.ID, err)
			}
		}
	}
	return nil
}

// finalizeIRSets advances open sets whose entry timer elapsed and
// finalizes voting sets whose voting timer elapsed.
func (s *Sweeper) finalizeIRSets(ctx context.Context, now time.Time) error {
	open, err := s.store.ListBackronymSetsByStatus(ctx, nil, models.SetOpen)
	if err != nil {
		return err
	}
	for _, set := range open {
		if now.Before(set.TransitionsToVotingAt) {
			continue
		}
		if err := s.ir.AdvanceToVoting(ctx, set.ID); err != nil {
			log.Printf("advance set %s to voting: %v", set.ID, err)
		}
	}

	voting, err := s.store.ListBackronymSetsByStatus(ctx, nil, models.SetVoting)
	if err != nil {
		return err
	}
	for _, set := range voting {
		if now.Before(set.VotingFinalizedAt) {
			continue
		}
		if err := s.ir.Finalize(ctx, set.ID, s.cfg.Payouts.IRVaultRakePercent, s.cfg.Payouts.IRVoteRewardCorrect); err != nil {
			log.Printf("finalize set %s: %v", set.ID, err)
		}
	}
	return nil
}
