package round

import (
	"context"
	"fmt"
	"math"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/embedding"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/lockqueue"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

// tlVaultThreshold is the gross-payout floor below which no vault rake
// applies (spec.md §4.5's 50%-coverage boundary case: gross=106,
// wallet=105, vault=1 — only the 6 coins above 100 are raked).
const tlVaultThreshold = 100

// maxStrikes ends a guess round after three consecutive non-matches.
const maxStrikes = 3

// finalizeCoverageThreshold ends a guess round once coverage reaches it.
const finalizeCoverageThreshold = 0.95

// TLService layers TL's guess-round semantics on top of the generic
// Engine: a guess round accepts many SubmitGuess calls (unlike the
// single-shot prompt/copy/vote submit) and self-finalizes on strikes
// or coverage.
type TLService struct {
	engine     *Engine
	store      store.Store
	ledger     *ledger.Service
	locks      lockqueue.LockService
	embeddings *embedding.Service
	embedModel string
	embedProvider string
	matchThreshold          float64
	selfSimilarityThreshold float64
}

func NewTLService(engine *Engine, st store.Store, ldg *ledger.Service, locks lockqueue.LockService, emb *embedding.Service, embedModel, embedProvider string, matchThreshold, selfSimilarityThreshold float64) *TLService {
	return &TLService{
		engine: engine, store: st, ledger: ldg, locks: locks, embeddings: emb,
		embedModel: embedModel, embedProvider: embedProvider,
		matchThreshold: matchThreshold, selfSimilarityThreshold: selfSimilarityThreshold,
	}
}

// StartGuess opens a TL guess round, freezing promptID's current
// active-answer corpus as the round's snapshot.
func (s *TLService) StartGuess(ctx context.Context, playerID, promptID string, cost int64) (*models.Round, error) {
	answers, err := s.store.ListActiveAnswersByPrompt(ctx, nil, promptID)
	if err != nil {
		return nil, fmt.Errorf("snapshot active answers: %w", err)
	}
	ids := make([]string, len(answers))
	for i, a := range answers {
		ids[i] = a.ID
	}
	r, err := s.engine.StartRound(ctx, playerID, models.GameTL, models.RoundGuess, cost, promptID, nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	r.SnapshotAnswerIDs = ids
	if err := s.store.UpdateRound(ctx, nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GuessOutcome reports what one SubmitGuess call resolved to.
type GuessOutcome struct {
	Matched  bool
	Finished bool
	Round    *models.Round
}

// SubmitGuess validates phrase, embeds it, rejects near-duplicate
// guesses within the round, and checks it against the frozen snapshot.
// A match unions its cluster into matched_clusters; a miss increments
// strikes. The round finalizes (and pays out) on strikes=3 or
// coverage >= 0.95, per spec.md §4.5.
func (s *TLService) SubmitGuess(ctx context.Context, playerID, roundID, phrase string) (*GuessOutcome, error) {
	var outcome *GuessOutcome
	err := lockqueue.WithLock(ctx, s.locks, lockqueue.LockClassPlayer, playerID, s.engine.cfg.RoundLockTimeout(), func() error {
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		r, err := s.store.GetRound(ctx, tx, roundID)
		if err != nil {
			return err
		}
		if r.PlayerID != playerID || r.RoundType != models.RoundGuess {
			return coordinator.New(coordinator.KindNotFound, "guess round does not belong to player")
		}
		if !r.IsActive() {
			return coordinator.Newf(coordinator.KindRoundExpired, "round %s is not active", roundID)
		}

		ok, reason, err := s.engine.validator.Validate(ctx, phrase)
		if err != nil {
			return fmt.Errorf("validate guess: %w", err)
		}
		if !ok {
			return coordinator.New(coordinator.KindInvalidPhrase, reason)
		}

		vec, err := s.embeddings.Get(ctx, tx, phrase, s.embedModel, s.embedProvider)
		if err != nil {
			return fmt.Errorf("embed guess: %w", err)
		}

		for _, prior := range r.GuessEmbeddings {
			if embedding.CosineSimilarity(vec, prior) >= s.selfSimilarityThreshold {
				return coordinator.New(coordinator.KindInvalidPhrase, "too similar to an earlier guess this round")
			}
		}
		r.GuessEmbeddings = append(r.GuessEmbeddings, vec)

		matchedCluster, err := s.bestMatch(ctx, tx, r, vec)
		if err != nil {
			return err
		}

		matched := matchedCluster != ""
		if matched {
			r.MatchedClusters = appendUnique(r.MatchedClusters, matchedCluster)
		} else {
			r.Strikes++
		}

		coverage, err := s.coverage(ctx, tx, r)
		if err != nil {
			return err
		}
		r.FinalCoverage = coverage

		finished := r.Strikes >= maxStrikes || coverage >= finalizeCoverageThreshold
		if finished {
			if err := s.finalize(ctx, tx, r); err != nil {
				return err
			}
		} else if err := s.store.UpdateRound(ctx, tx, r); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		outcome = &GuessOutcome{Matched: matched, Finished: finished, Round: r}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// bestMatch returns the snapshot cluster ID the embedding matches
// (similarity >= matchThreshold), or "" if none qualifies.
func (s *TLService) bestMatch(ctx context.Context, tx store.Tx, r *models.Round, vec []float64) (string, error) {
	clusterIDs := make(map[string]bool)
	for _, answerID := range r.SnapshotAnswerIDs {
		a, err := s.store.GetAnswer(ctx, tx, answerID)
		if err != nil {
			return "", err
		}
		clusterIDs[a.ClusterID] = true
	}
	best := ""
	bestSim := 0.0
	for clusterID := range clusterIDs {
		c, err := s.store.GetCluster(ctx, tx, clusterID)
		if err != nil {
			return "", err
		}
		sim := embedding.CosineSimilarity(vec, c.Centroid)
		if sim >= s.matchThreshold && sim > bestSim {
			bestSim = sim
			best = clusterID
		}
	}
	return best, nil
}

// coverage is the weighted fraction of the round's snapshot clusters
// matched so far, weighting each cluster by its current stored size
// (read at this call, not frozen when the snapshot was taken).
func (s *TLService) coverage(ctx context.Context, tx store.Tx, r *models.Round) (float64, error) {
	clusterSizes := make(map[string]int)
	for _, answerID := range r.SnapshotAnswerIDs {
		a, err := s.store.GetAnswer(ctx, tx, answerID)
		if err != nil {
			return 0, err
		}
		if _, seen := clusterSizes[a.ClusterID]; seen {
			continue
		}
		c, err := s.store.GetCluster(ctx, tx, a.ClusterID)
		if err != nil {
			return 0, err
		}
		clusterSizes[a.ClusterID] = c.Size
	}
	total := 0
	for _, size := range clusterSizes {
		total += size
	}
	if total == 0 {
		return 0, nil
	}
	matched := 0
	for _, clusterID := range r.MatchedClusters {
		matched += clusterSizes[clusterID]
	}
	return float64(matched) / float64(total), nil
}

// finalize computes the round's gross payout from its frozen coverage
// and credits wallet/vault, then transitions the round to completed.
func (s *TLService) finalize(ctx context.Context, tx store.Tx, r *models.Round) error {
	gross := int64(math.Round(300 * math.Pow(r.FinalCoverage, 1.5)))
	if gross > 300 {
		gross = 300
	}
	r.GrossPayout = gross
	r.Status = models.RoundCompleted

	wallet, vault := tlPayoutSplit(gross)
	if wallet > 0 {
		if _, err := s.ledger.CreditWallet(ctx, tx, r.PlayerID, models.GameTL, wallet, models.TxKindPayout, &r.ID); err != nil {
			return err
		}
	}
	if vault > 0 {
		if _, err := s.ledger.CreditVault(ctx, tx, r.PlayerID, models.GameTL, vault, models.TxKindVaultRake, &r.ID); err != nil {
			return err
		}
	}
	return s.store.UpdateRound(ctx, tx, r)
}

// tlPayoutSplit implements "all goes to wallet if gross <= 100; else
// 30% of the excess to vault" — verified against the spec's worked
// example (coverage=0.5 -> gross=106 -> wallet=105, vault=1).
func tlPayoutSplit(gross int64) (wallet, vault int64) {
	if gross <= tlVaultThreshold {
		return gross, 0
	}
	excess := gross - tlVaultThreshold
	vault = int64(float64(excess) * 0.30)
	wallet = gross - vault
	return wallet, vault
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
