package store

import (
	"context"
	"sort"

	"github.com/sheegaon/quipengine/pkg/models"
)

// PlayerStats is the read-only leaderboard/statistics summary computed
// purely from the Ledger — no new invariants, just aggregation over
// data the Round Engine and Ledger already write.
type PlayerStats struct {
	PlayerID          string `json:"playerId"`
	LifetimeNetEarnings int64 `json:"lifetimeNetEarnings"`
	RoundsPlayed      int    `json:"roundsPlayed"`
	RoundsWon         int    `json:"roundsWon"`
	WinRate           float64 `json:"winRate"`
	CurrentStreak     int    `json:"currentStreak"`
}

// ComputeStats aggregates a player's transaction history into lifetime
// net earnings (the sum of wallet amounts), win rate, and current win
// streak. A round counts as "won" if it produced at least one payout
// transaction with a positive amount.
func ComputeStats(ctx context.Context, st Store, playerID string) (*PlayerStats, error) {
	txs, err := st.ListTransactions(ctx, nil, playerID)
	if err != nil {
		return nil, err
	}

	stats := &PlayerStats{PlayerID: playerID}
	wonByRound := map[string]bool{}
	playedRounds := map[string]bool{}
	var roundOrder []string

	for _, t := range txs {
		if t.Account == models.AccountWallet {
			stats.LifetimeNetEarnings += t.Amount
		}
		if t.RoundID == nil {
			continue
		}
		if !playedRounds[*t.RoundID] {
			playedRounds[*t.RoundID] = true
			roundOrder = append(roundOrder, *t.RoundID)
		}
		if t.Kind == models.TxKindPayout && t.Amount > 0 {
			wonByRound[*t.RoundID] = true
		}
	}

	stats.RoundsPlayed = len(playedRounds)
	for _, won := range wonByRound {
		if won {
			stats.RoundsWon++
		}
	}
	if stats.RoundsPlayed > 0 {
		stats.WinRate = float64(stats.RoundsWon) / float64(stats.RoundsPlayed)
	}

	// roundOrder follows ListTransactions' return order, which is not
	// guaranteed chronological; sort round IDs by their earliest
	// transaction's CreatedAt to recover play order before computing streak.
	sort.SliceStable(roundOrder, func(i, j int) bool {
		return roundTimestamp(txs, roundOrder[i]).CreatedAt.Before(roundTimestamp(txs, roundOrder[j]).CreatedAt)
	})

	streak := 0
	for i := len(roundOrder) - 1; i >= 0; i-- {
		if !wonByRound[roundOrder[i]] {
			break
		}
		streak++
	}
	stats.CurrentStreak = streak

	return stats, nil
}

func roundTimestamp(txs []models.Transaction, roundID string) (t models.Transaction) {
	for _, tx := range txs {
		if tx.RoundID != nil && *tx.RoundID == roundID {
			if t.CreatedAt.IsZero() || tx.CreatedAt.Before(t.CreatedAt) {
				t = tx
			}
		}
	}
	return t
}
