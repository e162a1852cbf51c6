package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/ledger"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/internal/store/memstore"
	"github.com/sheegaon/quipengine/pkg/models"
)

func TestComputeStatsWinRateAndStreak(t *testing.T) {
	st := memstore.New()
	clock := coordinator.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ldg := ledger.New(st, clock)
	ctx := context.Background()

	playerID := "p1"
	player := &models.Player{ID: playerID, DisplayName: "Ada", CanonicalName: "ada", CreatedAt: clock.Now()}
	data := &models.PlayerGameData{PlayerID: playerID, Game: models.GameQF, Wallet: 1000}
	if err := st.CreatePlayer(ctx, nil, player, data); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}

	round1, round2, round3 := "r1", "r2", "r3"
	if _, err := ldg.DebitWallet(ctx, nil, playerID, models.GameQF, 10, models.TxKindRoundDebit, &round1); err != nil {
		t.Fatalf("debit r1: %v", err)
	}
	if _, err := ldg.CreditWallet(ctx, nil, playerID, models.GameQF, 0, models.TxKindPayout, &round1); err != nil {
		t.Fatalf("credit r1 (loss): %v", err)
	}

	if _, err := ldg.DebitWallet(ctx, nil, playerID, models.GameQF, 10, models.TxKindRoundDebit, &round2); err != nil {
		t.Fatalf("debit r2: %v", err)
	}
	if _, err := ldg.CreditWallet(ctx, nil, playerID, models.GameQF, 50, models.TxKindPayout, &round2); err != nil {
		t.Fatalf("credit r2 (win): %v", err)
	}
	clock.Advance(time.Minute)

	if _, err := ldg.DebitWallet(ctx, nil, playerID, models.GameQF, 10, models.TxKindRoundDebit, &round3); err != nil {
		t.Fatalf("debit r3: %v", err)
	}
	if _, err := ldg.CreditWallet(ctx, nil, playerID, models.GameQF, 60, models.TxKindPayout, &round3); err != nil {
		t.Fatalf("credit r3 (win): %v", err)
	}

	stats, err := store.ComputeStats(ctx, st, playerID)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if stats.RoundsPlayed != 3 {
		t.Fatalf("RoundsPlayed = %d, want 3", stats.RoundsPlayed)
	}
	if stats.RoundsWon != 2 {
		t.Fatalf("RoundsWon = %d, want 2", stats.RoundsWon)
	}
	if stats.CurrentStreak != 2 {
		t.Fatalf("CurrentStreak = %d, want 2 (r2 and r3 both wins, r1 breaks it)", stats.CurrentStreak)
	}
}
