package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/sheegaon/quipengine/internal/config"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store/memstore"
	"github.com/sheegaon/quipengine/pkg/models"
)

func TestClaimDailyBonusCreditsOnce(t *testing.T) {
	svc, st, playerID := newTestService(t)
	cfg := config.Economy{DailyBonusAmount: 50, IRDailyBonusAmount: 25, TLDailyBonusAmount: 10}

	amount, err := svc.ClaimDailyBonus(context.Background(), playerID, models.GameQF, cfg)
	if err != nil {
		t.Fatalf("ClaimDailyBonus: %v", err)
	}
	if amount != 50 {
		t.Fatalf("amount = %d, want 50", amount)
	}

	data, err := st.GetPlayerGameData(context.Background(), nil, playerID, models.GameQF)
	if err != nil {
		t.Fatalf("GetPlayerGameData: %v", err)
	}
	if data.Wallet != 550 {
		t.Fatalf("wallet = %d, want 550 (500 + 50)", data.Wallet)
	}

	amount, err = svc.ClaimDailyBonus(context.Background(), playerID, models.GameQF, cfg)
	if err != nil {
		t.Fatalf("second ClaimDailyBonus: %v", err)
	}
	if amount != 0 {
		t.Fatalf("second-claim amount = %d, want 0 (already claimed today)", amount)
	}
}

func TestClaimDailyBonusResetsNextDay(t *testing.T) {
	st := memstore.New()
	clock := coordinator.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := New(st, clock)
	playerID := "p1"
	player := &models.Player{ID: playerID, DisplayName: "Ada", CanonicalName: "ada", CreatedAt: clock.Now()}
	data := &models.PlayerGameData{PlayerID: playerID, Game: models.GameQF, Wallet: 500}
	if err := st.CreatePlayer(context.Background(), nil, player, data); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	cfg := config.Economy{DailyBonusAmount: 50}

	if _, err := svc.ClaimDailyBonus(context.Background(), playerID, models.GameQF, cfg); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	clock.Advance(25 * time.Hour)
	amount, err := svc.ClaimDailyBonus(context.Background(), playerID, models.GameQF, cfg)
	if err != nil {
		t.Fatalf("next-day claim: %v", err)
	}
	if amount != 50 {
		t.Fatalf("next-day amount = %d, want 50", amount)
	}
}
