package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/store/memstore"
	"github.com/sheegaon/quipengine/pkg/models"
)

func newTestService(t *testing.T) (*Service, *memstore.Store, string) {
	t.Helper()
	st := memstore.New()
	clock := coordinator.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := New(st, clock)

	player := &models.Player{ID: "p1", DisplayName: "Ada", CanonicalName: "ada", CreatedAt: clock.Now()}
	data := &models.PlayerGameData{PlayerID: "p1", Game: models.GameQF, Wallet: 500}
	if err := st.CreatePlayer(context.Background(), nil, player, data); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	return svc, st, "p1"
}

func TestDebitWalletSufficientFunds(t *testing.T) {
	svc, _, playerID := newTestService(t)
	data, err := svc.DebitWallet(context.Background(), nil, playerID, models.GameQF, 20, models.TxKindRoundDebit, nil)
	if err != nil {
		t.Fatalf("DebitWallet: %v", err)
	}
	if data.Wallet != 480 {
		t.Fatalf("wallet = %d, want 480", data.Wallet)
	}
}

func TestDebitWalletInsufficientFunds(t *testing.T) {
	svc, _, playerID := newTestService(t)
	_, err := svc.DebitWallet(context.Background(), nil, playerID, models.GameQF, 1000, models.TxKindRoundDebit, nil)
	if !coordinator.Is(err, coordinator.KindInsufficientBalance) {
		t.Fatalf("err = %v, want KindInsufficientBalance", err)
	}
}

func TestAbandonRefundPenaltyBoundary(t *testing.T) {
	svc, _, playerID := newTestService(t)
	if _, err := svc.DebitWallet(context.Background(), nil, playerID, models.GameQF, 100, models.TxKindRoundDebit, nil); err != nil {
		t.Fatalf("DebitWallet: %v", err)
	}
	penalty := int64(5)
	refund := int64(100) - penalty
	data, err := svc.CreditWallet(context.Background(), nil, playerID, models.GameQF, refund, models.TxKindRoundRefund, nil)
	if err != nil {
		t.Fatalf("CreditWallet: %v", err)
	}
	if data.Wallet != 495 {
		t.Fatalf("wallet = %d, want 495 (500 - 100 + 95)", data.Wallet)
	}
}

func TestProcessPayoutSplitsVaultRake(t *testing.T) {
	svc, _, playerID := newTestService(t)
	split, err := svc.ProcessPayout(context.Background(), nil, playerID, models.GameQF, 100, 0.30, models.TxKindPayout, nil, nil, nil)
	if err != nil {
		t.Fatalf("ProcessPayout: %v", err)
	}
	if split.VaultShare != 30 || split.WalletShare != 70 {
		t.Fatalf("split = %+v, want wallet=70 vault=30", split)
	}
	wallet, vault, err := svc.Balance(context.Background(), nil, playerID, models.GameQF)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if wallet != 570 || vault != 30 {
		t.Fatalf("wallet=%d vault=%d, want 570/30", wallet, vault)
	}
}

func TestSplitPayoutFloorsVaultShare(t *testing.T) {
	split := SplitPayout(101, 0.30)
	if split.VaultShare != 30 {
		t.Fatalf("vault share = %d, want 30 (floor of 30.3)", split.VaultShare)
	}
	if split.WalletShare+split.VaultShare != 101 {
		t.Fatalf("split does not sum to gross: %+v", split)
	}
}
