// Package ledger is the coordinator's append-only transaction log (C1,
// spec.md §4.1). Every balance change flows through one of the
// functions here so that balance_after always forms a gap-free
// monotonic sequence per (player, game, account) — the same
// append-then-derive discipline the teacher uses for its own
// Transaction log, just generalized from Bitcoin value transfer to the
// coordinator's wallet/vault economy.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sheegaon/quipengine/internal/coordinator"
	"github.com/sheegaon/quipengine/internal/logging"
	"github.com/sheegaon/quipengine/internal/store"
	"github.com/sheegaon/quipengine/pkg/models"
)

var log = logging.New("Ledger")

// Service appends ledger entries and mutates the matching
// PlayerGameData balance within the caller's transaction.
type Service struct {
	store store.Store
	clock coordinator.Clock
}

func New(st store.Store, clock coordinator.Clock) *Service {
	return &Service{store: st, clock: clock}
}

// DebitWallet deducts amount from the player's wallet for the given
// round/kind. Returns KindInsufficientBalance if the wallet can't cover it.
func (s *Service) DebitWallet(ctx context.Context, tx store.Tx, playerID string, game models.GameType, amount int64, kind models.TransactionKind, roundID *string) (*models.PlayerGameData, error) {
	if amount < 0 {
		return nil, coordinator.Newf(coordinator.KindInsufficientBalance, "debit amount must be non-negative, got %d", amount)
	}
	data, err := s.store.GetPlayerGameData(ctx, tx, playerID, game)
	if err != nil {
		return nil, err
	}
	if data.Wallet < amount {
		return nil, coordinator.Newf(coordinator.KindInsufficientBalance, "wallet %d cannot cover debit of %d", data.Wallet, amount)
	}
	data.Wallet -= amount
	if err := s.store.UpdatePlayerGameData(ctx, tx, data); err != nil {
		return nil, err
	}
	if err := s.append(ctx, tx, playerID, game, models.AccountWallet, -amount, data.Wallet, kind, roundID, nil, nil); err != nil {
		return nil, err
	}
	return data, nil
}

// CreditWallet adds amount to the player's wallet (refunds, daily
// bonuses, payouts paid into the wallet rather than the vault).
func (s *Service) CreditWallet(ctx context.Context, tx store.Tx, playerID string, game models.GameType, amount int64, kind models.TransactionKind, roundID *string) (*models.PlayerGameData, error) {
	data, err := s.store.GetPlayerGameData(ctx, tx, playerID, game)
	if err != nil {
		return nil, err
	}
	data.Wallet += amount
	if err := s.store.UpdatePlayerGameData(ctx, tx, data); err != nil {
		return nil, err
	}
	if err := s.append(ctx, tx, playerID, game, models.AccountWallet, amount, data.Wallet, kind, roundID, nil, nil); err != nil {
		return nil, err
	}
	return data, nil
}

// CreditVault adds amount to the player's long-term vault balance —
// used for the rake a payout sets aside rather than paying into the
// immediately spendable wallet (spec.md §4.1's vault-rake split).
func (s *Service) CreditVault(ctx context.Context, tx store.Tx, playerID string, game models.GameType, amount int64, kind models.TransactionKind, roundID *string) (*models.PlayerGameData, error) {
	data, err := s.store.GetPlayerGameData(ctx, tx, playerID, game)
	if err != nil {
		return nil, err
	}
	data.Vault += amount
	if err := s.store.UpdatePlayerGameData(ctx, tx, data); err != nil {
		return nil, err
	}
	if err := s.append(ctx, tx, playerID, game, models.AccountVault, amount, data.Vault, kind, roundID, nil, nil); err != nil {
		return nil, err
	}
	return data, nil
}

// PayoutSplit is the result of applying a vault-rake percentage to a
// gross payout: walletShare + vaultShare == gross (rounding favors the
// wallet, matching the original's floor-then-remainder split).
type PayoutSplit struct {
	WalletShare int64
	VaultShare  int64
}

// SplitPayout divides a gross payout between wallet and vault using
// rakePercent (e.g. 0.30 sends 30% to the vault). The vault share is
// floored so the wallet never loses a fractional coin to rounding.
func SplitPayout(gross int64, rakePercent float64) PayoutSplit {
	vault := int64(float64(gross) * rakePercent)
	return PayoutSplit{WalletShare: gross - vault, VaultShare: vault}
}

// ProcessPayout credits a gross payout split between wallet and vault
// per rakePercent, tagging both entries with kind and the owning
// round/set/phraseset id (exactly one of which should be non-nil).
func (s *Service) ProcessPayout(ctx context.Context, tx store.Tx, playerID string, game models.GameType, gross int64, rakePercent float64, kind models.TransactionKind, roundID, setID, phrasesetID *string) (PayoutSplit, error) {
	split := SplitPayout(gross, rakePercent)
	data, err := s.store.GetPlayerGameData(ctx, tx, playerID, game)
	if err != nil {
		return PayoutSplit{}, err
	}
	data.Wallet += split.WalletShare
	data.Vault += split.VaultShare
	if err := s.store.UpdatePlayerGameData(ctx, tx, data); err != nil {
		return PayoutSplit{}, err
	}
	if split.WalletShare != 0 {
		if err := s.append(ctx, tx, playerID, game, models.AccountWallet, split.WalletShare, data.Wallet, kind, roundID, setID, phrasesetID); err != nil {
			return PayoutSplit{}, err
		}
	}
	if split.VaultShare != 0 {
		if err := s.append(ctx, tx, playerID, game, models.AccountVault, split.VaultShare, data.Vault, models.TxKindVaultRake, roundID, setID, phrasesetID); err != nil {
			return PayoutSplit{}, err
		}
	}
	log.Printf("payout player=%s game=%s gross=%d wallet=%d vault=%d", playerID, game, gross, split.WalletShare, split.VaultShare)
	return split, nil
}

// Balance returns the player's current wallet and vault balances for game.
func (s *Service) Balance(ctx context.Context, tx store.Tx, playerID string, game models.GameType) (wallet, vault int64, err error) {
	data, err := s.store.GetPlayerGameData(ctx, tx, playerID, game)
	if err != nil {
		return 0, 0, err
	}
	return data.Wallet, data.Vault, nil
}

func (s *Service) append(ctx context.Context, tx store.Tx, playerID string, game models.GameType, account models.AccountKind, amount, balanceAfter int64, kind models.TransactionKind, roundID, setID, phrasesetID *string) error {
	t := &models.Transaction{
		ID:           uuid.NewString(),
		PlayerID:     playerID,
		Game:         game,
		Account:      account,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Kind:         kind,
		RoundID:      roundID,
		SetID:        setID,
		PhrasesetID:  phrasesetID,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.AppendTransaction(ctx, tx, t); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}
